package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/events"
	"github.com/spec-kit/defect-tracker/internal/repository"
	apperrors "github.com/spec-kit/defect-tracker/pkg/util"
)

// DefectService coordinates defect workflows.
type DefectService struct {
	defects     repository.DefectRepository
	store       repository.DefectStore
	history     repository.DefectHistoryRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	projects    repository.ProjectRepository
	users       repository.UserRepository
	lookups     repository.LookupRepository
	dispatcher  events.Dispatcher
}

// DefectDependencies bundles repositories for the defect service.
type DefectDependencies struct {
	DefectRepo     repository.DefectRepository
	Store          repository.DefectStore
	HistoryRepo    repository.DefectHistoryRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	ProjectRepo    repository.ProjectRepository
	UserRepo       repository.UserRepository
	LookupRepo     repository.LookupRepository
	Dispatcher     events.Dispatcher
}

// NewDefectService constructs the service.
func NewDefectService(deps DefectDependencies) *DefectService {
	return &DefectService{
		defects:     deps.DefectRepo,
		store:       deps.Store,
		history:     deps.HistoryRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		projects:    deps.ProjectRepo,
		users:       deps.UserRepo,
		lookups:     deps.LookupRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// StringPatch carries an optional string field: Set marks whether the
// caller supplied the field at all, Value nil clears it.
type StringPatch struct {
	Set   bool
	Value *string
}

// IntPatch carries an optional integer field.
type IntPatch struct {
	Set   bool
	Value *int
}

// DatePatch carries an optional date field.
type DatePatch struct {
	Set   bool
	Value *time.Time
}

// DefectPatch describes a partial defect update. Unsupplied fields
// are left untouched.
type DefectPatch struct {
	Title       StringPatch
	Description StringPatch
	Priority    StringPatch
	StatusID    IntPatch
	AssigneeID  StringPatch
	DueDate     DatePatch
	ProjectID   StringPatch
}

// DefectCreateInput describes defect creation payload.
type DefectCreateInput struct {
	ProjectID   string
	Title       string
	Description string
	Priority    domain.DefectPriority
	StatusID    int
	AssigneeID  *string
	DueDate     *time.Time
}

// DefectDetail aggregates a defect with its related records.
type DefectDetail struct {
	Defect      *domain.Defect
	History     []domain.DefectHistory
	Comments    []domain.DefectComment
	Attachments []domain.Attachment
}

// CreateDefect registers a new defect.
func (s *DefectService) CreateDefect(ctx context.Context, reporterID string, input DefectCreateInput) (*domain.Defect, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority", "value": input.Priority})
	}
	if err := s.checkProjectExists(ctx, input.ProjectID); err != nil {
		return nil, err
	}
	if err := s.checkStatusExists(ctx, input.StatusID); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil {
		if err := s.checkAssigneeExists(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	defect := &domain.Defect{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		StatusID:    input.StatusID,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
		ReporterID:  reporterID,
	}
	if err := s.defects.Create(ctx, defect); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventDefectCreated,
		DefectID: defect.ID,
		ActorID:  reporterID,
		Payload: events.DefectCreatedPayload{
			ProjectID: defect.ProjectID,
			Title:     defect.Title,
			Priority:  defect.Priority,
			StatusID:  defect.StatusID,
		},
	})
	return defect, nil
}

// UpdateDefect applies a partial update under a row lock and writes
// one audit entry per field whose supplied value differs from the
// stored value. Either the defect row and all audit entries commit
// together or nothing is written.
func (s *DefectService) UpdateDefect(ctx context.Context, actorID, defectID string, patch DefectPatch) (*domain.Defect, []events.FieldChange, error) {
	if err := s.validatePatch(ctx, patch); err != nil {
		return nil, nil, err
	}

	var updated *domain.Defect
	var changes []events.FieldChange
	err := s.store.UpdateWithLock(ctx, defectID, func(ctx context.Context, tx repository.DefectTx) error {
		defect := tx.Defect()

		for _, field := range trackedFields(patch) {
			if !field.supplied {
				continue
			}
			oldValue := field.stored(defect)
			if equalValue(oldValue, field.value) {
				continue
			}
			field.apply(defect)
			changes = append(changes, events.FieldChange{
				Field:    field.name,
				OldValue: oldValue,
				NewValue: field.value,
			})
		}

		if len(changes) == 0 {
			updated = defect
			return nil
		}

		if err := tx.Save(ctx, defect); err != nil {
			return err
		}
		for _, change := range changes {
			entry := &domain.DefectHistory{
				DefectID: defect.ID,
				ActorID:  actorID,
				Field:    change.Field,
				OldValue: change.OldValue,
				NewValue: change.NewValue,
			}
			if err := tx.AppendHistory(ctx, entry); err != nil {
				return err
			}
		}
		updated = defect
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(changes) > 0 {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventDefectUpdated,
			DefectID: defectID,
			ActorID:  actorID,
			Payload:  events.DefectUpdatedPayload{Changes: changes},
		})
	}
	return updated, changes, nil
}

// trackedField describes one auditable defect attribute: the supplied
// value normalized for comparison, the stored value read the same way,
// and the mutation applying the new value.
type trackedField struct {
	name     string
	supplied bool
	value    *string
	stored   func(*domain.Defect) *string
	apply    func(*domain.Defect)
}

func trackedFields(patch DefectPatch) []trackedField {
	return []trackedField{
		{
			name:     "title",
			supplied: patch.Title.Set,
			value:    normStringPtr(patch.Title.Value),
			stored:   func(d *domain.Defect) *string { return normString(d.Title) },
			apply:    func(d *domain.Defect) { d.Title = strings.TrimSpace(*patch.Title.Value) },
		},
		{
			name:     "description",
			supplied: patch.Description.Set,
			value:    normStringPtr(patch.Description.Value),
			stored:   func(d *domain.Defect) *string { return normString(d.Description) },
			apply: func(d *domain.Defect) {
				if patch.Description.Value == nil {
					d.Description = ""
					return
				}
				d.Description = strings.TrimSpace(*patch.Description.Value)
			},
		},
		{
			name:     "priority",
			supplied: patch.Priority.Set,
			value:    patch.Priority.Value,
			stored:   func(d *domain.Defect) *string { return normString(string(d.Priority)) },
			apply:    func(d *domain.Defect) { d.Priority = domain.DefectPriority(*patch.Priority.Value) },
		},
		{
			name:     "status_id",
			supplied: patch.StatusID.Set,
			value:    normInt(patch.StatusID.Value),
			stored:   func(d *domain.Defect) *string { return normInt(&d.StatusID) },
			apply:    func(d *domain.Defect) { d.StatusID = *patch.StatusID.Value },
		},
		{
			name:     "assignee_id",
			supplied: patch.AssigneeID.Set,
			value:    patch.AssigneeID.Value,
			stored:   func(d *domain.Defect) *string { return d.AssigneeID },
			apply:    func(d *domain.Defect) { d.AssigneeID = patch.AssigneeID.Value },
		},
		{
			name:     "due_date",
			supplied: patch.DueDate.Set,
			value:    normDate(patch.DueDate.Value),
			stored:   func(d *domain.Defect) *string { return normDate(d.DueDate) },
			apply:    func(d *domain.Defect) { d.DueDate = patch.DueDate.Value },
		},
		{
			name:     "project_id",
			supplied: patch.ProjectID.Set,
			value:    patch.ProjectID.Value,
			stored:   func(d *domain.Defect) *string { return normString(d.ProjectID) },
			apply:    func(d *domain.Defect) { d.ProjectID = *patch.ProjectID.Value },
		},
	}
}

// validatePatch rejects invalid input before any transaction starts.
func (s *DefectService) validatePatch(ctx context.Context, patch DefectPatch) error {
	if patch.Title.Set {
		if patch.Title.Value == nil || strings.TrimSpace(*patch.Title.Value) == "" {
			return apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
		}
	}
	if patch.Priority.Set {
		if patch.Priority.Value == nil || !domain.ValidPriority(domain.DefectPriority(*patch.Priority.Value)) {
			return apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
		}
	}
	if patch.StatusID.Set {
		if patch.StatusID.Value == nil {
			return apperrors.NewValidationError("status must not be null", map[string]any{"field": "status_id"})
		}
		if err := s.checkStatusExists(ctx, *patch.StatusID.Value); err != nil {
			return err
		}
	}
	if patch.ProjectID.Set {
		if patch.ProjectID.Value == nil || *patch.ProjectID.Value == "" {
			return apperrors.NewValidationError("project must not be null", map[string]any{"field": "project_id"})
		}
		if err := s.checkProjectExists(ctx, *patch.ProjectID.Value); err != nil {
			return err
		}
	}
	if patch.AssigneeID.Set && patch.AssigneeID.Value != nil {
		if err := s.checkAssigneeExists(ctx, *patch.AssigneeID.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefectService) checkStatusExists(ctx context.Context, id int) error {
	if s.lookups == nil {
		return nil
	}
	if _, err := s.lookups.GetDefectStatus(ctx, id); err != nil {
		if apperrors.ToDomainError(err).Code == "NOT_FOUND" {
			return apperrors.NewValidationError("unknown status", map[string]any{"field": "status_id", "value": id})
		}
		return err
	}
	return nil
}

func (s *DefectService) checkProjectExists(ctx context.Context, id string) error {
	if s.projects == nil {
		return nil
	}
	if _, err := s.projects.GetByID(ctx, id); err != nil {
		if apperrors.ToDomainError(err).Code == "NOT_FOUND" {
			return apperrors.NewValidationError("unknown project", map[string]any{"field": "project_id", "value": id})
		}
		return err
	}
	return nil
}

func (s *DefectService) checkAssigneeExists(ctx context.Context, id string) error {
	if s.users == nil {
		return nil
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if apperrors.ToDomainError(err).Code == "NOT_FOUND" {
			return apperrors.NewValidationError("unknown assignee", map[string]any{"field": "assignee_id", "value": id})
		}
		return err
	}
	return nil
}

// GetDefectDetail fetches a defect together with history, comments
// and attachment metadata.
func (s *DefectService) GetDefectDetail(ctx context.Context, defectID string) (*DefectDetail, error) {
	defect, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return nil, err
	}
	detail := &DefectDetail{Defect: defect}
	if s.history != nil {
		if detail.History, err = s.history.ListByDefect(ctx, defectID); err != nil {
			return nil, err
		}
	}
	if s.comments != nil {
		if detail.Comments, err = s.comments.ListByDefect(ctx, defectID); err != nil {
			return nil, err
		}
	}
	if s.attachments != nil {
		if detail.Attachments, err = s.attachments.ListByDefect(ctx, defectID); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// ListDefects returns defects matching the filter.
func (s *DefectService) ListDefects(ctx context.Context, filter repository.DefectFilter) ([]domain.Defect, error) {
	return s.defects.ListWithFilter(ctx, filter)
}

// ListHistory returns the audit trail for a defect, newest first.
func (s *DefectService) ListHistory(ctx context.Context, defectID string) ([]domain.DefectHistory, error) {
	if _, err := s.defects.GetByID(ctx, defectID); err != nil {
		return nil, err
	}
	return s.history.ListByDefect(ctx, defectID)
}

// DeleteDefect removes a defect and its dependent rows.
func (s *DefectService) DeleteDefect(ctx context.Context, actorID, defectID string) error {
	defect, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return err
	}
	if err := s.defects.Delete(ctx, defectID); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventDefectDeleted,
		DefectID: defectID,
		ActorID:  actorID,
		Payload: events.DefectDeletedPayload{
			ProjectID: defect.ProjectID,
			Title:     defect.Title,
		},
	})
	return nil
}

// AddComment appends a comment to a defect thread.
func (s *DefectService) AddComment(ctx context.Context, authorID, defectID, body string) (*domain.DefectComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body must not be empty", map[string]any{"field": "body"})
	}
	if _, err := s.defects.GetByID(ctx, defectID); err != nil {
		return nil, err
	}
	comment := &domain.DefectComment{
		DefectID: defectID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		DefectID: defectID,
		ActorID:  authorID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// ListComments returns the discussion thread for a defect.
func (s *DefectService) ListComments(ctx context.Context, defectID string) ([]domain.DefectComment, error) {
	if _, err := s.defects.GetByID(ctx, defectID); err != nil {
		return nil, err
	}
	return s.comments.ListByDefect(ctx, defectID)
}

// AttachmentInput defines attachment metadata supplied by the caller.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// AddAttachment records attachment metadata for a defect.
func (s *DefectService) AddAttachment(ctx context.Context, uploaderID, defectID string, input AttachmentInput) (*domain.Attachment, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, apperrors.NewValidationError("file name must not be empty", map[string]any{"field": "file_name"})
	}
	if _, err := s.defects.GetByID(ctx, defectID); err != nil {
		return nil, err
	}
	storageKey := strings.TrimSpace(input.StorageKey)
	if storageKey == "" {
		storageKey = uuid.NewString()
	}
	attachment := &domain.Attachment{
		DefectID:   defectID,
		UploaderID: uploaderID,
		StorageKey: storageKey,
		FileName:   input.FileName,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// ListAttachments returns attachment metadata for a defect.
func (s *DefectService) ListAttachments(ctx context.Context, defectID string) ([]domain.Attachment, error) {
	if _, err := s.defects.GetByID(ctx, defectID); err != nil {
		return nil, err
	}
	return s.attachments.ListByDefect(ctx, defectID)
}

// GetAttachment returns one attachment record.
func (s *DefectService) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	return s.attachments.GetByID(ctx, id)
}

// DeleteAttachment removes an attachment record.
func (s *DefectService) DeleteAttachment(ctx context.Context, id string) error {
	return s.attachments.Delete(ctx, id)
}

func (s *DefectService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func normString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func normStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return normString(strings.TrimSpace(*s))
}

func normInt(v *int) *string {
	if v == nil {
		return nil
	}
	formatted := strconv.Itoa(*v)
	return &formatted
}

func normDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format("2006-01-02")
	return &formatted
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
