package dto

import (
	"time"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// CreateDefectRequest payload.
type CreateDefectRequest struct {
	ProjectID   string                `json:"project_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.DefectPriority `json:"priority"`
	StatusID    int                   `json:"status_id"`
	AssigneeID  *string               `json:"assignee_id"`
	DueDate     *string               `json:"due_date"`
}

// UpdateDefectRequest is a partial update: keys left out of the JSON
// body are not touched, explicit nulls clear nullable fields.
type UpdateDefectRequest struct {
	Title       OptionalString `json:"title"`
	Description OptionalString `json:"description"`
	Priority    OptionalString `json:"priority"`
	StatusID    OptionalInt    `json:"status_id"`
	AssigneeID  OptionalString `json:"assignee_id"`
	DueDate     OptionalString `json:"due_date"`
	ProjectID   OptionalString `json:"project_id"`
}

// DefectSummary response.
type DefectSummary struct {
	ID         string                `json:"id"`
	ProjectID  string                `json:"project_id"`
	Title      string                `json:"title"`
	Priority   domain.DefectPriority `json:"priority"`
	StatusID   int                   `json:"status_id"`
	AssigneeID *string               `json:"assignee_id"`
	DueDate    *string               `json:"due_date"`
	ReporterID string                `json:"reporter_id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// DefectDetailResponse provides the full defect view.
type DefectDetailResponse struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"project_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    domain.DefectPriority  `json:"priority"`
	StatusID    int                    `json:"status_id"`
	AssigneeID  *string                `json:"assignee_id"`
	DueDate     *string                `json:"due_date"`
	ReporterID  string                 `json:"reporter_id"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	History     []HistoryEntryResponse `json:"history"`
	Comments    []CommentResponse      `json:"comments"`
	Attachments []AttachmentResponse   `json:"attachments"`
}

// HistoryEntryResponse represents one audit entry.
type HistoryEntryResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Field     string    `json:"field"`
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	DefectID   string    `json:"defect_id"`
	UploaderID string    `json:"uploader_id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateAttachmentRequest describes attachment metadata input.
type CreateAttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// NewDefectSummary maps a domain defect to its summary response.
func NewDefectSummary(defect *domain.Defect) DefectSummary {
	return DefectSummary{
		ID:         defect.ID,
		ProjectID:  defect.ProjectID,
		Title:      defect.Title,
		Priority:   defect.Priority,
		StatusID:   defect.StatusID,
		AssigneeID: defect.AssigneeID,
		DueDate:    formatDate(defect.DueDate),
		ReporterID: defect.ReporterID,
		CreatedAt:  defect.CreatedAt,
		UpdatedAt:  defect.UpdatedAt,
	}
}

// NewHistoryEntry maps a domain history record.
func NewHistoryEntry(entry domain.DefectHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:        entry.ID,
		ActorID:   entry.ActorID,
		ActorName: entry.ActorName,
		Field:     entry.Field,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		CreatedAt: entry.CreatedAt,
	}
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(comment domain.DefectComment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		AuthorName: comment.AuthorName,
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
	}
}

// NewAttachmentResponse maps domain attachment metadata.
func NewAttachmentResponse(attachment domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:         attachment.ID,
		DefectID:   attachment.DefectID,
		UploaderID: attachment.UploaderID,
		StorageKey: attachment.StorageKey,
		FileName:   attachment.FileName,
		MimeType:   attachment.MimeType,
		SizeBytes:  attachment.SizeBytes,
		CreatedAt:  attachment.CreatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format("2006-01-02")
	return &formatted
}
