package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/events"
	"github.com/spec-kit/defect-tracker/internal/repository"
	apperrors "github.com/spec-kit/defect-tracker/pkg/util"
)

type fakeDefectRepo struct {
	defects map[string]*domain.Defect
}

func newFakeDefectRepo() *fakeDefectRepo {
	return &fakeDefectRepo{defects: map[string]*domain.Defect{}}
}

func (r *fakeDefectRepo) Create(ctx context.Context, defect *domain.Defect) error {
	defect.ID = uuid.NewString()
	defect.CreatedAt = time.Now()
	defect.UpdatedAt = defect.CreatedAt
	copied := *defect
	r.defects[defect.ID] = &copied
	return nil
}

func (r *fakeDefectRepo) GetByID(ctx context.Context, id string) (*domain.Defect, error) {
	defect, ok := r.defects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *defect
	return &copied, nil
}

func (r *fakeDefectRepo) ListWithFilter(ctx context.Context, filter repository.DefectFilter) ([]domain.Defect, error) {
	var result []domain.Defect
	for _, defect := range r.defects {
		if filter.ProjectID != nil && defect.ProjectID != *filter.ProjectID {
			continue
		}
		result = append(result, *defect)
	}
	return result, nil
}

func (r *fakeDefectRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.defects[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.defects, id)
	return nil
}

type fakeCommentRepo struct {
	comments []domain.DefectComment
}

func (r *fakeCommentRepo) Create(ctx context.Context, comment *domain.DefectComment) error {
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByDefect(ctx context.Context, defectID string) ([]domain.DefectComment, error) {
	var result []domain.DefectComment
	for _, comment := range r.comments {
		if comment.DefectID == defectID {
			result = append(result, comment)
		}
	}
	return result, nil
}

func TestCreateDefect_DefaultsAndEvent(t *testing.T) {
	repo := newFakeDefectRepo()
	dispatcher := &capturingDispatcher{}
	svc := NewDefectService(DefectDependencies{DefectRepo: repo, Dispatcher: dispatcher})

	defect, err := svc.CreateDefect(context.Background(), "reporter-1", DefectCreateInput{
		ProjectID: "project-1",
		Title:     "  Broken window frame  ",
		StatusID:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Broken window frame", defect.Title)
	assert.Equal(t, domain.PriorityMedium, defect.Priority, "priority defaults to Medium")
	assert.Equal(t, "reporter-1", defect.ReporterID)

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, events.EventDefectCreated, dispatcher.events[0].Type)
}

func TestCreateDefect_Validation(t *testing.T) {
	svc := NewDefectService(DefectDependencies{DefectRepo: newFakeDefectRepo()})

	_, err := svc.CreateDefect(context.Background(), "reporter-1", DefectCreateInput{ProjectID: "p", Title: "  "})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = svc.CreateDefect(context.Background(), "reporter-1", DefectCreateInput{ProjectID: "p", Title: "T", Priority: "Blocker"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestAddComment(t *testing.T) {
	repo := newFakeDefectRepo()
	comments := &fakeCommentRepo{}
	dispatcher := &capturingDispatcher{}
	svc := NewDefectService(DefectDependencies{DefectRepo: repo, CommentRepo: comments, Dispatcher: dispatcher})

	defect, err := svc.CreateDefect(context.Background(), "reporter-1", DefectCreateInput{ProjectID: "p", Title: "T", StatusID: 1})
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), "author-1", defect.ID, "Please re-inspect after repair")
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)

	listed, err := svc.ListComments(context.Background(), defect.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = svc.AddComment(context.Background(), "author-1", defect.ID, "   ")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = svc.AddComment(context.Background(), "author-1", uuid.NewString(), "orphan")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestDeleteDefect_PublishesEvent(t *testing.T) {
	repo := newFakeDefectRepo()
	dispatcher := &capturingDispatcher{}
	svc := NewDefectService(DefectDependencies{DefectRepo: repo, Dispatcher: dispatcher})

	defect, err := svc.CreateDefect(context.Background(), "reporter-1", DefectCreateInput{ProjectID: "p", Title: "T", StatusID: 1})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDefect(context.Background(), "manager-1", defect.ID))
	_, err = repo.GetByID(context.Background(), defect.ID)
	require.Error(t, err)

	require.Len(t, dispatcher.events, 2)
	assert.Equal(t, events.EventDefectDeleted, dispatcher.events[1].Type)
}
