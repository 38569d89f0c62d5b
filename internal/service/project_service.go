package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/repository"
	apperrors "github.com/spec-kit/defect-tracker/pkg/util"
)

// ProjectService manages construction projects.
type ProjectService struct {
	projects repository.ProjectRepository
	lookups  repository.LookupRepository
}

// NewProjectService constructs the service.
func NewProjectService(projects repository.ProjectRepository, lookups repository.LookupRepository) *ProjectService {
	return &ProjectService{projects: projects, lookups: lookups}
}

// ProjectInput describes project create/update payload.
type ProjectInput struct {
	Name        string
	Description string
	StartDate   *string
	EndDate     *string
	StageID     *int
}

// CreateProject registers a new project.
func (s *ProjectService) CreateProject(ctx context.Context, input ProjectInput) (*domain.Project, error) {
	project, err := s.buildProject(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProject replaces mutable project attributes.
func (s *ProjectService) UpdateProject(ctx context.Context, id string, input ProjectInput) (*domain.Project, error) {
	existing, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.buildProject(ctx, input)
	if err != nil {
		return nil, err
	}
	project.ID = existing.ID
	project.CreatedAt = existing.CreatedAt
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject fetches one project.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// ListProjects returns all projects.
func (s *ProjectService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx)
}

// DeleteProject removes a project and its defects.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	return s.projects.Delete(ctx, id)
}

func (s *ProjectService) buildProject(ctx context.Context, input ProjectInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name must not be empty", map[string]any{"field": "name"})
	}
	project := &domain.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		StageID:     input.StageID,
	}
	var err error
	if project.StartDate, err = parseDate(input.StartDate, "start_date"); err != nil {
		return nil, err
	}
	if project.EndDate, err = parseDate(input.EndDate, "end_date"); err != nil {
		return nil, err
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return nil, apperrors.NewValidationError("end date before start date", map[string]any{"field": "end_date"})
	}
	if input.StageID != nil && s.lookups != nil {
		if _, err := s.lookups.GetProjectStage(ctx, *input.StageID); err != nil {
			if apperrors.ToDomainError(err).Code == "NOT_FOUND" {
				return nil, apperrors.NewValidationError("unknown stage", map[string]any{"field": "stage_id", "value": *input.StageID})
			}
			return nil, err
		}
	}
	return project, nil
}

func parseDate(raw *string, field string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date, expected YYYY-MM-DD", map[string]any{"field": field, "value": *raw})
	}
	return &parsed, nil
}
