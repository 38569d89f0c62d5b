package dto

import (
	"time"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// ProjectRequest payload for project create/update.
type ProjectRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	StageID     *int    `json:"stage_id"`
}

// ProjectResponse response.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   *string   `json:"start_date"`
	EndDate     *string   `json:"end_date"`
	StageID     *int      `json:"stage_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProjectResponse maps a domain project.
func NewProjectResponse(project *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		StartDate:   formatDate(project.StartDate),
		EndDate:     formatDate(project.EndDate),
		StageID:     project.StageID,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// LookupResponse is a reference table row.
type LookupResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
