package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defect-tracker/internal/api/dto"
	"github.com/spec-kit/defect-tracker/internal/service"
	apperrors "github.com/spec-kit/defect-tracker/pkg/util"
)

// ProjectsHandler manages project endpoints.
type ProjectsHandler struct {
	service *service.ProjectService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projectService *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{service: projectService}
}

// CreateProject POST /api/projects.
func (h *ProjectsHandler) CreateProject(c *fiber.Ctx) error {
	var req dto.ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	project, err := h.service.CreateProject(c.Context(), service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StageID:     req.StageID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// ListProjects GET /api/projects.
func (h *ProjectsHandler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.service.ListProjects(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, dto.NewProjectResponse(&projects[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetProject GET /api/projects/:id.
func (h *ProjectsHandler) GetProject(c *fiber.Ctx) error {
	project, err := h.service.GetProject(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// UpdateProject PUT /api/projects/:id.
func (h *ProjectsHandler) UpdateProject(c *fiber.Ctx) error {
	var req dto.ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	project, err := h.service.UpdateProject(c.Context(), c.Params("id"), service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StageID:     req.StageID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// DeleteProject DELETE /api/projects/:id.
func (h *ProjectsHandler) DeleteProject(c *fiber.Ctx) error {
	if err := h.service.DeleteProject(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
