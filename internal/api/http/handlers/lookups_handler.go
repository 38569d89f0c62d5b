package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defect-tracker/internal/api/dto"
	"github.com/spec-kit/defect-tracker/internal/service"
)

// LookupsHandler serves reference tables.
type LookupsHandler struct {
	service *service.LookupService
}

// NewLookupsHandler constructs handler.
func NewLookupsHandler(lookupService *service.LookupService) *LookupsHandler {
	return &LookupsHandler{service: lookupService}
}

// ListDefectStatuses GET /api/defect-statuses.
func (h *LookupsHandler) ListDefectStatuses(c *fiber.Ctx) error {
	statuses, err := h.service.ListDefectStatuses(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.LookupResponse, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, dto.LookupResponse{ID: status.ID, Name: status.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListProjectStages GET /api/project-stages.
func (h *LookupsHandler) ListProjectStages(c *fiber.Ctx) error {
	stages, err := h.service.ListProjectStages(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.LookupResponse, 0, len(stages))
	for _, stage := range stages {
		items = append(items, dto.LookupResponse{ID: stage.ID, Name: stage.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}
