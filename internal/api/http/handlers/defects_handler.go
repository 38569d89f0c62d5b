package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defect-tracker/internal/api/dto"
	"github.com/spec-kit/defect-tracker/internal/auth"
	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/repository"
	"github.com/spec-kit/defect-tracker/internal/service"
	apperrors "github.com/spec-kit/defect-tracker/pkg/util"
)

// DefectsHandler manages defect endpoints.
type DefectsHandler struct {
	service *service.DefectService
}

// NewDefectsHandler constructs handler.
func NewDefectsHandler(defectService *service.DefectService) *DefectsHandler {
	return &DefectsHandler{service: defectService}
}

// CreateDefect POST /api/defects.
func (h *DefectsHandler) CreateDefect(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateDefectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ProjectID == "" || req.Title == "" {
		return apperrors.NewValidationError("project_id and title required", nil)
	}
	dueDate, err := parseDateParam(req.DueDate, "due_date")
	if err != nil {
		return err
	}

	defect, err := h.service.CreateDefect(c.Context(), principal.User.ID, service.DefectCreateInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		StatusID:    req.StatusID,
		AssigneeID:  req.AssigneeID,
		DueDate:     dueDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDefectSummary(defect)})
}

// ListDefects GET /api/defects.
func (h *DefectsHandler) ListDefects(c *fiber.Ctx) error {
	filter := parseDefectQuery(c)
	defects, err := h.service.ListDefects(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.DefectSummary, 0, len(defects))
	for i := range defects {
		items = append(items, dto.NewDefectSummary(&defects[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetDefect GET /api/defects/:id.
func (h *DefectsHandler) GetDefect(c *fiber.Ctx) error {
	detail, err := h.service.GetDefectDetail(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": defectDetailResponse(detail)})
}

// UpdateDefect PUT /api/defects/:id. Fields absent from the body are
// left untouched; explicit nulls clear nullable fields. Every field
// that actually changes gets an audit entry written in the same
// transaction as the update.
func (h *DefectsHandler) UpdateDefect(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateDefectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch, err := buildDefectPatch(req)
	if err != nil {
		return err
	}
	defect, _, err := h.service.UpdateDefect(c.Context(), principal.User.ID, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDefectSummary(defect)})
}

// DeleteDefect DELETE /api/defects/:id.
func (h *DefectsHandler) DeleteDefect(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteDefect(c.Context(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListHistory GET /api/defects/:id/history.
func (h *DefectsHandler) ListHistory(c *fiber.Ctx) error {
	history, err := h.service.ListHistory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(history))
	for _, entry := range history {
		items = append(items, dto.NewHistoryEntry(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /api/defects/:id/comments.
func (h *DefectsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.Context(), principal.User.ID, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(*comment)})
}

// ListComments GET /api/defects/:id/comments.
func (h *DefectsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.service.ListComments(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, dto.NewCommentResponse(comment))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /api/defects/:id/attachments.
func (h *DefectsHandler) AddAttachment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	attachment, err := h.service.AddAttachment(c.Context(), principal.User.ID, c.Params("id"), service.AttachmentInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(*attachment)})
}

// ListAttachments GET /api/defects/:id/attachments.
func (h *DefectsHandler) ListAttachments(c *fiber.Ctx) error {
	attachments, err := h.service.ListAttachments(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, attachment := range attachments {
		items = append(items, dto.NewAttachmentResponse(attachment))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAttachment GET /api/attachments/:id.
func (h *DefectsHandler) GetAttachment(c *fiber.Ctx) error {
	attachment, err := h.service.GetAttachment(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAttachmentResponse(*attachment)})
}

// DeleteAttachment DELETE /api/attachments/:id.
func (h *DefectsHandler) DeleteAttachment(c *fiber.Ctx) error {
	if err := h.service.DeleteAttachment(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func buildDefectPatch(req dto.UpdateDefectRequest) (service.DefectPatch, error) {
	patch := service.DefectPatch{
		Title:       service.StringPatch{Set: req.Title.Set, Value: req.Title.Value},
		Description: service.StringPatch{Set: req.Description.Set, Value: req.Description.Value},
		Priority:    service.StringPatch{Set: req.Priority.Set, Value: req.Priority.Value},
		StatusID:    service.IntPatch{Set: req.StatusID.Set, Value: req.StatusID.Value},
		AssigneeID:  service.StringPatch{Set: req.AssigneeID.Set, Value: req.AssigneeID.Value},
		ProjectID:   service.StringPatch{Set: req.ProjectID.Set, Value: req.ProjectID.Value},
	}
	if req.DueDate.Set {
		dueDate, err := parseDateParam(req.DueDate.Value, "due_date")
		if err != nil {
			return service.DefectPatch{}, err
		}
		patch.DueDate = service.DatePatch{Set: true, Value: dueDate}
	}
	return patch, nil
}

func parseDateParam(raw *string, field string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date, expected YYYY-MM-DD", map[string]any{"field": field, "value": *raw})
	}
	return &parsed, nil
}

func parseDefectQuery(c *fiber.Ctx) repository.DefectFilter {
	filter := repository.DefectFilter{}
	if projectID := c.Query("project_id"); projectID != "" {
		filter.ProjectID = &projectID
	}
	if assigneeID := c.Query("assignee_id"); assigneeID != "" {
		filter.AssigneeID = &assigneeID
	}
	if reporterID := c.Query("reporter_id"); reporterID != "" {
		filter.ReporterID = &reporterID
	}
	if statusStr := c.Query("status_id"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				filter.StatusIDs = append(filter.StatusIDs, id)
			}
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.DefectPriority(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return filter
}

func defectDetailResponse(detail *service.DefectDetail) dto.DefectDetailResponse {
	defect := detail.Defect
	summary := dto.NewDefectSummary(defect)
	resp := dto.DefectDetailResponse{
		ID:          summary.ID,
		ProjectID:   summary.ProjectID,
		Title:       summary.Title,
		Description: defect.Description,
		Priority:    summary.Priority,
		StatusID:    summary.StatusID,
		AssigneeID:  summary.AssigneeID,
		DueDate:     summary.DueDate,
		ReporterID:  summary.ReporterID,
		CreatedAt:   summary.CreatedAt,
		UpdatedAt:   summary.UpdatedAt,
		History:     make([]dto.HistoryEntryResponse, 0, len(detail.History)),
		Comments:    make([]dto.CommentResponse, 0, len(detail.Comments)),
		Attachments: make([]dto.AttachmentResponse, 0, len(detail.Attachments)),
	}
	for _, entry := range detail.History {
		resp.History = append(resp.History, dto.NewHistoryEntry(entry))
	}
	for _, comment := range detail.Comments {
		resp.Comments = append(resp.Comments, dto.NewCommentResponse(comment))
	}
	for _, attachment := range detail.Attachments {
		resp.Attachments = append(resp.Attachments, dto.NewAttachmentResponse(attachment))
	}
	return resp
}
