package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/middleware"
	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/service"
)

type ReportHandler struct {
	svc *service.ModerationService
}

func NewReportHandler(svc *service.ModerationService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Create handles POST /api/reports
func (h *ReportHandler) Create(c fiber.Ctx) error {
	var req model.ReportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	rep, err := h.svc.Report(c.Context(), req)
	if err != nil {
		return respondError(c, err, "file report")
	}
	return c.Status(fiber.StatusCreated).JSON(rep)
}

// List handles GET /api/admin/reports?status=&page=&pageSize=
func (h *ReportHandler) List(c fiber.Ctx) error {
	p, errMsg := middleware.ParsePage(c)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PAGE", errMsg)
	}
	items, err := h.svc.ListReports(c.Context(), model.ReportFilter{
		Status: model.ReportStatus(c.Query("status")),
		Offset: p.Offset(),
		Limit:  p.PageSize,
	})
	if err != nil {
		return respondError(c, err, "list reports")
	}
	return c.JSON(fiber.Map{"items": items, "page": p.Page, "pageSize": p.PageSize})
}

// Resolve handles POST /api/admin/reports/:reportId/resolve
func (h *ReportHandler) Resolve(c fiber.Ctx) error {
	var req model.ResolveRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return invalidBody(c)
		}
	}
	res, err := h.svc.Resolve(c.Context(), c.Params("reportId"), adminID(c), req)
	if err != nil {
		return respondError(c, err, "resolve report")
	}
	return c.JSON(res)
}
