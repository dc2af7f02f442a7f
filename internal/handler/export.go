package handler

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/service"
)

type ExportHandler struct {
	svc     *service.ExportService
	timeout time.Duration
	metrics *Metrics
}

func NewExportHandler(svc *service.ExportService, timeout time.Duration, metrics *Metrics) *ExportHandler {
	return &ExportHandler{svc: svc, timeout: timeout, metrics: metrics}
}

// Export handles POST /api/admin/export
// Builds one page of a backup archive and serves it as a zip download.
func (h *ExportHandler) Export(c fiber.Ctx) error {
	var req model.ExportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	p, err := service.ParseExportRequest(req)
	if err != nil {
		return respondError(c, err, "export")
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	var buf bytes.Buffer
	res, err := h.svc.Export(ctx, p, &buf)
	h.metrics.ObserveExport(time.Since(start))
	if err != nil {
		return respondError(c, err, "export")
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+res.Filename+`"`)
	c.Set("X-Export-Items", strconv.Itoa(res.Items))
	c.Set("X-Export-Skipped", strconv.Itoa(res.Skipped))
	return c.Send(buf.Bytes())
}
