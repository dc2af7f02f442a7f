package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/middleware"
	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/service"
)

type MediaHandler struct {
	uploads    *service.MediaService
	moderation *service.ModerationService
}

func NewMediaHandler(uploads *service.MediaService, moderation *service.ModerationService) *MediaHandler {
	return &MediaHandler{uploads: uploads, moderation: moderation}
}

// Upload handles POST /api/media (multipart: file, modelName, prompt, year, aiGenerated)
func (h *MediaHandler) Upload(c fiber.Ctx) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return middleware.ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_FILE", "file is required")
	}
	req := model.MediaSubmitRequest{
		ModelName: c.FormValue("modelName"),
		Prompt:    c.FormValue("prompt"),
	}
	req.AIGenerated, _ = strconv.ParseBool(c.FormValue("aiGenerated"))
	if y := strings.TrimSpace(c.FormValue("year")); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_YEAR", "year must be a number")
		}
		req.Year = &year
	}

	f, err := fh.Open()
	if err != nil {
		return respondError(c, err, "read upload")
	}
	defer f.Close()

	m, err := h.uploads.Submit(c.Context(), claims.Subject, req, model.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return respondError(c, err, "submit media")
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// List handles GET /api/admin/media?status=&hidden=&search=&page=&pageSize=
func (h *MediaHandler) List(c fiber.Ctx) error {
	p, errMsg := middleware.ParsePage(c)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PAGE", errMsg)
	}
	hidden, errMsg := middleware.ParseOptionalBool(c, "hidden")
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	items, err := h.moderation.ListMedia(c.Context(), model.MediaFilter{
		Status: model.Status(c.Query("status")),
		Hidden: hidden,
		Search: strings.TrimSpace(c.Query("search")),
		Offset: p.Offset(),
		Limit:  p.PageSize,
	})
	if err != nil {
		return respondError(c, err, "list media")
	}
	return c.JSON(fiber.Map{"items": items, "page": p.Page, "pageSize": p.PageSize})
}

// Update handles PATCH /api/admin/media/:mediaId
func (h *MediaHandler) Update(c fiber.Ctx) error {
	var updates map[string]json.RawMessage
	if err := c.Bind().JSON(&updates); err != nil {
		return invalidBody(c)
	}
	m, err := h.moderation.UpdateMedia(c.Context(), c.Params("mediaId"), updates)
	if err != nil {
		return respondError(c, err, "update media")
	}
	return c.JSON(m)
}

// Batch handles POST /api/admin/media/batch
func (h *MediaHandler) Batch(c fiber.Ctx) error {
	var req model.BatchMediaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	res, err := h.moderation.BatchUpdateMedia(c.Context(), req)
	if err != nil {
		return respondError(c, err, "update media")
	}
	return c.JSON(res)
}
