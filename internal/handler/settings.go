package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/service"
)

type SettingsHandler struct {
	svc *service.SettingsService
}

func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Public handles GET /api/settings
func (h *SettingsHandler) Public(c fiber.Ctx) error {
	return c.JSON(h.svc.Snapshot(c.Context()))
}

// List handles GET /api/admin/settings
func (h *SettingsHandler) List(c fiber.Ctx) error {
	rows, err := h.svc.List(c.Context())
	if err != nil {
		return respondError(c, err, "list settings")
	}
	return c.JSON(fiber.Map{"items": rows, "effective": service.ParseSettings(rows)})
}

// Update handles PUT /api/admin/settings/:key
func (h *SettingsHandler) Update(c fiber.Ctx) error {
	var req model.SettingUpdateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	row, err := h.svc.Update(c.Context(), c.Params("key"), req.Value, adminID(c))
	if err != nil {
		return respondError(c, err, "update setting")
	}
	return c.JSON(row)
}
