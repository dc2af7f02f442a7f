package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/middleware"
	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/service"
)

type AdminHandler struct {
	admins *service.AdminService
	wipe   *service.WipeService
}

func NewAdminHandler(admins *service.AdminService, wipe *service.WipeService) *AdminHandler {
	return &AdminHandler{admins: admins, wipe: wipe}
}

// Users handles GET /api/admin/users
func (h *AdminHandler) Users(c fiber.Ctx) error {
	users, err := h.admins.List(c.Context())
	if err != nil {
		return respondError(c, err, "list admins")
	}
	return c.JSON(fiber.Map{"items": users})
}

// AddUser handles POST /api/admin/users
func (h *AdminHandler) AddUser(c fiber.Ctx) error {
	var req model.AdminUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	a, err := h.admins.Add(c.Context(), req, adminID(c))
	if err != nil {
		return respondError(c, err, "add admin")
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// RemoveUser handles DELETE /api/admin/users/:userId
func (h *AdminHandler) RemoveUser(c fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == adminID(c) {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "SELF_REMOVAL", "Use DELETE /api/account to remove yourself")
	}
	if err := h.admins.Remove(c.Context(), userID, adminID(c)); err != nil {
		return respondError(c, err, "remove admin")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Wipe handles POST /api/admin/wipe
func (h *AdminHandler) Wipe(c fiber.Ctx) error {
	var req model.WipeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	res, err := h.wipe.Wipe(c.Context(), req, adminID(c))
	if err != nil {
		return respondError(c, err, "wipe media")
	}
	return c.JSON(res)
}

// DeleteAccount handles DELETE /api/account
func (h *AdminHandler) DeleteAccount(c fiber.Ctx) error {
	if err := h.admins.Forget(c.Context(), adminID(c)); err != nil {
		return respondError(c, err, "delete account")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
