package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/service"
)

type RatingHandler struct {
	svc *service.RatingService
}

func NewRatingHandler(svc *service.RatingService) *RatingHandler {
	return &RatingHandler{svc: svc}
}

// Submit handles POST /api/ratings
func (h *RatingHandler) Submit(c fiber.Ctx) error {
	var req model.RateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	resp, err := h.svc.Submit(c.Context(), req)
	if err != nil {
		return respondError(c, err, "submit rating")
	}
	return c.JSON(resp)
}
