package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/service"
)

type FeedHandler struct {
	svc *service.FeedService
}

func NewFeedHandler(svc *service.FeedService) *FeedHandler {
	return &FeedHandler{svc: svc}
}

// Feed handles GET /api/feed?sessionId=&depth=&page=
func (h *FeedHandler) Feed(c fiber.Ctx) error {
	sessionID := fiber.Query[string](c, "sessionId")
	if sessionID == "" {
		sessionID = c.Get("X-Session-ID")
	}
	depth := fiber.Query[int](c, "depth", 0)
	page := fiber.Query[int](c, "page", 0)

	resp, err := h.svc.Feed(c.Context(), sessionID, depth, page)
	if err != nil {
		return respondError(c, err, "load feed")
	}
	return c.JSON(resp)
}

// Graveyard handles GET /api/graveyard?page=
func (h *FeedHandler) Graveyard(c fiber.Ctx) error {
	resp, err := h.svc.Graveyard(c.Context(), fiber.Query[int](c, "page", 0))
	if err != nil {
		return respondError(c, err, "load graveyard")
	}
	return c.JSON(resp)
}

// Item handles GET /api/media/:mediaId
func (h *FeedHandler) Item(c fiber.Ctx) error {
	item, err := h.svc.Item(c.Context(), c.Params("mediaId"))
	if err != nil {
		return respondError(c, err, "load media")
	}
	return c.JSON(item)
}
