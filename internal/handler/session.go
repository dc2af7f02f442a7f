package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/middleware"
	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/service"
)

type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(c fiber.Ctx) error {
	var req model.SessionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return invalidBody(c)
		}
	}
	ua := req.UserAgent
	if ua == "" {
		ua = c.Get(fiber.HeaderUserAgent)
	}

	sess, err := h.svc.Create(c.Context(), middleware.ValidateUserAgent(ua), c.IP())
	if err != nil {
		return respondError(c, err, "create session")
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// RecordView handles POST /api/sessions/:sessionId/views
func (h *SessionHandler) RecordView(c fiber.Ctx) error {
	sessionID, errMsg := middleware.ValidateUUID("sessionId", c.Params("sessionId"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	var req model.ViewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	mediaID, errMsg := middleware.ValidateUUID("mediaId", req.MediaID)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	resp, err := h.svc.RecordView(c.Context(), sessionID, mediaID)
	if err != nil {
		return respondError(c, err, "record view")
	}
	return c.JSON(resp)
}

// Event handles POST /api/events
func (h *SessionHandler) Event(c fiber.Ctx) error {
	var req model.EventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.svc.RecordEvent(c.Context(), req); err != nil {
		return respondError(c, err, "record event")
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// Feedback handles POST /api/feedback
func (h *SessionHandler) Feedback(c fiber.Ctx) error {
	var req model.FeedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	fb, err := h.svc.LeaveFeedback(c.Context(), req)
	if err != nil {
		return respondError(c, err, "save feedback")
	}
	return c.Status(fiber.StatusCreated).JSON(fb)
}

// ListFeedback handles GET /api/admin/feedback
func (h *SessionHandler) ListFeedback(c fiber.Ctx) error {
	p, errMsg := middleware.ParsePage(c)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PAGE", errMsg)
	}
	items, err := h.svc.ListFeedback(c.Context(), p.Offset(), p.PageSize)
	if err != nil {
		return respondError(c, err, "list feedback")
	}
	return c.JSON(fiber.Map{"items": items, "page": p.Page, "pageSize": p.PageSize})
}
