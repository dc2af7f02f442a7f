package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/cursedai/cursed-go/internal/middleware"
	"github.com/cursedai/cursed-go/internal/service"
)

// respondError maps a service error onto the API error envelope.
// action names the failed operation in the 500 message.
func respondError(c fiber.Ctx, err error, action string) error {
	if ve, ok := service.IsValidation(err); ok {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, ve.Code, ve.Message)
	}
	switch {
	case errors.Is(err, service.ErrDuplicateRating):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE_RATING", "This session already rated the item")
	case errors.Is(err, service.ErrItemNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Media not found")
	case errors.Is(err, service.ErrSessionNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
	case errors.Is(err, service.ErrReportNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Report not found")
	case errors.Is(err, service.ErrAdminNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Admin not found")
	case errors.Is(err, service.ErrInvalidTransition):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, service.ErrFeatureDisabled):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "FEATURE_DISABLED", "This feature is currently turned off")
	case errors.Is(err, service.ErrUploadLimit):
		return middleware.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "UPLOAD_LIMIT", err.Error())
	case errors.Is(err, service.ErrTrackingUnavailable):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "TRACKING_UNAVAILABLE", "View tracking is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return middleware.ErrorResponse(c, fiber.StatusGatewayTimeout, "TIMEOUT", action+" timed out")
	}

	middleware.Logger.Error().Err(err).Str("path", middleware.SanitizePath(c.Path())).Msg(action + " failed")
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
}

func invalidBody(c fiber.Ctx) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
}

func invalidField(c fiber.Ctx, msg string) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", msg)
}

// adminID returns the token subject of the admin making the request.
func adminID(c fiber.Ctx) string {
	if claims, ok := middleware.ClaimsFrom(c); ok {
		return claims.Subject
	}
	return ""
}
