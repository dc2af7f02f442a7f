package middleware

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// Field length limits matching database schema constraints.
const (
	MaxUserAgentLen = 256 // sessions.user_agent VARCHAR(256)
	MaxPathLen      = 512 // analytics_events.path VARCHAR(512)
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateUUID checks that id is a UUID and returns its canonical form.
func ValidateUUID(field, id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", field + " is required"
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", field + " must be a UUID"
	}
	return u.String(), ""
}

// ValidateUserAgent trims and truncates user agent to DB limits, never
// splitting a multi-byte rune.
func ValidateUserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if len(ua) <= MaxUserAgentLen {
		return ua
	}
	ua = ua[:MaxUserAgentLen]
	for len(ua) > 0 && !utf8.ValidString(ua) {
		ua = ua[:len(ua)-1]
	}
	return ua
}

// Page is a parsed 1-based admin listing window.
type Page struct {
	Page     int
	PageSize int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }

// ParsePage reads ?page (1-based) and ?pageSize, clamping pageSize to MaxPageSize.
func ParsePage(c fiber.Ctx) (Page, string) {
	p := Page{
		Page:     fiber.Query[int](c, "page", 1),
		PageSize: fiber.Query[int](c, "pageSize", DefaultPageSize),
	}
	if p.Page < 1 {
		return Page{}, "page must be at least 1"
	}
	if p.PageSize < 1 {
		return Page{}, "pageSize must be at least 1"
	}
	p.PageSize = min(p.PageSize, MaxPageSize)
	return p, ""
}

// ParseOptionalBool reads a tri-state boolean query parameter.
func ParseOptionalBool(c fiber.Ctx, key string) (*bool, string) {
	switch v := strings.ToLower(c.Query(key)); v {
	case "":
		return nil, ""
	case "true", "1":
		b := true
		return &b, ""
	case "false", "0":
		b := false
		return &b, ""
	default:
		return nil, fmt.Sprintf("%s must be true or false", key)
	}
}
