package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// ParseOrigins splits a comma-separated origin list. Empty input or a "*"
// entry means any origin and yields nil.
func ParseOrigins(list string) []string {
	var origins []string
	for _, o := range strings.Split(list, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return nil
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// NewCORS returns the CORS policy for the web client and the admin console.
// Credentials are only allowed for an explicit origin list.
func NewCORS(corsOrigins string) fiber.Handler {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodPut,
			fiber.MethodPatch, fiber.MethodDelete, fiber.MethodOptions,
		},
		AllowHeaders: []string{
			fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept,
			fiber.HeaderAuthorization, "X-Session-ID",
		},
		ExposeHeaders: []string{
			fiber.HeaderContentDisposition, fiber.HeaderRetryAfter,
			"X-Export-Items", "X-Export-Skipped",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		},
		MaxAge: 86400,
	}
	if origins := ParseOrigins(corsOrigins); origins != nil {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
