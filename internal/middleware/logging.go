package middleware

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/pkg/hash"
)

// Logger is the package-level zerolog logger used throughout the application.
var Logger = zerolog.Nop()

// NewLogger builds a JSON logger tagged with the service name. An empty or
// unknown level means info.
func NewLogger(w io.Writer, level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// InitLogger points Logger at stdout and fixes the global field formats.
func InitLogger(level, service string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true
	Logger = NewLogger(os.Stdout, level, service)
}

// Component returns a child of Logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// placeholders maps a collection segment to the placeholder logged for the id after it.
var placeholders = map[string]string{
	"sessions": ":sessionId",
	"media":    ":mediaId",
	"reports":  ":reportId",
	"users":    ":userId",
	"settings": ":key",
}

// SanitizePath replaces ids that follow a collection segment with placeholders
// so session ids never end up in logs.
func SanitizePath(path string) string {
	if strings.HasPrefix(path, "/media/") {
		return "/media/*"
	}
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		ph, ok := placeholders[parts[i-1]]
		if !ok || parts[i] == "" || parts[i] == "batch" {
			continue
		}
		parts[i] = ph
		i++
	}
	return strings.Join(parts, "/")
}

// NewRequestLogger logs one line per request. Raw IPs are hashed, ids are
// replaced by placeholders and health probes only show at debug level.
func NewRequestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		path := SanitizePath(c.Path())

		var evt *zerolog.Event
		switch {
		case status >= 500:
			evt = Logger.Error()
		case status >= 400:
			evt = Logger.Warn()
		case strings.HasPrefix(path, "/health/") || path == "/metrics":
			evt = Logger.Debug()
		default:
			evt = Logger.Info()
		}

		evt.
			Str("request_id", requestid.FromContext(c)).
			Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Str("ip_hash", hash.Short(c.IP())).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")
		return err
	}
}
