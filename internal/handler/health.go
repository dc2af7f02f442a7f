package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool and *storage.Disk.
type Pinger interface {
	Ping(ctx context.Context) error
}

// check is one dependency's entry in the readiness report.
type check struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthHandler struct {
	pool    Pinger
	rdb     *redis.Client
	media   Pinger
	version string
	startAt time.Time
}

// NewHealthHandler builds the probes. rdb and media may be nil.
func NewHealthHandler(pool Pinger, rdb *redis.Client, media Pinger, version string) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		rdb:     rdb,
		media:   media,
		version: version,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. Postgres down is fatal; Redis or media
// storage down only degrades.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]check{
		"database": probe(ctx, h.pool),
		"media":    {Status: "disabled"},
		"redis":    {Status: "disabled"},
	}
	if h.media != nil {
		checks["media"] = probe(ctx, h.media)
	}
	if h.rdb != nil {
		checks["redis"] = probe(ctx, redisPinger{h.rdb})
	}

	overall, status := "healthy", fiber.StatusOK
	switch {
	case checks["database"].Status != "up":
		overall, status = "unhealthy", fiber.StatusServiceUnavailable
	case checks["redis"].Status == "down", checks["media"].Status == "down":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        h.version,
	})
}

type redisPinger struct{ rdb *redis.Client }

func (r redisPinger) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }

func probe(ctx context.Context, p Pinger) check {
	if p == nil {
		return check{Status: "down", Error: "not configured"}
	}
	start := time.Now()
	err := p.Ping(ctx)
	c := check{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		c.Status, c.Error = "down", "connection failed"
	}
	return c
}
