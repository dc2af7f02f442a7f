package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// Limit is a fixed-window quota keyed by Key.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Key    func(c fiber.Ctx) string
}

// Counter counts hits per key within a window starting at the first hit.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// RateLimiter enforces one Limit against a Counter.
type RateLimiter struct {
	limit   Limit
	counter Counter
}

func NewRateLimiter(limit Limit, counter Counter) *RateLimiter {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	return &RateLimiter{limit: limit, counter: counter}
}

// Allow records a hit for key and reports whether it is within the limit.
// Counter failures let the request through.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time) {
	n, resetAt, err := rl.counter.Hit(ctx, rl.limit.Name+":"+key, rl.limit.Window)
	if err != nil {
		Logger.Warn().Err(err).Str("limit", rl.limit.Name).Msg("rate limit counter unavailable")
		return true, rl.limit.Max, time.Now().Add(rl.limit.Window)
	}
	return n <= rl.limit.Max, max(rl.limit.Max-n, 0), resetAt
}

// Handler rejects requests over the limit with 429 RATE_LIMITED.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		ok, remaining, resetAt := rl.Allow(c.Context(), rl.limit.Key(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if ok {
			return c.Next()
		}

		retryAfter := int(time.Until(resetAt).Seconds()) + 1
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": fiber.Map{
				"code":       "RATE_LIMITED",
				"message":    "Too many requests. Try again in " + strconv.Itoa(retryAfter) + " seconds.",
				"retryAfter": retryAfter,
			},
		})
	}
}

type window struct {
	count int
	end   time.Time
}

// MemoryCounter keeps windows in process memory. Expired windows are swept
// lazily once per minute on the hit path.
type MemoryCounter struct {
	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*window), now: time.Now}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, d time.Duration) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) > time.Minute {
		for k, w := range m.windows {
			if now.After(w.end) {
				delete(m.windows, k)
			}
		}
		m.lastSweep = now
	}

	w, ok := m.windows[key]
	if !ok || now.After(w.end) {
		w = &window{end: now.Add(d)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.end, nil
}

// RedisCounter shares windows between instances with INCR + PEXPIRE.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Hit(ctx context.Context, key string, d time.Duration) (int, time.Time, error) {
	key = "ratelimit:" + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	left := ttl.Val()
	if left < 0 {
		// first hit in this window
		if err := r.rdb.PExpire(ctx, key, d).Err(); err != nil {
			return 0, time.Time{}, err
		}
		left = d
	}
	return int(incr.Val()), time.Now().Add(left), nil
}

// KeyByIP returns the client IP as the rate limit key.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyBySession keys anonymous traffic on the X-Session-ID header, falling back to IP.
func KeyBySession(c fiber.Ctx) string {
	if sid := c.Get("X-Session-ID"); sid != "" {
		return "session:" + sid
	}
	return KeyByIP(c)
}

// KeyByUser keys authenticated traffic on the token subject, falling back to IP.
func KeyByUser(c fiber.Ctx) string {
	if claims, ok := ClaimsFrom(c); ok && claims.Subject != "" {
		return "user:" + claims.Subject
	}
	return KeyByIP(c)
}

// Route quotas.
var (
	FeedLimit    = Limit{Name: "feed", Max: 120, Window: time.Minute, Key: KeyByIP}
	SessionLimit = Limit{Name: "session", Max: 20, Window: time.Minute, Key: KeyByIP}
	RatingLimit  = Limit{Name: "rating", Max: 60, Window: time.Minute, Key: KeyBySession}
	ReportLimit  = Limit{Name: "report", Max: 10, Window: time.Minute, Key: KeyBySession}
	UploadLimit  = Limit{Name: "upload", Max: 20, Window: time.Hour, Key: KeyByUser}
	ExportLimit  = Limit{Name: "export", Max: 30, Window: time.Hour, Key: KeyByUser}
)

// Limiters builds route limiters over one shared counter. With a Redis
// client the quotas hold across instances.
type Limiters struct {
	counter Counter
}

func NewLimiters(rdb *redis.Client) *Limiters {
	if rdb == nil {
		return &Limiters{counter: NewMemoryCounter()}
	}
	return &Limiters{counter: NewRedisCounter(rdb)}
}

// For returns the middleware enforcing l.
func (ls *Limiters) For(l Limit) fiber.Handler {
	return NewRateLimiter(l, ls.counter).Handler()
}
