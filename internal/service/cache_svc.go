package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
)

// SettingsCacheTTL bounds how stale a cached settings snapshot may be.
const SettingsCacheTTL = 5 * time.Second

const settingsKey = "settings:snapshot"

// CacheService owns the Redis connection shared by the settings cache and the
// scroll-session tracker.
type CacheService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string, log zerolog.Logger) *CacheService {
	if redisURL == "" {
		log.Warn().Msg("redis: no URL configured, caching and scroll tracking disabled")
		return &CacheService{log: log}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching and scroll tracking disabled")
		return &CacheService{log: log}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching and scroll tracking disabled")
		_ = rdb.Close()
		return &CacheService{log: log}
	}

	log.Info().Msg("redis: connected")
	return &CacheService{rdb: rdb, log: log}
}

// NewCacheServiceWithClient wraps an existing client. A nil client disables caching.
func NewCacheServiceWithClient(rdb *redis.Client, log zerolog.Logger) *CacheService {
	return &CacheService{rdb: rdb, log: log}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// Enabled reports whether a Redis connection is available.
func (c *CacheService) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetSettings returns the cached settings snapshot, or false on a miss.
func (c *CacheService) GetSettings(ctx context.Context) (model.Settings, bool) {
	if !c.Enabled() {
		return model.Settings{}, false
	}
	data, err := c.rdb.Get(ctx, settingsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("cache: get settings failed")
		}
		return model.Settings{}, false
	}
	var s model.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Settings{}, false
	}
	return s, true
}

// SetSettings stores a settings snapshot.
func (c *CacheService) SetSettings(ctx context.Context, s model.Settings) {
	if !c.Enabled() {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, settingsKey, b, SettingsCacheTTL).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache: set settings failed")
	}
}

// InvalidateSettings drops the cached snapshot (called after every settings write).
func (c *CacheService) InvalidateSettings(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Del(ctx, settingsKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache: invalidate settings failed")
	}
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
