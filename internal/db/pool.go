package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

const (
	defaultRetries = 5
	retryInterval  = 2 * time.Second
)

// PoolOptions sizes the connection pool.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
	// Retries is the number of connection attempts; 0 means 5.
	Retries int
}

// queryLogger routes pgx trace events into zerolog. Only warnings and
// errors are emitted, so failed statements show up with their SQL.
func queryLogger(log zerolog.Logger) *tracelog.TraceLog {
	return &tracelog.TraceLog{
		LogLevel: tracelog.LogLevelWarn,
		Logger: tracelog.LoggerFunc(func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
			evt := log.Warn()
			if level == tracelog.LogLevelError {
				evt = log.Error()
			}
			if sql, ok := data["sql"].(string); ok {
				evt = evt.Str("sql", sql)
			}
			if err, ok := data["err"].(error); ok {
				evt = evt.Err(err)
			}
			evt.Msg("pgx: " + msg)
		}),
	}
}

// NewPool connects to Postgres, retrying while the database comes up.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions, log zerolog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = opts.MaxConns
	config.MinConns = opts.MinConns
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute
	config.ConnConfig.Tracer = queryLogger(log)

	maxRetries := opts.Retries
	if maxRetries <= 0 {
		maxRetries = defaultRetries
	}

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info().Int32("max_conns", config.MaxConns).Msg("database connected")
				return pool, nil
			}
			pool.Close()
		}

		log.Warn().Err(err).Int("attempt", attempt).Int("max", maxRetries).Msg("database connection failed")
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}

	return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxRetries, err)
}
