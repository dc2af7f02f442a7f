package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Record appends one analytics event. Events are write-only from the API.
func (r *EventRepo) Record(ctx context.Context, e model.Event) error {
	var meta any
	if len(e.Meta) > 0 {
		meta = string(e.Meta)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analytics_events (session_id, path, event_type, meta)
		VALUES ($1::uuid, $2, $3, $4::jsonb)`,
		e.SessionID, e.Path, string(e.Type), meta)
	return translate(err)
}
