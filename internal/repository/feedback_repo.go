package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

func (r *FeedbackRepo) Create(ctx context.Context, sessionID *string, score int, notes *string) (model.Feedback, error) {
	f := model.Feedback{SessionID: sessionID, Score: score, Notes: notes}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO feedback (session_id, score, notes) VALUES ($1::uuid, $2, $3)
		RETURNING id::text, created_at`,
		sessionID, score, notes).Scan(&f.ID, &f.CreatedAt)
	return f, translate(err)
}

// List returns feedback newest first.
func (r *FeedbackRepo) List(ctx context.Context, offset, limit int) ([]model.Feedback, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, created_at, session_id::text, score, notes
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Feedback{}
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.CreatedAt, &f.SessionID, &f.Score, &f.Notes); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
