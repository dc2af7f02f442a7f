package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Create stores a new anonymous session.
func (r *SessionRepo) Create(ctx context.Context, userAgent, ipHash string) (model.Session, error) {
	s := model.Session{UserAgent: userAgent, IPHash: ipHash}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (user_agent, ip_hash) VALUES ($1, $2)
		RETURNING id::text, created_at`,
		userAgent, ipHash).Scan(&s.ID, &s.CreatedAt)
	return s, err
}

// Exists reports whether the session id is known.
func (r *SessionRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}
