package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

type AdminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

// IsAdmin reports whether userID is on the roster.
func (r *AdminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admin_users WHERE user_id = $1)`, userID).Scan(&ok)
	return ok, err
}

func (r *AdminRepo) List(ctx context.Context) ([]model.AdminUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, email, role, created_at
		FROM admin_users
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []model.AdminUser{}
	for rows.Next() {
		var a model.AdminUser
		if err := rows.Scan(&a.UserID, &a.Email, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// Add inserts or updates a roster entry.
func (r *AdminRepo) Add(ctx context.Context, a model.AdminUser) (model.AdminUser, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO admin_users (user_id, email, role) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, role = EXCLUDED.role
		RETURNING created_at`,
		a.UserID, a.Email, a.Role).Scan(&a.CreatedAt)
	return a, err
}

// Remove deletes a roster entry. Removing an absent entry returns ErrNotFound.
func (r *AdminRepo) Remove(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admin_users WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
