package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// List returns every stored setting, recognised or not.
func (r *SettingsRepo) List(ctx context.Context) ([]model.SettingRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, value::text, updated_at, updated_by
		FROM app_settings
		ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []model.SettingRow{}
	for rows.Next() {
		var s model.SettingRow
		var raw string
		if err := rows.Scan(&s.Key, &raw, &s.UpdatedAt, &s.UpdatedBy); err != nil {
			return nil, err
		}
		s.Value = json.RawMessage(raw)
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// Upsert writes one setting value.
func (r *SettingsRepo) Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (model.SettingRow, error) {
	s := model.SettingRow{Key: key, Value: value, UpdatedBy: &updatedBy}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO app_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2::jsonb, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING updated_at`,
		key, string(value), updatedBy).Scan(&s.UpdatedAt)
	return s, err
}
