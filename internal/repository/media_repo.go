package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

const mediaColumns = `id::text, created_at, kind, asset_url, caption, origin, model_name, prompt, year,
	ai_generated, uploader_id, size_bytes, rating_count, rating_sum, rating_sum_sq,
	score, confidence, status, is_hidden`

type MediaRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRepo(pool *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{pool: pool}
}

func scanMedia(s scanner) (model.Media, error) {
	var m model.Media
	err := s.Scan(
		&m.ID, &m.CreatedAt, &m.Kind, &m.AssetURL, &m.Caption, &m.Origin, &m.ModelName, &m.Prompt, &m.Year,
		&m.AIGenerated, &m.UploaderID, &m.SizeBytes, &m.Count, &m.Sum, &m.SumSq,
		&m.Score, &m.Confidence, &m.Status, &m.Hidden,
	)
	return m, err
}

func collectMedia(rows pgx.Rows) ([]model.Media, error) {
	defer rows.Close()
	items := []model.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// ApplyRating records one rating and folds it into the item's reputation in a
// single transaction. The media row is locked first, so concurrent ratings of
// the same item are applied one after another. The unique (session_id,
// media_id) constraint rejects a second rating from the same session.
func (r *MediaRepo) ApplyRating(ctx context.Context, sessionID, mediaID string, value int,
	recompute func(model.Reputation) model.Reputation) (prev, next model.Reputation, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return prev, next, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		SELECT rating_count, rating_sum, rating_sum_sq, score, confidence, status
		FROM media WHERE id = $1
		FOR UPDATE`, mediaID).
		Scan(&prev.Count, &prev.Sum, &prev.SumSq, &prev.Score, &prev.Confidence, &prev.Status)
	if err != nil {
		return prev, next, translate(err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO ratings (session_id, media_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, media_id) DO NOTHING`,
		sessionID, mediaID, value)
	if err != nil {
		return prev, next, translate(err)
	}
	if tag.RowsAffected() == 0 {
		return prev, next, ErrConflict
	}

	next = recompute(prev)

	_, err = tx.Exec(ctx, `
		UPDATE media
		SET rating_count = $2, rating_sum = $3, rating_sum_sq = $4,
		    score = $5, confidence = $6, status = $7
		WHERE id = $1`,
		mediaID, next.Count, next.Sum, next.SumSq, next.Score, next.Confidence, string(next.Status))
	if err != nil {
		return prev, next, err
	}

	return prev, next, tx.Commit(ctx)
}

// ListFeed returns one page of visible items that clear the given thresholds.
// Unrated items are always included. Newest first, id breaks ties.
func (r *MediaRepo) ListFeed(ctx context.Context, q model.FeedQuery) ([]model.Media, error) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE is_hidden = false AND status = 'active'
		  AND (rating_count = 0 OR (score >= $1 AND confidence >= $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, q.MinScore, q.MinConfidence, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	return collectMedia(rows)
}

// ListGraveyard returns one page of visible graveyard items, worst first.
func (r *MediaRepo) ListGraveyard(ctx context.Context, offset, limit int) ([]model.Media, error) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE is_hidden = false AND status = 'graveyard'
		ORDER BY score ASC, created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectMedia(rows)
}

// FindByID returns a single item regardless of visibility.
func (r *MediaRepo) FindByID(ctx context.Context, id string) (model.Media, error) {
	m, err := scanMedia(r.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	return m, translate(err)
}

// List returns items for the moderation console.
func (r *MediaRepo) List(ctx context.Context, f model.MediaFilter) ([]model.Media, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if f.Hidden != nil {
		conds = append(conds, "is_hidden = "+arg(*f.Hidden))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg(s)
		conds = append(conds, fmt.Sprintf(
			"(caption ILIKE '%%' || %[1]s || '%%' OR model_name ILIKE '%%' || %[1]s || '%%' OR prompt ILIKE '%%' || %[1]s || '%%' OR id::text = %[1]s)", p))
	}

	query := `SELECT ` + mediaColumns + ` FROM media`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectMedia(rows)
}

// Update applies patch to one item. check sees the locked current row and may veto the change.
func (r *MediaRepo) Update(ctx context.Context, id string, patch model.MediaPatch, check func(model.Media) error) (model.Media, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Media{}, err
	}
	defer tx.Rollback(ctx)

	m, err := applyMediaPatch(ctx, tx, id, patch, check)
	if err != nil {
		return model.Media{}, err
	}
	return m, tx.Commit(ctx)
}

// BatchUpdate applies the same patch to several items atomically. Ids that do
// not exist are returned in missing; any vetoed item aborts the whole batch.
func (r *MediaRepo) BatchUpdate(ctx context.Context, ids []string, patch model.MediaPatch,
	check func(model.Media) error) (updated []model.Media, missing []string, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		m, err := applyMediaPatch(ctx, tx, id, patch, check)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("update %s: %w", id, err)
		}
		updated = append(updated, m)
	}
	return updated, missing, tx.Commit(ctx)
}

// applyMediaPatch locks the row, runs check against it and writes the non-nil
// fields of patch, all inside tx.
func applyMediaPatch(ctx context.Context, tx pgx.Tx, id string, patch model.MediaPatch, check func(model.Media) error) (model.Media, error) {
	cur, err := scanMedia(tx.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return model.Media{}, translate(err)
	}
	if check != nil {
		if err := check(cur); err != nil {
			return model.Media{}, err
		}
	}

	args := []any{id}
	var sets []string
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Hidden != nil {
		set("is_hidden", *patch.Hidden)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Caption != nil {
		set("caption", *patch.Caption)
	}
	if patch.ModelName != nil {
		set("model_name", *patch.ModelName)
	}
	if patch.Prompt != nil {
		set("prompt", *patch.Prompt)
	}
	if patch.Year != nil {
		set("year", *patch.Year)
	}
	if patch.AIGenerated != nil {
		set("ai_generated", *patch.AIGenerated)
	}
	if patch.Origin != nil {
		set("origin", *patch.Origin)
	}
	if len(sets) == 0 {
		return cur, nil
	}

	query := `UPDATE media SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + mediaColumns
	return scanMedia(tx.QueryRow(ctx, query, args...))
}

// Create inserts a new active, unrated item.
func (r *MediaRepo) Create(ctx context.Context, m model.Media) (model.Media, error) {
	query := `
		INSERT INTO media (kind, asset_url, caption, origin, model_name, prompt, year, ai_generated, uploader_id, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + mediaColumns

	return scanMedia(r.pool.QueryRow(ctx, query,
		string(m.Kind), m.AssetURL, m.Caption, m.Origin, m.ModelName, m.Prompt, m.Year,
		m.AIGenerated, m.UploaderID, m.SizeBytes,
	))
}

// Count returns the number of stored items.
func (r *MediaRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media`).Scan(&n)
	return n, err
}

// ListForExport returns one page of items created within rng, oldest first.
func (r *MediaRepo) ListForExport(ctx context.Context, rng model.ExportRange, offset, limit int) ([]model.Media, error) {
	var conds []string
	var args []any
	if !rng.From.IsZero() {
		args = append(args, rng.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !rng.To.IsZero() {
		args = append(args, rng.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := `SELECT ` + mediaColumns + ` FROM media`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectMedia(rows)
}
