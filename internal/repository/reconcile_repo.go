package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cursedai/cursed-go/internal/model"
)

// Reconciled is one item whose stored aggregates disagreed with its ratings.
type Reconciled struct {
	ID   string
	Prev model.Reputation
	Next model.Reputation
}

const ratingMoments = `
	SELECT COUNT(*), COALESCE(SUM(rating), 0), COALESCE(SUM(rating::bigint * rating), 0)
	FROM ratings WHERE media_id = $1`

// driftedQuery compares stored moments with the ratings aggregate. With a
// since bound only items rated at or after it are checked, using
// idx_ratings_created.
func driftedQuery(since time.Time, limit int) (string, []any) {
	const drifted = `
		SELECT m.id::text
		FROM media m
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS n, COALESCE(SUM(rating), 0) AS s, COALESCE(SUM(rating::bigint * rating), 0) AS sq
			FROM ratings WHERE media_id = m.id
		) agg ON TRUE
		WHERE (m.rating_count, m.rating_sum, m.rating_sum_sq) IS DISTINCT FROM (agg.n, agg.s, agg.sq)`
	if since.IsZero() {
		return drifted + `
		ORDER BY m.created_at
		LIMIT $1`, []any{limit}
	}
	return drifted + `
		  AND m.id IN (SELECT media_id FROM ratings WHERE created_at >= $2)
		ORDER BY m.created_at
		LIMIT $1`, []any{limit, since}
}

// ListDrifted returns up to limit item ids whose stored moments differ from
// the ratings table. A zero since checks every item.
func (r *MediaRepo) ListDrifted(ctx context.Context, since time.Time, limit int) ([]string, error) {
	sql, args := driftedQuery(since, limit)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Reconcile rebuilds one item's reputation from its ratings under the row lock
// that ApplyRating takes, so it never races a concurrent rating.
func (r *MediaRepo) Reconcile(ctx context.Context, id string,
	rebuild func(model.Reputation, model.Moments) model.Reputation) (Reconciled, error) {
	out := Reconciled{ID: id}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		p := &out.Prev
		err := tx.QueryRow(ctx, `
			SELECT rating_count, rating_sum, rating_sum_sq, score, confidence, status
			FROM media WHERE id = $1
			FOR UPDATE`, id).
			Scan(&p.Count, &p.Sum, &p.SumSq, &p.Score, &p.Confidence, &p.Status)
		if err != nil {
			return translate(err)
		}

		var m model.Moments
		if err := tx.QueryRow(ctx, ratingMoments, id).Scan(&m.Count, &m.Sum, &m.SumSq); err != nil {
			return err
		}
		out.Next = rebuild(out.Prev, m)

		_, err = tx.Exec(ctx, `
			UPDATE media
			SET rating_count = $2, rating_sum = $3, rating_sum_sq = $4,
			    score = $5, confidence = $6, status = $7
			WHERE id = $1`,
			id, out.Next.Count, out.Next.Sum, out.Next.SumSq, out.Next.Score, out.Next.Confidence, string(out.Next.Status))
		return err
	})
	return out, err
}
