package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

type WipeRepo struct {
	pool *pgxpool.Pool
}

func NewWipeRepo(pool *pgxpool.Pool) *WipeRepo {
	return &WipeRepo{pool: pool}
}

// wipeStep is one DELETE of a bulk wipe and the counter it feeds.
type wipeStep struct {
	table string
	sql   string
}

// wipePlan lists the deletes for mode, dependents first. media_only removes
// the reports that point at media; media_and_ratings removes every report,
// orphaned ones included.
func wipePlan(mode model.WipeMode) []wipeStep {
	reports := wipeStep{"reports", `DELETE FROM reports WHERE media_id IS NOT NULL`}
	if mode == model.WipeMediaAndRatings {
		reports.sql = `DELETE FROM reports`
	}
	return []wipeStep{
		reports,
		{"ratings", `DELETE FROM ratings`},
		{"media", `DELETE FROM media`},
	}
}

// Wipe deletes every media item and its dependents in one transaction.
func (r *WipeRepo) Wipe(ctx context.Context, mode model.WipeMode) (model.WipeResult, error) {
	var res model.WipeResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer tx.Rollback(ctx)

	for _, step := range wipePlan(mode) {
		tag, err := tx.Exec(ctx, step.sql)
		if err != nil {
			return model.WipeResult{}, err
		}
		switch step.table {
		case "reports":
			res.Reports = tag.RowsAffected()
		case "ratings":
			res.Ratings = tag.RowsAffected()
		case "media":
			res.Media = tag.RowsAffected()
		}
	}

	return res, tx.Commit(ctx)
}
