package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cursedai/cursed-go/internal/model"
)

const reportColumns = `r.id::text, r.created_at, r.session_id::text, r.media_id::text, r.reason, r.details,
	r.media_asset_url, r.media_kind, r.media_caption, r.status, r.resolved_at, r.resolved_by, r.resolution_note`

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func reportDest(rep *model.Report) []any {
	return []any{
		&rep.ID, &rep.CreatedAt, &rep.SessionID, &rep.MediaID, &rep.Reason, &rep.Details,
		&rep.MediaAssetURL, &rep.MediaKind, &rep.MediaCaption, &rep.Status,
		&rep.ResolvedAt, &rep.ResolvedBy, &rep.ResolutionNote,
	}
}

// Create files a report and snapshots the item's asset, kind and caption so
// the report stays readable after the item is deleted.
func (r *ReportRepo) Create(ctx context.Context, sessionID, mediaID, reason string, details *string) (model.Report, error) {
	query := `
		WITH r AS (
			INSERT INTO reports (session_id, media_id, reason, details, media_asset_url, media_kind, media_caption)
			SELECT $1::uuid, m.id, $3, $4, m.asset_url, m.kind, m.caption
			FROM media m WHERE m.id = $2
			RETURNING *
		)
		SELECT ` + reportColumns + ` FROM r`

	var rep model.Report
	err := r.pool.QueryRow(ctx, query, sessionID, mediaID, reason, details).Scan(reportDest(&rep)...)
	return rep, translate(err)
}

// List returns reports newest first, joined with the live state of their item.
func (r *ReportRepo) List(ctx context.Context, f model.ReportFilter) ([]model.ReportWithMedia, error) {
	query := `
		SELECT ` + reportColumns + `,
		       m.id::text, m.asset_url, m.kind, m.caption, m.origin, m.status, m.is_hidden
		FROM reports r
		LEFT JOIN media m ON m.id = r.media_id
		WHERE ($1 = '' OR r.status = $1)
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []model.ReportWithMedia{}
	for rows.Next() {
		var item model.ReportWithMedia
		var (
			id, assetURL, kind, status *string
			caption, origin            *string
			hidden                     *bool
		)
		dest := append(reportDest(&item.Report), &id, &assetURL, &kind, &caption, &origin, &status, &hidden)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if id != nil {
			item.Media = &model.ReportedMedia{
				ID:       *id,
				AssetURL: deref(assetURL),
				Kind:     model.Kind(deref(kind)),
				Caption:  caption,
				Origin:   origin,
				Status:   model.Status(deref(status)),
				Hidden:   hidden != nil && *hidden,
			}
		}
		reports = append(reports, item)
	}
	return reports, rows.Err()
}

// ResolveInput describes one report resolution.
type ResolveInput struct {
	ReportID   string
	ResolvedBy string
	Note       *string
	// MediaID overrides the report's own media reference when set.
	MediaID string
	Patch   *model.MediaPatch
	Check   func(model.Media) error
}

// Resolve marks a report resolved and applies the optional media patch in the
// same transaction. A media row that no longer exists is reported as missing
// and does not block the resolution.
func (r *ReportRepo) Resolve(ctx context.Context, in ResolveInput) (model.ResolveResult, error) {
	var res model.ResolveResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer tx.Rollback(ctx)

	query := `
		WITH r AS (
			UPDATE reports
			SET status = 'resolved', resolved_at = NOW(), resolved_by = $2, resolution_note = $3
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + reportColumns + ` FROM r`

	err = tx.QueryRow(ctx, query, in.ReportID, in.ResolvedBy, in.Note).Scan(reportDest(&res.Report)...)
	if err != nil {
		return res, translate(err)
	}

	if in.Patch != nil {
		mediaID := in.MediaID
		if mediaID == "" && res.Report.MediaID != nil {
			mediaID = *res.Report.MediaID
		}
		if mediaID == "" {
			res.MediaMissing = true
		} else {
			_, err := applyMediaPatch(ctx, tx, mediaID, *in.Patch, in.Check)
			switch {
			case errors.Is(err, ErrNotFound):
				res.MediaMissing = true
			case err != nil:
				return res, fmt.Errorf("update media %s: %w", mediaID, err)
			default:
				res.MediaUpdated = true
			}
		}
	}

	return res, tx.Commit(ctx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
