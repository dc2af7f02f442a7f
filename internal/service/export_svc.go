package service

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cursedai/cursed-go/internal/model"
)

const (
	maxExportLimit     = 25
	defaultExportLimit = 25
	exportDateLayout   = "2006-01-02"
)

type ExportStore interface {
	ListForExport(ctx context.Context, rng model.ExportRange, offset, limit int) ([]model.Media, error)
}

// AssetFetcher downloads one asset body.
type AssetFetcher interface {
	Fetch(ctx context.Context, assetURL string) ([]byte, error)
}

// ExportParams is a validated export request.
type ExportParams struct {
	Range    model.ExportRange
	From, To string
	Limit    int
	Page     int
}

// ExportResult summarises one written archive.
type ExportResult struct {
	Filename string
	Items    int
	Assets   int
	Skipped  int
}

type ExportService struct {
	repo         ExportStore
	fetcher      AssetFetcher
	concurrency  int
	assetTimeout time.Duration
	log          zerolog.Logger
}

func NewExportService(repo ExportStore, fetcher AssetFetcher, concurrency int, assetTimeout time.Duration, log zerolog.Logger) *ExportService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ExportService{
		repo:         repo,
		fetcher:      fetcher,
		concurrency:  concurrency,
		assetTimeout: assetTimeout,
		log:          log,
	}
}

// ParseExportRequest validates dates, clamps limit to [1,25] and page to >= 1.
// Dates are inclusive whole UTC days.
func ParseExportRequest(req model.ExportRequest) (ExportParams, error) {
	p := ExportParams{Limit: req.Limit, Page: req.Page}
	if p.Limit == 0 {
		p.Limit = defaultExportLimit
	}
	p.Limit = min(maxExportLimit, max(1, p.Limit))
	p.Page = max(1, p.Page)

	if req.AllTime {
		return p, nil
	}
	if req.From == "" || req.To == "" {
		return ExportParams{}, invalid("MISSING_RANGE", "from and to are required unless allTime is set")
	}
	from, err := time.Parse(exportDateLayout, req.From)
	if err != nil {
		return ExportParams{}, invalid("INVALID_RANGE", "from must be YYYY-MM-DD")
	}
	to, err := time.Parse(exportDateLayout, req.To)
	if err != nil {
		return ExportParams{}, invalid("INVALID_RANGE", "to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return ExportParams{}, invalid("INVALID_RANGE", "to must not be before from")
	}
	p.From, p.To = req.From, req.To
	p.Range = model.ExportRange{
		From: from,
		To:   to.Add(24*time.Hour - time.Millisecond),
	}
	return p, nil
}

// Filename names the archive for p.
func (p ExportParams) Filename() string {
	if p.Range.AllTime() {
		return fmt.Sprintf("cursedai-export-all-time-page-%d-limit-%d.zip", p.Page, p.Limit)
	}
	return fmt.Sprintf("cursedai-export-%s-to-%s-page-%d-limit-%d.zip", p.From, p.To, p.Page, p.Limit)
}

// AssetExtension picks the archive extension from the URL path, falling back on the kind.
func AssetExtension(assetURL string, kind model.Kind) string {
	if u, err := url.Parse(assetURL); err == nil {
		name := path.Base(u.Path)
		if i := strings.LastIndex(name, "."); i >= 0 && i < len(name)-1 {
			return name[i+1:]
		}
	}
	if kind == model.KindVideo {
		return "mp4"
	}
	return "jpg"
}

// Export writes one page of items as a zip archive to w: metadata.json plus
// every asset that could be fetched. Assets are fetched concurrently; a
// failed fetch is logged and skipped.
func (s *ExportService) Export(ctx context.Context, p ExportParams, w io.Writer) (ExportResult, error) {
	res := ExportResult{Filename: p.Filename()}

	items, err := s.repo.ListForExport(ctx, p.Range, (p.Page-1)*p.Limit, p.Limit)
	if err != nil {
		return res, fmt.Errorf("list export items: %w", err)
	}
	res.Items = len(items)

	bodies := make([][]byte, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, m := range items {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.assetTimeout)
			defer cancel()
			body, err := s.fetcher.Fetch(fctx, m.AssetURL)
			if err != nil {
				s.log.Warn().Err(err).Str("media_id", m.ID).Msg("export: asset skipped")
				return nil
			}
			bodies[i] = body
			return nil
		})
	}
	_ = g.Wait()

	zw := zip.NewWriter(w)

	manifest := make([]model.ManifestEntry, len(items))
	for i, m := range items {
		manifest[i] = model.NewManifestEntry(m)
	}
	meta, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return res, err
	}
	f, err := zw.Create("metadata.json")
	if err != nil {
		return res, err
	}
	if _, err := f.Write(meta); err != nil {
		return res, err
	}

	for i, m := range items {
		if bodies[i] == nil {
			res.Skipped++
			continue
		}
		name := fmt.Sprintf("media/%s-%s.%s", m.CreatedAt.UTC().Format(exportDateLayout), m.ID, AssetExtension(m.AssetURL, m.Kind))
		f, err := zw.Create(name)
		if err != nil {
			return res, err
		}
		if _, err := f.Write(bodies[i]); err != nil {
			return res, err
		}
		res.Assets++
	}

	if err := zw.Close(); err != nil {
		return res, err
	}
	s.log.Info().
		Str("file", res.Filename).
		Int("items", res.Items).
		Int("assets", res.Assets).
		Int("skipped", res.Skipped).
		Msg("export written")
	return res, nil
}
