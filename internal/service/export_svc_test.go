package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cursedai/cursed-go/internal/model"
)

func TestParseExportRequest(t *testing.T) {
	p, err := ParseExportRequest(model.ExportRequest{From: "2026-02-01", To: "2026-02-03", Limit: 99, Page: 0})
	require.NoError(t, err)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), p.Range.From)
	assert.Equal(t, time.Date(2026, 2, 3, 23, 59, 59, 999_000_000, time.UTC), p.Range.To)
	assert.Equal(t, "cursedai-export-2026-02-01-to-2026-02-03-page-1-limit-25.zip", p.Filename())

	p, err = ParseExportRequest(model.ExportRequest{AllTime: true, Limit: -4, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Limit)
	assert.True(t, p.Range.AllTime())
	assert.Equal(t, "cursedai-export-all-time-page-3-limit-1.zip", p.Filename())

	p, err = ParseExportRequest(model.ExportRequest{AllTime: true})
	require.NoError(t, err)
	assert.Equal(t, 25, p.Limit, "missing limit defaults to the maximum")

	for _, req := range []model.ExportRequest{
		{From: "2026-02-01"},
		{From: "02/01/2026", To: "2026-02-03"},
		{From: "2026-02-05", To: "2026-02-03"},
	} {
		_, err := ParseExportRequest(req)
		_, ok := IsValidation(err)
		assert.True(t, ok, "request %+v should be rejected", req)
	}
}

func TestAssetExtension(t *testing.T) {
	tests := []struct {
		url  string
		kind model.Kind
		want string
	}{
		{"https://cdn.example/uploads/u/abc.png", model.KindImage, "png"},
		{"https://cdn.example/uploads/u/clip.webm?token=1", model.KindVideo, "webm"},
		{"https://cdn.example/uploads/u/noext", model.KindVideo, "mp4"},
		{"https://cdn.example/uploads/u/noext", model.KindImage, "jpg"},
		{"::not a url", model.KindImage, "jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AssetExtension(tt.url, tt.kind), tt.url)
	}
}

type stubExportStore struct {
	items  []model.Media
	offset int
	limit  int
}

func (s *stubExportStore) ListForExport(_ context.Context, _ model.ExportRange, offset, limit int) ([]model.Media, error) {
	s.offset, s.limit = offset, limit
	return s.items, nil
}

type stubFetcher struct {
	mu       sync.Mutex
	bodies   map[string][]byte
	inFlight int
	peak     int
}

func (f *stubFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	f.mu.Lock()
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	body, ok := f.bodies[u]
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("404")
	}
	return body, nil
}

func TestExportService_WritesArchive(t *testing.T) {
	created := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	items := []model.Media{
		{ID: "a", CreatedAt: created, Kind: model.KindImage, AssetURL: "https://cdn/a.png"},
		{ID: "b", CreatedAt: created, Kind: model.KindVideo, AssetURL: "https://cdn/b"},
		{ID: "c", CreatedAt: created, Kind: model.KindImage, AssetURL: "https://cdn/missing.jpg"},
		{ID: "d", CreatedAt: created, Kind: model.KindImage, AssetURL: "https://cdn/d.gif"},
	}
	store := &stubExportStore{items: items}
	fetcher := &stubFetcher{bodies: map[string][]byte{
		"https://cdn/a.png": []byte("png"),
		"https://cdn/b":     []byte("mp4"),
		"https://cdn/d.gif": []byte("gif"),
	}}
	svc := NewExportService(store, fetcher, 2, time.Second, zerolog.Nop())

	p, err := ParseExportRequest(model.ExportRequest{AllTime: true, Limit: 4, Page: 2})
	require.NoError(t, err)

	var buf bytes.Buffer
	res, err := svc.Export(context.Background(), p, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, store.offset)
	assert.Equal(t, 4, store.limit)
	assert.Equal(t, ExportResult{Filename: "cursedai-export-all-time-page-2-limit-4.zip", Items: 4, Assets: 3, Skipped: 1}, res)
	assert.LessOrEqual(t, fetcher.peak, 2, "fetch concurrency is bounded")

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = data
	}

	assert.Equal(t, []byte("png"), files["media/2026-02-02-a.png"])
	assert.Equal(t, []byte("mp4"), files["media/2026-02-02-b.mp4"])
	assert.Contains(t, files, "media/2026-02-02-d.gif")
	assert.NotContains(t, files, "media/2026-02-02-c.jpg")

	var manifest []map[string]any
	require.NoError(t, json.Unmarshal(files["metadata.json"], &manifest))
	require.Len(t, manifest, 4, "metadata lists skipped items too")
	assert.Equal(t, "a", manifest[0]["id"])
	assert.Contains(t, manifest[0], "rating_sum_sq")
}
