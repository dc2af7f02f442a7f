//go:build integration

package repository_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cursedai/cursed-go/internal/db"
	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, url, db.PoolOptions{MaxConns: 16, Retries: 1}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, zerolog.Nop()))
	return pool
}

func addOne(value int) func(model.Reputation) model.Reputation {
	return func(cur model.Reputation) model.Reputation {
		v := int64(value)
		cur.Count++
		cur.Sum += v
		cur.SumSq += v * v
		return cur
	}
}

func TestMediaRepo_ApplyRatingConcurrent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	media := repository.NewMediaRepo(pool)
	sessions := repository.NewSessionRepo(pool)

	tests := []struct {
		name        string
		distinct    bool
		wantCount   int64
		wantInserts int64
	}{
		{"same session and item", false, 1, 1},
		{"distinct sessions", true, 20, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := media.Create(ctx, model.Media{Kind: model.KindImage, AssetURL: "/uploads/concurrency.png"})
			require.NoError(t, err)
			t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, m.ID) })

			shared, err := sessions.Create(ctx, "integration", "")
			require.NoError(t, err)

			var inserted, conflicts atomic.Int64
			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < 20; i++ {
				g.Go(func() error {
					sid := shared.ID
					if tt.distinct {
						s, err := sessions.Create(gctx, "integration", "")
						if err != nil {
							return err
						}
						sid = s.ID
					}
					_, _, err := media.ApplyRating(gctx, sid, m.ID, 50, addOne(50))
					switch {
					case err == nil:
						inserted.Add(1)
					case errors.Is(err, repository.ErrConflict):
						conflicts.Add(1)
					default:
						return err
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			assert.Equal(t, tt.wantInserts, inserted.Load())
			assert.Equal(t, 20-tt.wantInserts, conflicts.Load())

			got, err := media.FindByID(ctx, m.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, got.Count, "no lost or duplicated updates")
			assert.Equal(t, tt.wantCount*50, got.Sum)

			var rows int64
			require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE media_id = $1`, m.ID).Scan(&rows))
			assert.Equal(t, tt.wantCount, rows)
		})
	}
}
