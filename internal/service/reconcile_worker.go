package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

const (
	reconcileBatch = 200
	// fullSweepEvery is how often a pass checks every item instead of only
	// those rated since the previous pass. Deleted ratings leave no row to
	// find, so only a full sweep catches them.
	fullSweepEvery = 24
)

// ReconcileStore finds and repairs items whose aggregates drifted from their
// ratings. A zero since scans every item.
type ReconcileStore interface {
	ListDrifted(ctx context.Context, since time.Time, limit int) ([]string, error)
	Reconcile(ctx context.Context, id string,
		rebuild func(model.Reputation, model.Moments) model.Reputation) (repository.Reconciled, error)
}

// Rebuild recomputes a reputation from authoritative moments. The automatic
// graveyard rule applies as it does for a new rating.
func Rebuild(cur model.Reputation, m model.Moments) model.Reputation {
	if cur.Status == "" {
		cur.Status = model.StatusActive
	}
	score := Score(m)
	confidence := Confidence(m.Count)
	return model.Reputation{
		Moments:    m,
		Score:      score,
		Confidence: confidence,
		Status:     AutoTransition(cur.Status, score, confidence),
	}
}

// ReconcileWorker periodically repairs drifted reputation aggregates, e.g. after
// ratings were deleted by hand.
type ReconcileWorker struct {
	store    ReconcileStore
	obs      Observer
	interval time.Duration
	passes   int
	now      func() time.Time
	log      zerolog.Logger
}

func NewReconcileWorker(store ReconcileStore, obs Observer, interval time.Duration, log zerolog.Logger) *ReconcileWorker {
	if obs == nil {
		obs = nopObserver{}
	}
	return &ReconcileWorker{store: store, obs: obs, interval: interval, now: time.Now, log: log}
}

// MomentsDecreased reports whether next lowers any stored moment. Ratings are
// never retracted, so this only happens when rows were deleted by hand.
func MomentsDecreased(prev, next model.Moments) bool {
	return next.Count < prev.Count || next.Sum < prev.Sum || next.SumSq < prev.SumSq
}

// since returns the lower bound on rating time for the next pass.
func (w *ReconcileWorker) since() time.Time {
	defer func() { w.passes++ }()
	if w.interval <= 0 || w.passes%fullSweepEvery == 0 {
		return time.Time{}
	}
	return w.now().Add(-2 * w.interval)
}

// Start runs a pass every interval until ctx is cancelled.
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("reconcile worker starting")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("reconcile pass failed")
			}
		case <-ctx.Done():
			w.log.Info().Msg("reconcile worker stopping")
			return
		}
	}
}

// RunOnce repairs one batch of drifted items and returns how many were fixed.
// The first pass and every fullSweepEvery-th pass after it check all items;
// the others only items rated within the last two intervals.
func (w *ReconcileWorker) RunOnce(ctx context.Context) (int, error) {
	since := w.since()
	ids, err := w.store.ListDrifted(ctx, since, reconcileBatch)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, id := range ids {
		res, err := w.store.Reconcile(ctx, id, Rebuild)
		if err != nil {
			if ctx.Err() != nil {
				return fixed, ctx.Err()
			}
			w.log.Warn().Err(err).Str("media_id", id).Msg("reconcile: item skipped")
			continue
		}
		if MomentsDecreased(res.Prev.Moments, res.Next.Moments) {
			w.log.Warn().Str("media_id", id).
				Int64("prev_count", res.Prev.Count).Int64("count", res.Next.Count).
				Int64("prev_sum", res.Prev.Sum).Int64("sum", res.Next.Sum).
				Msg("reconcile: rating moments decreased, ratings were deleted outside the API")
		}
		if res.Prev.Status != model.StatusGraveyard && res.Next.Status == model.StatusGraveyard {
			w.obs.ObserveGraveyard("auto")
			w.log.Info().Str("media_id", id).Float64("score", res.Next.Score).Msg("media entered graveyard")
		}
		fixed++
	}

	if fixed > 0 {
		w.log.Info().Int("fixed", fixed).Int("drifted", len(ids)).Bool("full", since.IsZero()).Msg("reconcile pass complete")
	}
	return fixed, nil
}
