package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cursedai/cursed-go/internal/model"
)

func newRatingFixture(t *testing.T) (*RatingService, *memStore, *countingObserver, string) {
	t.Helper()
	store := newMemStore()
	mediaID := uuid.NewString()
	store.addMedia(model.Media{ID: mediaID})
	obs := newCountingObserver()
	svc := NewRatingService(store, fixedSettings(model.DefaultSettings()), obs, zerolog.Nop())
	return svc, store, obs, mediaID
}

func newSession(store *memStore) string {
	id := uuid.NewString()
	store.mu.Lock()
	store.sessions[id] = true
	store.mu.Unlock()
	return id
}

func TestRatingService_Submit(t *testing.T) {
	svc, store, obs, mediaID := newRatingFixture(t)
	sid := newSession(store)

	res, err := svc.Submit(context.Background(), model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: 5})
	require.NoError(t, err)

	assert.InDelta(t, 605.0/13.0, res.Score, 1e-9)
	assert.InDelta(t, 0.080, res.Confidence, 0.001)
	assert.Equal(t, model.StatusActive, res.Status)
	assert.Equal(t, model.Moments{Count: 1, Sum: 5, SumSq: 25}, store.get(mediaID).Moments)
	assert.Equal(t, 1, obs.ratings["accepted"])
}

func TestRatingService_DuplicateLeavesStateUnchanged(t *testing.T) {
	svc, store, _, mediaID := newRatingFixture(t)
	sid := newSession(store)

	_, err := svc.Submit(context.Background(), model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: 70})
	require.NoError(t, err)
	before := store.get(mediaID).Reputation

	_, err = svc.Submit(context.Background(), model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: 1})
	assert.ErrorIs(t, err, ErrDuplicateRating)
	assert.Equal(t, before, store.get(mediaID).Reputation)
}

func TestRatingService_ValidationBeforeMutation(t *testing.T) {
	svc, store, _, mediaID := newRatingFixture(t)
	sid := newSession(store)

	tests := []struct {
		name string
		req  model.RateRequest
		code string
	}{
		{"zero rating", model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: 0}, "INVALID_RATING"},
		{"too high", model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: 101}, "INVALID_RATING"},
		{"bad media id", model.RateRequest{SessionID: sid, MediaID: "nope", Rating: 50}, "INVALID_ID"},
		{"missing session", model.RateRequest{MediaID: mediaID, Rating: 50}, "MISSING_FIELD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			ve, ok := IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.code, ve.Code)
		})
	}
	assert.Zero(t, store.get(mediaID).Count)
}

func TestRatingService_NotFound(t *testing.T) {
	svc, store, _, mediaID := newRatingFixture(t)
	sid := newSession(store)

	_, err := svc.Submit(context.Background(), model.RateRequest{SessionID: sid, MediaID: uuid.NewString(), Rating: 50})
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = svc.Submit(context.Background(), model.RateRequest{SessionID: uuid.NewString(), MediaID: mediaID, Rating: 50})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRatingService_Disabled(t *testing.T) {
	store := newMemStore()
	mediaID := uuid.NewString()
	store.addMedia(model.Media{ID: mediaID})
	sid := newSession(store)

	settings := model.DefaultSettings()
	settings.RatingsEnabled = false
	svc := NewRatingService(store, fixedSettings(settings), nil, zerolog.Nop())

	_, err := svc.Submit(context.Background(), model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: 50})
	assert.ErrorIs(t, err, ErrFeatureDisabled)
	assert.Zero(t, store.get(mediaID).Count)
}

func TestRatingService_ConcurrentSamePairAcceptsOnce(t *testing.T) {
	svc, store, _, mediaID := newRatingFixture(t)
	sid := newSession(store)

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, duplicates := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: v})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if assert.ErrorIs(t, err, ErrDuplicateRating) {
				duplicates++
			}
		}(i%100 + 1)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, duplicates)
	assert.EqualValues(t, 1, store.get(mediaID).Count)
}

func TestRatingService_ConcurrentSessionsAllCounted(t *testing.T) {
	svc, store, _, mediaID := newRatingFixture(t)

	const sessions = 40
	ids := make([]string, sessions)
	for i := range ids {
		ids[i] = newSession(store)
	}

	var wg sync.WaitGroup
	for i, sid := range ids {
		wg.Add(1)
		go func(sid string, v int) {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), model.RateRequest{SessionID: sid, MediaID: mediaID, Rating: v})
			assert.NoError(t, err)
		}(sid, i+1)
	}
	wg.Wait()

	// sum of 1..40 and sum of squares of 1..40
	got := store.get(mediaID)
	assert.Equal(t, model.Moments{Count: 40, Sum: 820, SumSq: 22140}, got.Moments)
	assert.InDelta(t, Score(got.Moments), got.Score, 1e-12)
}

func TestRatingService_AutoGraveyardObserved(t *testing.T) {
	svc, store, obs, mediaID := newRatingFixture(t)

	var last model.RateResponse
	for i := 0; i < 48; i++ {
		res, err := svc.Submit(context.Background(), model.RateRequest{SessionID: newSession(store), MediaID: mediaID, Rating: 10})
		require.NoError(t, err)
		last = res
	}

	assert.Equal(t, model.StatusGraveyard, last.Status)
	assert.Equal(t, 1, obs.graveyard["auto"])

	res, err := svc.Submit(context.Background(), model.RateRequest{SessionID: newSession(store), MediaID: mediaID, Rating: 100})
	require.NoError(t, err)
	assert.Equal(t, model.StatusGraveyard, res.Status)
	assert.Equal(t, 1, obs.graveyard["auto"])
}
