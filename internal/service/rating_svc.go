package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

// RatingStore persists a rating and its reputation update atomically.
type RatingStore interface {
	ApplyRating(ctx context.Context, sessionID, mediaID string, value int,
		recompute func(model.Reputation) model.Reputation) (prev, next model.Reputation, err error)
}

// Observer receives domain counters. The prometheus metrics implement it.
type Observer interface {
	ObserveRating(outcome string)
	ObserveGraveyard(trigger string)
}

type nopObserver struct{}

func (nopObserver) ObserveRating(string)    {}
func (nopObserver) ObserveGraveyard(string) {}

type RatingService struct {
	repo     RatingStore
	settings SettingsSource
	obs      Observer
	log      zerolog.Logger
}

func NewRatingService(repo RatingStore, settings SettingsSource, obs Observer, log zerolog.Logger) *RatingService {
	if obs == nil {
		obs = nopObserver{}
	}
	return &RatingService{repo: repo, settings: settings, obs: obs, log: log}
}

// Submit validates a rating, records it and returns the item's new reputation.
// A session may rate an item only once.
func (s *RatingService) Submit(ctx context.Context, req model.RateRequest) (model.RateResponse, error) {
	if err := requireUUID("sessionId", req.SessionID); err != nil {
		return model.RateResponse{}, err
	}
	if err := requireUUID("mediaId", req.MediaID); err != nil {
		return model.RateResponse{}, err
	}
	if !ValidRating(req.Rating) {
		s.obs.ObserveRating("invalid")
		return model.RateResponse{}, invalid("INVALID_RATING", "rating must be an integer between %d and %d", MinRating, MaxRating)
	}
	if !s.settings.Snapshot(ctx).RatingsEnabled {
		return model.RateResponse{}, ErrFeatureDisabled
	}

	prev, next, err := s.repo.ApplyRating(ctx, req.SessionID, req.MediaID, req.Rating,
		func(cur model.Reputation) model.Reputation {
			return ApplyRating(cur, req.Rating)
		})
	switch {
	case errors.Is(err, repository.ErrConflict):
		s.obs.ObserveRating("duplicate")
		return model.RateResponse{}, ErrDuplicateRating
	case errors.Is(err, repository.ErrNotFound):
		return model.RateResponse{}, ErrItemNotFound
	case errors.Is(err, repository.ErrMissingReference):
		return model.RateResponse{}, ErrSessionNotFound
	case err != nil:
		s.obs.ObserveRating("error")
		return model.RateResponse{}, err
	}

	s.obs.ObserveRating("accepted")
	if prev.Status != model.StatusGraveyard && next.Status == model.StatusGraveyard {
		s.obs.ObserveGraveyard("auto")
		s.log.Info().
			Str("media_id", req.MediaID).
			Float64("score", next.Score).
			Float64("confidence", next.Confidence).
			Int64("ratings", next.Count).
			Msg("media moved to graveyard")
	}

	return model.RateResponse{
		Score:      next.Score,
		Confidence: next.Confidence,
		Status:     next.Status,
	}, nil
}

func requireUUID(field, value string) error {
	if value == "" {
		return invalid("MISSING_FIELD", "%s is required", field)
	}
	if _, err := uuid.Parse(value); err != nil {
		return invalid("INVALID_ID", "%s must be a UUID", field)
	}
	return nil
}
