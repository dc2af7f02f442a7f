package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
)

// WipeConfirmation must be typed by the admin before a bulk wipe runs.
const WipeConfirmation = "WIPE ALL MEDIA"

// uploadsPrefix is the blob folder that holds submitted assets.
const uploadsPrefix = "uploads"

type Wiper interface {
	Wipe(ctx context.Context, mode model.WipeMode) (model.WipeResult, error)
}

// BlobRemover deletes stored objects under a key prefix.
type BlobRemover interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type WipeService struct {
	repo  Wiper
	blobs BlobRemover
	log   zerolog.Logger
}

func NewWipeService(repo Wiper, blobs BlobRemover, log zerolog.Logger) *WipeService {
	return &WipeService{repo: repo, blobs: blobs, log: log}
}

// Wipe removes all media rows (and, by mode, ratings and reports) and then
// the uploaded blobs. Blob removal is best-effort and never fails the wipe.
func (s *WipeService) Wipe(ctx context.Context, req model.WipeRequest, adminID string) (model.WipeResult, error) {
	switch req.Mode {
	case model.WipeMediaOnly, model.WipeMediaAndRatings:
	default:
		return model.WipeResult{}, invalid("INVALID_MODE", "mode must be media_only or media_and_ratings")
	}
	if !strings.EqualFold(strings.TrimSpace(req.Confirm), WipeConfirmation) {
		return model.WipeResult{}, invalid("CONFIRMATION_REQUIRED", "type %q to confirm", WipeConfirmation)
	}

	res, err := s.repo.Wipe(ctx, req.Mode)
	if err != nil {
		return model.WipeResult{}, err
	}

	if s.blobs != nil {
		n, err := s.blobs.DeletePrefix(ctx, uploadsPrefix)
		if err != nil {
			s.log.Warn().Err(err).Int("deleted", n).Msg("wipe: blob cleanup incomplete")
		}
		res.Blobs = n
	}

	s.log.Info().
		Str("admin", adminID).
		Str("mode", string(req.Mode)).
		Int64("media", res.Media).
		Int64("ratings", res.Ratings).
		Int64("reports", res.Reports).
		Int("blobs", res.Blobs).
		Msg("bulk wipe completed")
	return res, nil
}
