package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

// DefaultPageSize is the number of items per feed page.
const DefaultPageSize = 8

// FeedStore reads feed and graveyard pages and single items.
type FeedStore interface {
	ListFeed(ctx context.Context, q model.FeedQuery) ([]model.Media, error)
	ListGraveyard(ctx context.Context, offset, limit int) ([]model.Media, error)
	FindByID(ctx context.Context, id string) (model.Media, error)
}

// ScrollState is the per-session scroll memory used by the feed.
type ScrollState interface {
	Enabled() bool
	Viewed(ctx context.Context, sessionID string) (int64, error)
	FilterDelivered(ctx context.Context, sessionID string, ids []string) ([]string, error)
	MarkDelivered(ctx context.Context, sessionID string, ids []string) error
	AdState(ctx context.Context, sessionID string) (AdState, error)
	RecordAd(ctx context.Context, sessionID string, milestone int, at time.Time) error
}

type FeedService struct {
	store    FeedStore
	scroll   ScrollState
	settings SettingsSource
	pageSize int
	now      func() time.Time
	log      zerolog.Logger
}

func NewFeedService(store FeedStore, scroll ScrollState, settings SettingsSource, pageSize int, log zerolog.Logger) *FeedService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FeedService{
		store:    store,
		scroll:   scroll,
		settings: settings,
		pageSize: pageSize,
		now:      time.Now,
		log:      log,
	}
}

// Depth resolves the depth used for a request. With scroll tracking the
// server-side view count wins over the client's claim.
func (s *FeedService) Depth(ctx context.Context, sessionID string, clientDepth int) int {
	if sessionID == "" || s.scroll == nil || !s.scroll.Enabled() {
		return ClampDepth(clientDepth)
	}
	viewed, err := s.scroll.Viewed(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Msg("feed: view count unavailable, using client depth")
		return ClampDepth(clientDepth)
	}
	return DepthFromViews(viewed)
}

// Feed returns one page of the primary feed for a session at its current depth.
func (s *FeedService) Feed(ctx context.Context, sessionID string, clientDepth, page int) (model.FeedResponse, error) {
	if page < 0 {
		return model.FeedResponse{}, invalid("INVALID_PAGE", "page must be >= 0")
	}
	if sessionID != "" {
		if err := requireUUID("sessionId", sessionID); err != nil {
			return model.FeedResponse{}, err
		}
	}

	depth := s.Depth(ctx, sessionID, clientDepth)
	t := ThresholdsAt(depth)
	raw, err := s.store.ListFeed(ctx, model.FeedQuery{
		MinScore:      t.MinScore,
		MinConfidence: t.MinConfidence,
		Offset:        page * s.pageSize,
		Limit:         s.pageSize,
	})
	if err != nil {
		return model.FeedResponse{}, err
	}

	items := make([]model.Media, 0, len(raw))
	for _, m := range raw {
		if Eligible(m, depth) {
			items = append(items, m)
		}
	}
	items = s.dropDelivered(ctx, sessionID, items)

	resp := model.FeedResponse{
		Items:   make([]model.MediaResponse, 0, len(items)),
		HasMore: len(raw) == s.pageSize,
		Page:    page,
		Depth:   depth,
	}
	for _, m := range items {
		resp.Items = append(resp.Items, m.ToResponse())
	}
	resp.AdMilestone = s.nextAd(ctx, sessionID, depth)
	return resp, nil
}

func (s *FeedService) dropDelivered(ctx context.Context, sessionID string, items []model.Media) []model.Media {
	if sessionID == "" || s.scroll == nil || !s.scroll.Enabled() || len(items) == 0 {
		return items
	}
	ids := make([]string, len(items))
	for i, m := range items {
		ids[i] = m.ID
	}
	fresh, err := s.scroll.FilterDelivered(ctx, sessionID, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("feed: delivered set unavailable")
		return items
	}
	keep := make(map[string]bool, len(fresh))
	for _, id := range fresh {
		keep[id] = true
	}
	out := items[:0]
	for _, m := range items {
		if keep[m.ID] {
			out = append(out, m)
		}
	}
	if err := s.scroll.MarkDelivered(ctx, sessionID, fresh); err != nil {
		s.log.Warn().Err(err).Msg("feed: mark delivered failed")
	}
	return out
}

func (s *FeedService) nextAd(ctx context.Context, sessionID string, depth int) *int {
	if sessionID == "" || s.scroll == nil || !s.scroll.Enabled() {
		return nil
	}
	st, err := s.scroll.AdState(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Msg("feed: ad state unavailable")
		return nil
	}
	now := s.now()
	milestone, ok := NextAdMilestone(s.settings.Snapshot(ctx), depth, st, now)
	if !ok {
		return nil
	}
	if err := s.scroll.RecordAd(ctx, sessionID, milestone, now); err != nil {
		s.log.Warn().Err(err).Msg("feed: record ad failed")
		return nil
	}
	return &milestone
}

// Graveyard returns one page of demoted items, lowest score first.
func (s *FeedService) Graveyard(ctx context.Context, page int) (model.GraveyardResponse, error) {
	if page < 0 {
		return model.GraveyardResponse{}, invalid("INVALID_PAGE", "page must be >= 0")
	}
	raw, err := s.store.ListGraveyard(ctx, page*s.pageSize, s.pageSize)
	if err != nil {
		return model.GraveyardResponse{}, err
	}
	resp := model.GraveyardResponse{
		Items:   make([]model.MediaResponse, 0, len(raw)),
		HasMore: len(raw) == s.pageSize,
		Page:    page,
	}
	for _, m := range raw {
		resp.Items = append(resp.Items, m.ToResponse())
	}
	return resp, nil
}

// Item returns one public item. Hidden and removed items read as not found.
func (s *FeedService) Item(ctx context.Context, id string) (model.MediaResponse, error) {
	if err := requireUUID("mediaId", id); err != nil {
		return model.MediaResponse{}, err
	}
	m, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.MediaResponse{}, ErrItemNotFound
	}
	if err != nil {
		return model.MediaResponse{}, err
	}
	if !Viewable(m) {
		return model.MediaResponse{}, ErrItemNotFound
	}
	return m.ToResponse(), nil
}
