package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

const (
	maxUserAgentLen = 256
	maxEventPathLen = 512
	maxEventMetaLen = 4096
	maxNotesLen     = 2000
	// depthLogStep is the granularity of depth_reached analytics events.
	depthLogStep = 5
)

// ErrTrackingUnavailable is returned when view tracking has no backing store.
var ErrTrackingUnavailable = errors.New("view tracking unavailable")

type SessionStore interface {
	Create(ctx context.Context, userAgent, ipHash string) (model.Session, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// ViewTracker records substantial views for server-side depth.
type ViewTracker interface {
	Enabled() bool
	Delivered(ctx context.Context, sessionID, mediaID string) (bool, error)
	RecordView(ctx context.Context, sessionID, mediaID string) (int64, error)
	MarkDepthLogged(ctx context.Context, sessionID string, milestone int) (bool, error)
}

// MediaLookup resolves items that were not delivered through the feed.
type MediaLookup interface {
	FindByID(ctx context.Context, id string) (model.Media, error)
}

type EventStore interface {
	Record(ctx context.Context, e model.Event) error
}

type FeedbackStore interface {
	Create(ctx context.Context, sessionID *string, score int, notes *string) (model.Feedback, error)
	List(ctx context.Context, offset, limit int) ([]model.Feedback, error)
}

type SessionService struct {
	sessions SessionStore
	views    ViewTracker
	media    MediaLookup
	events   EventStore
	feedback FeedbackStore
	hashIP   func(string) string
	log      zerolog.Logger
}

func NewSessionService(sessions SessionStore, views ViewTracker, media MediaLookup, events EventStore,
	feedback FeedbackStore, hashIP func(string) string, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		views:    views,
		media:    media,
		events:   events,
		feedback: feedback,
		hashIP:   hashIP,
		log:      log,
	}
}

// Create starts a new anonymous session. Only a salted hash of the IP is kept.
func (s *SessionService) Create(ctx context.Context, userAgent, ip string) (model.Session, error) {
	userAgent = truncateUTF8(strings.TrimSpace(userAgent), maxUserAgentLen)
	return s.sessions.Create(ctx, userAgent, s.hashIP(ip))
}

// RecordView marks an item as substantially viewed and returns the session's
// new depth. Only items delivered to the session, or viewable items opened
// directly, count toward depth.
func (s *SessionService) RecordView(ctx context.Context, sessionID, mediaID string) (model.ViewResponse, error) {
	if err := requireUUID("sessionId", sessionID); err != nil {
		return model.ViewResponse{}, err
	}
	if err := requireUUID("mediaId", mediaID); err != nil {
		return model.ViewResponse{}, err
	}
	if s.views == nil || !s.views.Enabled() {
		return model.ViewResponse{}, ErrTrackingUnavailable
	}
	ok, err := s.sessions.Exists(ctx, sessionID)
	if err != nil {
		return model.ViewResponse{}, err
	}
	if !ok {
		return model.ViewResponse{}, ErrSessionNotFound
	}
	if err := s.requireViewable(ctx, sessionID, mediaID); err != nil {
		return model.ViewResponse{}, err
	}

	viewed, err := s.views.RecordView(ctx, sessionID, mediaID)
	if err != nil {
		return model.ViewResponse{}, fmt.Errorf("record view: %w", err)
	}
	depth := DepthFromViews(viewed)
	s.logDepth(ctx, sessionID, depth)
	return model.ViewResponse{Viewed: viewed, Depth: depth}, nil
}

func (s *SessionService) requireViewable(ctx context.Context, sessionID, mediaID string) error {
	delivered, err := s.views.Delivered(ctx, sessionID, mediaID)
	if err != nil {
		return fmt.Errorf("check delivered: %w", err)
	}
	if delivered {
		return nil
	}
	m, err := s.media.FindByID(ctx, mediaID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}
	if !Viewable(m) {
		return ErrItemNotFound
	}
	return nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// logDepth writes a depth_reached event the first time a session crosses each step.
func (s *SessionService) logDepth(ctx context.Context, sessionID string, depth int) {
	milestone := depth / depthLogStep * depthLogStep
	if milestone <= 0 {
		return
	}
	first, err := s.views.MarkDepthLogged(ctx, sessionID, milestone)
	if err != nil || !first {
		return
	}
	meta, _ := json.Marshal(map[string]int{"depth": milestone})
	sid := sessionID
	err = s.events.Record(ctx, model.Event{SessionID: &sid, Path: "/feed", Type: model.EventDepthReached, Meta: meta})
	if err != nil {
		s.log.Warn().Err(err).Int("depth", milestone).Msg("analytics: depth event failed")
	}
}

// RecordEvent stores a client analytics event.
func (s *SessionService) RecordEvent(ctx context.Context, req model.EventRequest) error {
	switch req.EventType {
	case model.EventPageView, model.EventDepthReached:
	default:
		return invalid("INVALID_EVENT", "eventType must be page_view or depth_reached")
	}
	path := strings.TrimSpace(req.Path)
	if path == "" || len(path) > maxEventPathLen {
		return invalid("INVALID_EVENT", "path must be 1-%d characters", maxEventPathLen)
	}
	if len(req.Meta) > maxEventMetaLen {
		return invalid("INVALID_EVENT", "meta must be at most %d bytes", maxEventMetaLen)
	}
	if len(req.Meta) > 0 && !json.Valid(req.Meta) {
		return invalid("INVALID_EVENT", "meta must be valid JSON")
	}

	var sid *string
	if req.SessionID != "" {
		if err := requireUUID("sessionId", req.SessionID); err != nil {
			return err
		}
		sid = &req.SessionID
	}

	err := s.events.Record(ctx, model.Event{SessionID: sid, Path: path, Type: req.EventType, Meta: req.Meta})
	if errors.Is(err, repository.ErrMissingReference) {
		return ErrSessionNotFound
	}
	return err
}

// LeaveFeedback stores a 1-5 satisfaction score with optional notes.
func (s *SessionService) LeaveFeedback(ctx context.Context, req model.FeedbackRequest) (model.Feedback, error) {
	if req.Score < 1 || req.Score > 5 {
		return model.Feedback{}, invalid("INVALID_SCORE", "score must be between 1 and 5")
	}
	var sid *string
	if req.SessionID != "" {
		if err := requireUUID("sessionId", req.SessionID); err != nil {
			return model.Feedback{}, err
		}
		sid = &req.SessionID
	}
	var notes *string
	if n := strings.TrimSpace(req.Notes); n != "" {
		if len(n) > maxNotesLen {
			return model.Feedback{}, invalid("INVALID_NOTES", "notes must be at most %d characters", maxNotesLen)
		}
		notes = &n
	}

	f, err := s.feedback.Create(ctx, sid, req.Score, notes)
	if errors.Is(err, repository.ErrMissingReference) {
		return model.Feedback{}, ErrSessionNotFound
	}
	return f, err
}

// ListFeedback returns feedback for the admin console.
func (s *SessionService) ListFeedback(ctx context.Context, offset, limit int) ([]model.Feedback, error) {
	return s.feedback.List(ctx, offset, limit)
}
