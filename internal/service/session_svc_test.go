package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

type memSessions struct {
	ids    map[string]bool
	hashes []string
}

func (m *memSessions) Create(_ context.Context, ua, ipHash string) (model.Session, error) {
	s := model.Session{ID: uuid.NewString(), UserAgent: ua, IPHash: ipHash}
	m.ids[s.ID] = true
	m.hashes = append(m.hashes, ipHash)
	return s, nil
}

func (m *memSessions) Exists(_ context.Context, id string) (bool, error) { return m.ids[id], nil }

type memViews struct {
	enabled   bool
	delivered map[string]bool
	seen      map[string]map[string]bool
	logged    map[string]bool
}

func newMemViews() *memViews {
	return &memViews{
		enabled:   true,
		delivered: map[string]bool{},
		seen:      map[string]map[string]bool{},
		logged:    map[string]bool{},
	}
}

func (v *memViews) Enabled() bool { return v.enabled }

func (v *memViews) deliver(sid, mid string) { v.delivered[sid+"/"+mid] = true }

func (v *memViews) Delivered(_ context.Context, sid, mid string) (bool, error) {
	return v.delivered[sid+"/"+mid], nil
}

func (v *memViews) RecordView(_ context.Context, sid, mid string) (int64, error) {
	if v.seen[sid] == nil {
		v.seen[sid] = map[string]bool{}
	}
	v.seen[sid][mid] = true
	return int64(len(v.seen[sid])), nil
}

func (v *memViews) MarkDepthLogged(_ context.Context, sid string, milestone int) (bool, error) {
	key := fmt.Sprintf("%s/%d", sid, milestone)
	if v.logged[key] {
		return false, nil
	}
	v.logged[key] = true
	return true, nil
}

type memEvents struct {
	events []model.Event
	known  map[string]bool
}

func (e *memEvents) Record(_ context.Context, ev model.Event) error {
	if ev.SessionID != nil && e.known != nil && !e.known[*ev.SessionID] {
		return repository.ErrMissingReference
	}
	e.events = append(e.events, ev)
	return nil
}

type memFeedback struct{ items []model.Feedback }

func (f *memFeedback) Create(_ context.Context, sid *string, score int, notes *string) (model.Feedback, error) {
	fb := model.Feedback{ID: uuid.NewString(), SessionID: sid, Score: score, Notes: notes}
	f.items = append(f.items, fb)
	return fb, nil
}

func (f *memFeedback) List(_ context.Context, offset, limit int) ([]model.Feedback, error) {
	return pageOfFeedback(f.items, offset, limit), nil
}

func pageOfFeedback(all []model.Feedback, offset, limit int) []model.Feedback {
	if offset >= len(all) {
		return nil
	}
	return all[offset:min(len(all), offset+limit)]
}

type sessionFixture struct {
	svc      *SessionService
	sessions *memSessions
	media    *memStore
	events   *memEvents
	feedback *memFeedback
}

func newSessionService(views ViewTracker) sessionFixture {
	f := sessionFixture{
		sessions: &memSessions{ids: map[string]bool{}},
		media:    newMemStore(),
		events:   &memEvents{},
		feedback: &memFeedback{},
	}
	hashIP := func(ip string) string { return "h(" + ip + ")" }
	f.svc = NewSessionService(f.sessions, views, f.media, f.events, f.feedback, hashIP, zerolog.Nop())
	return f
}

func TestSessionService_CreateHashesIP(t *testing.T) {
	f := newSessionService(newMemViews())

	s, err := f.svc.Create(context.Background(), strings.Repeat("a", 300), "203.0.113.9")
	require.NoError(t, err)
	assert.Len(t, s.UserAgent, maxUserAgentLen)
	assert.Equal(t, []string{"h(203.0.113.9)"}, f.sessions.hashes)
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "curl/8.0", 256, "curl/8.0"},
		{"ascii cut", strings.Repeat("a", 300), 256, strings.Repeat("a", 256)},
		{"two byte rune on boundary", "a" + strings.Repeat("é", 200), 256, "a" + strings.Repeat("é", 127)},
		{"four byte rune", strings.Repeat("😱", 65), 256, strings.Repeat("😱", 64)},
		{"cut inside four byte rune", "ab" + strings.Repeat("😱", 64), 256, "ab" + strings.Repeat("😱", 63)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateUTF8(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), tt.n)
		})
	}
}

func TestSessionService_CreateKeepsUserAgentValidUTF8(t *testing.T) {
	f := newSessionService(newMemViews())

	s, err := f.svc.Create(context.Background(), "a"+strings.Repeat("é", 200), "ip")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(s.UserAgent))
	assert.Equal(t, "a"+strings.Repeat("é", 127), s.UserAgent)
}

func TestSessionService_RecordView(t *testing.T) {
	views := newMemViews()
	f := newSessionService(views)
	svc, events := f.svc, f.events
	ctx := context.Background()
	s, err := svc.Create(ctx, "ua", "ip")
	require.NoError(t, err)

	var last model.ViewResponse
	for i := 0; i < 3; i++ {
		id := uuid.NewString()
		f.media.addMedia(model.Media{ID: id})
		views.deliver(s.ID, id)
		last, err = svc.RecordView(ctx, s.ID, id)
		require.NoError(t, err)
	}
	assert.Equal(t, model.ViewResponse{Viewed: 3, Depth: 5}, last)
	require.Len(t, events.events, 1, "crossing depth 5 logs one event")
	assert.Equal(t, model.EventDepthReached, events.events[0].Type)
	assert.JSONEq(t, `{"depth":5}`, string(events.events[0].Meta))

	_, err = svc.RecordView(ctx, uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.RecordView(ctx, "not-a-uuid", uuid.NewString())
	_, ok := IsValidation(err)
	assert.True(t, ok)

	views.enabled = false
	_, err = svc.RecordView(ctx, s.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrTrackingUnavailable)
}

func TestSessionService_RecordViewOnlyCountsRealItems(t *testing.T) {
	tests := []struct {
		name      string
		media     *model.Media
		delivered bool
		wantErr   error
	}{
		{"delivered", &model.Media{}, true, nil},
		{"delivered then removed from store", nil, true, nil},
		{"opened directly", &model.Media{}, false, nil},
		{"opened from graveyard", &model.Media{Reputation: model.Reputation{Status: model.StatusGraveyard}}, false, nil},
		{"unknown id", nil, false, ErrItemNotFound},
		{"hidden", &model.Media{Hidden: true}, false, ErrItemNotFound},
		{"removed", &model.Media{Reputation: model.Reputation{Status: model.StatusRemoved}}, false, ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := newMemViews()
			f := newSessionService(views)
			ctx := context.Background()
			s, err := f.svc.Create(ctx, "ua", "ip")
			require.NoError(t, err)

			id := uuid.NewString()
			if tt.media != nil {
				m := *tt.media
				m.ID = id
				f.media.addMedia(m)
			}
			if tt.delivered {
				views.deliver(s.ID, id)
			}

			res, err := f.svc.RecordView(ctx, s.ID, id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, views.seen[s.ID], "rejected views leave depth unchanged")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.ViewResponse{Viewed: 1, Depth: 1}, res)
		})
	}
}

func TestSessionService_FabricatedIDsDoNotRaiseDepth(t *testing.T) {
	views := newMemViews()
	f := newSessionService(views)
	ctx := context.Background()
	s, err := f.svc.Create(ctx, "ua", "ip")
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		_, err := f.svc.RecordView(ctx, s.ID, uuid.NewString())
		require.ErrorIs(t, err, ErrItemNotFound)
	}
	assert.Empty(t, views.seen[s.ID])
	assert.Empty(t, f.events.events, "no depth milestones logged")
}

func TestSessionService_RecordEvent(t *testing.T) {
	f := newSessionService(nil)
	svc, events := f.svc, f.events
	ctx := context.Background()
	sid := uuid.NewString()
	events.known = map[string]bool{sid: true}

	tests := []struct {
		name string
		req  model.EventRequest
		ok   bool
	}{
		{"page view", model.EventRequest{SessionID: sid, Path: "/feed", EventType: model.EventPageView}, true},
		{"anonymous", model.EventRequest{Path: "/", EventType: model.EventPageView, Meta: json.RawMessage(`{"ref":"x"}`)}, true},
		{"unknown type", model.EventRequest{Path: "/", EventType: "click"}, false},
		{"empty path", model.EventRequest{Path: " ", EventType: model.EventPageView}, false},
		{"bad meta", model.EventRequest{Path: "/", EventType: model.EventPageView, Meta: json.RawMessage(`{`)}, false},
		{"bad session", model.EventRequest{SessionID: "x", Path: "/", EventType: model.EventPageView}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RecordEvent(ctx, tt.req)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			_, isValidation := IsValidation(err)
			assert.True(t, isValidation, "got %v", err)
		})
	}

	err := svc.RecordEvent(ctx, model.EventRequest{SessionID: uuid.NewString(), Path: "/", EventType: model.EventPageView})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_Feedback(t *testing.T) {
	f := newSessionService(nil)
	svc, feedback := f.svc, f.feedback
	ctx := context.Background()

	fb, err := svc.LeaveFeedback(ctx, model.FeedbackRequest{Score: 4, Notes: "  loved the worst one  "})
	require.NoError(t, err)
	assert.Nil(t, fb.SessionID)
	assert.Equal(t, "loved the worst one", *fb.Notes)

	for _, score := range []int{0, 6} {
		_, err := svc.LeaveFeedback(ctx, model.FeedbackRequest{Score: score})
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_SCORE", ve.Code)
	}

	list, err := svc.ListFeedback(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, feedback.items, list)
}
