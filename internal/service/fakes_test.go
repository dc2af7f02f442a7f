package service

import (
	"context"
	"sort"
	"sync"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

// memStore is an in-memory stand-in for the media and ratings tables. A
// single mutex plays the role of the row lock.
type memStore struct {
	mu       sync.Mutex
	media    map[string]*model.Media
	sessions map[string]bool
	ratings  map[[2]string]int
}

func newMemStore() *memStore {
	return &memStore{
		media:    map[string]*model.Media{},
		sessions: map[string]bool{},
		ratings:  map[[2]string]int{},
	}
}

func (s *memStore) addMedia(m model.Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Status == "" {
		m.Status = model.StatusActive
	}
	s.media[m.ID] = &m
}

func (s *memStore) get(id string) model.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.media[id]
}

func (s *memStore) ApplyRating(_ context.Context, sessionID, mediaID string, value int,
	recompute func(model.Reputation) model.Reputation) (prev, next model.Reputation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[mediaID]
	if !ok {
		return prev, next, repository.ErrNotFound
	}
	if !s.sessions[sessionID] {
		return prev, next, repository.ErrMissingReference
	}
	key := [2]string{sessionID, mediaID}
	if _, dup := s.ratings[key]; dup {
		return prev, next, repository.ErrConflict
	}
	s.ratings[key] = value

	prev = m.Reputation
	next = recompute(prev)
	m.Reputation = next
	return prev, next, nil
}

func (s *memStore) ListFeed(_ context.Context, q model.FeedQuery) ([]model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []model.Media
	for _, m := range s.media {
		if m.Hidden || m.Status != model.StatusActive {
			continue
		}
		if m.Count > 0 && (m.Score < q.MinScore || m.Confidence < q.MinConfidence) {
			continue
		}
		all = append(all, *m)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return pageOf(all, q.Offset, q.Limit), nil
}

func (s *memStore) ListGraveyard(_ context.Context, offset, limit int) ([]model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []model.Media
	for _, m := range s.media {
		if !m.Hidden && m.Status == model.StatusGraveyard {
			all = append(all, *m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Score < all[j].Score })
	return pageOf(all, offset, limit), nil
}

func (s *memStore) FindByID(_ context.Context, id string) (model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[id]
	if !ok {
		return model.Media{}, repository.ErrNotFound
	}
	return *m, nil
}

func pageOf(all []model.Media, offset, limit int) []model.Media {
	if offset >= len(all) {
		return []model.Media{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

type fixedSettings model.Settings

func (f fixedSettings) Snapshot(context.Context) model.Settings {
	return model.Settings(f)
}

type countingObserver struct {
	mu        sync.Mutex
	ratings   map[string]int
	graveyard map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{ratings: map[string]int{}, graveyard: map[string]int{}}
}

func (o *countingObserver) ObserveRating(outcome string) {
	o.mu.Lock()
	o.ratings[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveGraveyard(trigger string) {
	o.mu.Lock()
	o.graveyard[trigger]++
	o.mu.Unlock()
}
