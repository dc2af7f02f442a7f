package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScrollTracker keeps per-session scroll state in Redis: items viewed,
// items delivered, ads shown and depth milestones logged. Every key expires
// after the scroll session TTL of inactivity.
type ScrollTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewScrollTracker returns a tracker on the cache's connection. With no Redis
// connection every method is a no-op and Enabled reports false.
func NewScrollTracker(cache *CacheService, ttl time.Duration) *ScrollTracker {
	var rdb *redis.Client
	if cache.Enabled() {
		rdb = cache.Client()
	}
	return &ScrollTracker{rdb: rdb, ttl: ttl}
}

func (t *ScrollTracker) Enabled() bool {
	return t != nil && t.rdb != nil
}

func scrollKey(sessionID, part string) string {
	return fmt.Sprintf("scroll:%s:%s", sessionID, part)
}

// RecordView marks mediaID as substantially viewed and returns the number of
// distinct items viewed in this scroll session.
func (t *ScrollTracker) RecordView(ctx context.Context, sessionID, mediaID string) (int64, error) {
	if !t.Enabled() {
		return 0, nil
	}
	key := scrollKey(sessionID, "views")

	var card *redis.IntCmd
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, mediaID)
		p.Expire(ctx, key, t.ttl)
		card = p.SCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}

// Viewed returns the number of distinct items viewed in this scroll session.
func (t *ScrollTracker) Viewed(ctx context.Context, sessionID string) (int64, error) {
	if !t.Enabled() {
		return 0, nil
	}
	return t.rdb.SCard(ctx, scrollKey(sessionID, "views")).Result()
}

// FilterDelivered returns the ids that were not yet delivered to this session.
func (t *ScrollTracker) FilterDelivered(ctx context.Context, sessionID string, ids []string) ([]string, error) {
	if !t.Enabled() || len(ids) == 0 {
		return ids, nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	seen, err := t.rdb.SMIsMember(ctx, scrollKey(sessionID, "delivered"), members...).Result()
	if err != nil {
		return ids, err
	}
	fresh := make([]string, 0, len(ids))
	for i, id := range ids {
		if !seen[i] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

// Delivered reports whether mediaID was served to this session by the feed.
func (t *ScrollTracker) Delivered(ctx context.Context, sessionID, mediaID string) (bool, error) {
	if !t.Enabled() {
		return false, nil
	}
	return t.rdb.SIsMember(ctx, scrollKey(sessionID, "delivered"), mediaID).Result()
}

// MarkDelivered records ids as delivered.
func (t *ScrollTracker) MarkDelivered(ctx context.Context, sessionID string, ids []string) error {
	if !t.Enabled() || len(ids) == 0 {
		return nil
	}
	key := scrollKey(sessionID, "delivered")
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, members...)
		p.Expire(ctx, key, t.ttl)
		return nil
	})
	return err
}

// AdState returns the ads shown so far in this scroll session.
func (t *ScrollTracker) AdState(ctx context.Context, sessionID string) (AdState, error) {
	var st AdState
	if !t.Enabled() {
		return st, nil
	}
	shown, err := t.rdb.SMembers(ctx, scrollKey(sessionID, "ads")).Result()
	if err != nil {
		return st, err
	}
	for _, s := range shown {
		if m, err := strconv.Atoi(s); err == nil {
			st.Shown = append(st.Shown, m)
		}
	}
	last, err := t.rdb.Get(ctx, scrollKey(sessionID, "ad_last")).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return st, err
	}
	if last > 0 {
		st.LastAt = time.UnixMilli(last)
	}
	return st, nil
}

// RecordAd stores that milestone was shown at the given time.
func (t *ScrollTracker) RecordAd(ctx context.Context, sessionID string, milestone int, at time.Time) error {
	if !t.Enabled() {
		return nil
	}
	adsKey := scrollKey(sessionID, "ads")
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, adsKey, milestone)
		p.Expire(ctx, adsKey, t.ttl)
		p.Set(ctx, scrollKey(sessionID, "ad_last"), at.UnixMilli(), t.ttl)
		return nil
	})
	return err
}

// MarkDepthLogged returns true the first time milestone is marked for a session.
func (t *ScrollTracker) MarkDepthLogged(ctx context.Context, sessionID string, milestone int) (bool, error) {
	if !t.Enabled() {
		return false, nil
	}
	key := scrollKey(sessionID, "depth_logged")
	var added *redis.IntCmd
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		added = p.SAdd(ctx, key, milestone)
		p.Expire(ctx, key, t.ttl)
		return nil
	})
	if err != nil {
		return false, err
	}
	return added.Val() == 1, nil
}
