package service

import (
	"time"

	"github.com/cursedai/cursed-go/internal/model"
)

// maxAdsPerScroll caps how many milestone ads one scroll session sees.
const maxAdsPerScroll = 3

// AdState is what the scroll-session tracker remembers about ads.
type AdState struct {
	Shown  []int
	LastAt time.Time
}

// NextAdMilestone returns the first configured milestone the viewer has reached
// but not yet been shown, or false when no ad is due.
func NextAdMilestone(s model.Settings, depth int, st AdState, now time.Time) (int, bool) {
	if !s.AdsEnabled || len(st.Shown) >= maxAdsPerScroll {
		return 0, false
	}
	cooldown := time.Duration(s.AdCooldownSeconds) * time.Second
	if !st.LastAt.IsZero() && now.Sub(st.LastAt) < cooldown {
		return 0, false
	}
	shown := make(map[int]bool, len(st.Shown))
	for _, m := range st.Shown {
		shown[m] = true
	}
	for _, m := range s.AdMilestones {
		if depth >= m && !shown[m] {
			return m, true
		}
	}
	return 0, false
}
