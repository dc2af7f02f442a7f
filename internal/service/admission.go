package service

import "github.com/cursedai/cursed-go/internal/model"

const (
	MinDepth = 0
	MaxDepth = 100

	baseMinScore      = 10.0
	minScoreStep      = 0.75
	baseMinConfidence = 0.2
	minConfidenceStep = 0.006
)

// Thresholds are the score and confidence a rated item must clear at a given depth.
type Thresholds struct {
	MinScore      float64
	MinConfidence float64
}

// ClampDepth bounds a depth to [0,100].
func ClampDepth(depth int) int {
	if depth < MinDepth {
		return MinDepth
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

// ThresholdsAt returns the admission thresholds for depth:
//
//	minScore      = 10 + 0.75·depth
//	minConfidence = 0.2 + 0.006·depth
func ThresholdsAt(depth int) Thresholds {
	d := float64(ClampDepth(depth))
	return Thresholds{
		MinScore:      baseMinScore + minScoreStep*d,
		MinConfidence: baseMinConfidence + minConfidenceStep*d,
	}
}

// Visible reports whether m may appear in the primary feed at all.
func Visible(m model.Media) bool {
	return !m.Hidden && m.Status == model.StatusActive
}

// Viewable reports whether m may be opened on its own, graveyard included.
func Viewable(m model.Media) bool {
	return !m.Hidden && m.Status != model.StatusRemoved
}

// Eligible reports whether m may be shown at depth. Unrated items always pass
// so new submissions can collect their first ratings.
func Eligible(m model.Media, depth int) bool {
	if !Visible(m) {
		return false
	}
	if m.Count == 0 {
		return true
	}
	t := ThresholdsAt(depth)
	return m.Score >= t.MinScore && m.Confidence >= t.MinConfidence
}

// DepthFromViews maps the number of substantially viewed items to a depth.
func DepthFromViews(viewed int64) int {
	if viewed > MaxDepth {
		return MaxDepth
	}
	return ClampDepth(int(viewed)*2 - 1)
}
