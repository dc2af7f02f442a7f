package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cursedai/cursed-go/internal/model"
)

func rated(score, confidence float64, count int64) model.Media {
	return model.Media{
		Reputation: model.Reputation{
			Moments:    model.Moments{Count: count},
			Score:      score,
			Confidence: confidence,
			Status:     model.StatusActive,
		},
	}
}

func TestThresholdsAt(t *testing.T) {
	tests := []struct {
		depth   int
		minScr  float64
		minConf float64
	}{
		{0, 10, 0.2},
		{40, 40, 0.44},
		{100, 85, 0.8},
		{-5, 10, 0.2},
		{250, 85, 0.8},
	}
	for _, tt := range tests {
		got := ThresholdsAt(tt.depth)
		assert.InDelta(t, tt.minScr, got.MinScore, 1e-9, "minScore at depth %d", tt.depth)
		assert.InDelta(t, tt.minConf, got.MinConfidence, 1e-9, "minConfidence at depth %d", tt.depth)
	}
}

func TestEligible_DepthRaisesTheBar(t *testing.T) {
	m := rated(15, 0.5, 5)

	assert.True(t, Eligible(m, 0), "score 15 / confidence 0.5 should pass at depth 0")
	assert.False(t, Eligible(m, 80), "score 15 / confidence 0.5 should fail at depth 80")
}

func TestEligible_UnratedAlwaysPasses(t *testing.T) {
	m := rated(0, 0, 0)
	for depth := MinDepth; depth <= MaxDepth; depth++ {
		assert.True(t, Eligible(m, depth), "unrated item rejected at depth %d", depth)
	}
}

func TestEligible_Exclusions(t *testing.T) {
	hidden := rated(90, 0.9, 40)
	hidden.Hidden = true
	assert.False(t, Eligible(hidden, 0))

	grave := rated(90, 0.9, 40)
	grave.Status = model.StatusGraveyard
	assert.False(t, Eligible(grave, 0))

	removed := rated(0, 0, 0)
	removed.Status = model.StatusRemoved
	assert.False(t, Eligible(removed, 0), "unrated removed items stay excluded")

	lowConf := rated(90, 0.1, 1)
	assert.False(t, Eligible(lowConf, 0), "a rated item must clear the confidence bar")
}

func TestEligible_MonotoneInDepth(t *testing.T) {
	candidates := []model.Media{
		rated(12, 0.21, 3),
		rated(40, 0.5, 9),
		rated(60, 0.65, 14),
		rated(88, 0.95, 40),
	}
	for _, m := range candidates {
		prev := true
		for depth := MinDepth; depth <= MaxDepth; depth++ {
			cur := Eligible(m, depth)
			if cur && !prev {
				t.Fatalf("item %+v became eligible again at depth %d", m.Reputation, depth)
			}
			prev = cur
		}
	}
}

func TestDepthFromViews(t *testing.T) {
	tests := []struct {
		viewed int64
		want   int
	}{
		{0, 0},
		{1, 1},
		{2, 3},
		{10, 19},
		{50, 99},
		{51, 100},
		{1000, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DepthFromViews(tt.viewed), "viewed=%d", tt.viewed)
	}
}
