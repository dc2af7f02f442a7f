package service

import (
	"math"

	"github.com/cursedai/cursed-go/internal/model"
)

const (
	// Prior mean and weight of the Bayesian shrinkage.
	priorMean   = 50.0
	priorWeight = 12.0

	// Standard deviation at which the dispersion penalty saturates, and its size.
	dispersionScale   = 40.0
	dispersionPenalty = 8.0

	// Sample count scale of the confidence curve.
	confidenceScale = 12.0

	// Automatic demotion fires once both thresholds are crossed.
	graveyardConfidence = 0.8
	graveyardScore      = 18.0

	MinRating = 1
	MaxRating = 100
)

// Accumulate folds one rating value into the running moments.
func Accumulate(m model.Moments, value int) model.Moments {
	v := int64(value)
	return model.Moments{
		Count: m.Count + 1,
		Sum:   m.Sum + v,
		SumSq: m.SumSq + v*v,
	}
}

// Score computes the dispersion-penalised Bayesian estimate:
//
//	bayes   = (μ0·k + sum) / (k + n)
//	std     = sqrt(max(0, sumSq/n - mean²))
//	score   = clamp(bayes - clamp(std/40, 0, 1)·8, 0, 100)
//
// With no ratings the score is the prior mean.
func Score(m model.Moments) float64 {
	if m.Count <= 0 {
		return priorMean
	}
	n := float64(m.Count)
	sum := float64(m.Sum)

	bayes := (priorMean*priorWeight + sum) / (priorWeight + n)
	mean := sum / n
	variance := math.Max(0, float64(m.SumSq)/n-mean*mean)
	std := math.Sqrt(variance)
	penalty := clamp(std/dispersionScale, 0, 1) * dispersionPenalty

	return clamp(bayes-penalty, 0, 100)
}

// Confidence is 1 - e^(-n/12). It depends only on the sample count.
func Confidence(count int64) float64 {
	if count <= 0 {
		return 0
	}
	return 1 - math.Exp(-float64(count)/confidenceScale)
}

// AutoTransition applies the only lifecycle change the aggregator may make:
// a confident, low-scoring item that is not removed drops into the graveyard.
func AutoTransition(status model.Status, score, confidence float64) model.Status {
	if status != model.StatusRemoved && confidence >= graveyardConfidence && score <= graveyardScore {
		return model.StatusGraveyard
	}
	return status
}

// ApplyRating returns the reputation of an item after one more rating.
func ApplyRating(cur model.Reputation, value int) model.Reputation {
	if cur.Status == "" {
		cur.Status = model.StatusActive
	}
	moments := Accumulate(cur.Moments, value)
	score := Score(moments)
	confidence := Confidence(moments.Count)
	return model.Reputation{
		Moments:    moments,
		Score:      score,
		Confidence: confidence,
		Status:     AutoTransition(cur.Status, score, confidence),
	}
}

// ValidRating reports whether value is an accepted rating.
func ValidRating(value int) bool {
	return value >= MinRating && value <= MaxRating
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
