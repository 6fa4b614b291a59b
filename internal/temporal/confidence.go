package temporal

import (
	"github.com/DeafMist/geonews/backend/internal/models"
)

// Weights are the heuristic terms of the confidence score.
type Weights struct {
	Year          float64
	Dateline      float64
	Other         float64
	Absolute      float64
	Relative      float64
	PositionDecay float64
	Max           float64
}

// DefaultWeights returns the stock tuning: year 2.0, dateline 1.5 (other
// fields 0.5), absolute +1.0, relative -1.0, decay over 500 characters,
// clamped to [0, 5].
func DefaultWeights() Weights {
	return Weights{
		Year:          2.0,
		Dateline:      1.5,
		Other:         0.5,
		Absolute:      1.0,
		Relative:      -1.0,
		PositionDecay: 500,
		Max:           5.0,
	}
}

// Confidence scores an expression. It is a pure function of the expression
// and is recomputed wherever a score is needed.
func (w Weights) Confidence(t models.TemporalExpression) float64 {
	score := 0.0
	if t.HasYear {
		score += w.Year
	}
	if t.Source == models.SourceDateline {
		score += w.Dateline
	} else {
		score += w.Other
	}
	if t.IsRelative {
		score += w.Relative
	} else {
		score += w.Absolute
	}
	if w.PositionDecay > 0 {
		score += max(0, 1-float64(t.Position)/w.PositionDecay)
	}
	return min(max(score, 0), w.Max)
}

// Score attaches confidences for output.
func (w Weights) Score(exprs []models.TemporalExpression) []models.ScoredTemporalExpression {
	out := make([]models.ScoredTemporalExpression, 0, len(exprs))
	for _, t := range exprs {
		out = append(out, models.ScoredTemporalExpression{TemporalExpression: t, Confidence: w.Confidence(t)})
	}
	return out
}

// BestDate picks the expression that best stands in for a missing publication
// date: absolute expressions are preferred when any exist, then the highest
// confidence wins, earliest on ties.
func (w Weights) BestDate(exprs []models.TemporalExpression) (models.TemporalExpression, bool) {
	pool := make([]models.TemporalExpression, 0, len(exprs))
	for _, t := range exprs {
		if !t.IsRelative {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 {
		pool = exprs
	}
	if len(pool) == 0 {
		return models.TemporalExpression{}, false
	}

	best, bestScore := pool[0], w.Confidence(pool[0])
	for _, t := range pool[1:] {
		if s := w.Confidence(t); s > bestScore {
			best, bestScore = t, s
		}
	}
	return best, true
}
