package places

import (
	"sort"
	"strings"
)

// Weights score how central a place is to a story.
type Weights struct {
	Dateline float64
	Title    float64
	Repeat   float64
}

// DefaultWeights: +2.0 for a dateline mention, +1.5 for a title mention and
// +0.3 for every occurrence in the title.
func DefaultWeights() Weights {
	return Weights{Dateline: 2.0, Title: 1.5, Repeat: 0.3}
}

// Confidence is a case-sensitive substring score of place against the title
// and dateline.
func (w Weights) Confidence(place, title, dateline string) float64 {
	if place == "" {
		return 0
	}
	score := 0.0
	if strings.Contains(dateline, place) {
		score += w.Dateline
	}
	if strings.Contains(title, place) {
		score += w.Title
	}
	score += float64(strings.Count(title, place)) * w.Repeat
	return score
}

// Rank orders places by descending confidence; equal scores keep their
// original order.
func (w Weights) Rank(places []string, title, dateline string) []string {
	ranked := append([]string(nil), places...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return w.Confidence(ranked[i], title, dateline) > w.Confidence(ranked[j], title, dateline)
	})
	return ranked
}
