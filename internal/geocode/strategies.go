package geocode

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/DeafMist/geonews/backend/internal/places"
	"github.com/DeafMist/geonews/backend/internal/processing"
)

// DefaultStrategies is the stock cascade: dateline place refined by a region,
// dateline place alone, then every candidate by descending confidence.
// A nil weights pointer means places.DefaultWeights.
func DefaultStrategies(weights *places.Weights) []Strategy {
	w := places.DefaultWeights()
	if weights != nil {
		w = *weights
	}
	return []Strategy{DatelineRegion{}, DatelineOnly{}, RankedCandidates{Weights: w}}
}

// DatelineRegion queries "<dateline place>, <region>" where region is the
// first other candidate that is a single alphabetic word longer than three
// characters.
type DatelineRegion struct{}

// Name implements Strategy.
func (DatelineRegion) Name() string { return "dateline_region" }

// Resolve implements Strategy.
func (DatelineRegion) Resolve(ctx context.Context, q Querier, req Request) (Result, bool, error) {
	if req.DatelinePlace == "" {
		return Result{}, false, nil
	}
	region, ok := RegionHint(req.DatelinePlace, req.Candidates)
	if !ok {
		return Result{}, false, nil
	}

	query := req.DatelinePlace + ", " + region
	point, err := q.Query(ctx, query)
	if err != nil || point == nil {
		return Result{}, false, err
	}
	return Result{Point: *point, From: query}, true, nil
}

// RegionHint picks the candidate used to narrow the dateline place.
func RegionHint(datelinePlace string, candidates []string) (string, bool) {
	for _, p := range candidates {
		if strings.EqualFold(p, datelinePlace) {
			continue
		}
		if processing.IsAlpha(p) && utf8.RuneCountInString(p) > 3 {
			return p, true
		}
	}
	return "", false
}

// DatelineOnly queries the dateline place by itself.
type DatelineOnly struct{}

// Name implements Strategy.
func (DatelineOnly) Name() string { return "dateline" }

// Resolve implements Strategy.
func (DatelineOnly) Resolve(ctx context.Context, q Querier, req Request) (Result, bool, error) {
	if req.DatelinePlace == "" {
		return Result{}, false, nil
	}
	point, err := q.Query(ctx, req.DatelinePlace)
	if err != nil || point == nil {
		return Result{}, false, err
	}
	return Result{Point: *point, From: req.DatelinePlace}, true, nil
}

// RankedCandidates walks the candidates from most to least central and
// geocodes each with the country hint.
type RankedCandidates struct {
	Weights places.Weights
}

// Name implements Strategy.
func (RankedCandidates) Name() string { return "candidates" }

// Resolve implements Strategy.
func (s RankedCandidates) Resolve(ctx context.Context, q Querier, req Request) (Result, bool, error) {
	for _, p := range s.Weights.Rank(req.Candidates, req.Title, req.Dateline) {
		point, _, err := q.QueryWithHint(ctx, p, req.CountryHint)
		if err != nil {
			return Result{}, false, err
		}
		if point != nil {
			return Result{Point: *point, From: p}, true, nil
		}
	}
	return Result{}, false, nil
}
