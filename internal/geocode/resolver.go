// Package geocode resolves the single geopoint of a document by trying an
// ordered list of query strategies against a cached, rate-limited geocoder.
package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/DeafMist/geonews/backend/internal/geocache"
	"github.com/DeafMist/geonews/backend/internal/metrics"
	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/DeafMist/geonews/backend/internal/processing"
)

// DefaultTimeout bounds a single geocoder call.
const DefaultTimeout = 10 * time.Second

// DefaultInterval spaces geocoder calls; public Nominatim allows one per second.
const DefaultInterval = time.Second

var hintNoise = regexp.MustCompile(`[\W_]+`)

// errThrottled aborts a load that could not get a rate-limit slot; nothing
// is cached for it.
var errThrottled = errors.New("geocode: throttled")

// Request carries what a document offers for geocoding.
type Request struct {
	Title    string
	Dateline string
	// DatelinePlace is the leading place of the dateline, if any.
	DatelinePlace string
	// Candidates are cleaned, deduplicated places in extraction order.
	Candidates []string
	// CountryHint comes from the document's explicit place tags.
	CountryHint string
}

// Result is a resolved geopoint and the query text it came from.
type Result struct {
	Point    models.Geopoint
	From     string
	Strategy string
}

// Querier performs cached geocode lookups. A nil point is a non-match.
type Querier interface {
	Query(ctx context.Context, query string) (*models.Geopoint, error)
	QueryWithHint(ctx context.Context, place, hint string) (*models.Geopoint, string, error)
}

// Strategy is one step of the cascade. It reports ok=false to pass control
// to the next step; err is reserved for cancellation.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, q Querier, req Request) (Result, bool, error)
}

// Resolver applies strategies in order and stops at the first success.
type Resolver struct {
	geocoder   Geocoder
	cache      *geocache.Cache
	limiter    *rate.Limiter
	timeout    time.Duration
	strategies []Strategy
	log        *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithTimeout bounds each geocoder call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithInterval sets the minimum spacing between geocoder calls. Zero or
// less disables throttling.
func WithInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithStrategies replaces the default cascade.
func WithStrategies(s ...Strategy) Option {
	return func(r *Resolver) { r.strategies = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver builds a resolver over geocoder and cache. The cache is shared
// state: give each worker its own, or share one across goroutines (it is
// safe for concurrent use).
func NewResolver(geocoder Geocoder, cache *geocache.Cache, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder:   geocoder,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Every(DefaultInterval), 1),
		timeout:    DefaultTimeout,
		strategies: DefaultStrategies(nil),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the cascade. ok is false when no strategy produced a point.
// The error is non-nil only when ctx is done.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, bool, error) {
	for _, s := range r.strategies {
		res, ok, err := s.Resolve(ctx, r, req)
		if err != nil {
			return Result{}, false, err
		}
		if ok {
			res.Strategy = s.Name()
			metrics.GeopointsResolved.WithLabelValues(s.Name()).Inc()
			return res, true, nil
		}
	}
	metrics.GeopointsResolved.WithLabelValues("none").Inc()
	return Result{}, false, nil
}

// Query geocodes one query string through the cache. Geocoder failures of
// any kind are cached as a non-match. The rate-limit wait happens before the
// call timeout starts.
func (r *Resolver) Query(ctx context.Context, query string) (*models.Geopoint, error) {
	key := processing.PlaceKey(query)
	if key == "" {
		return nil, nil
	}

	point, err := r.cache.Lookup(ctx, key, func() (*models.Geopoint, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Debug("geocode throttled", slog.String("query", query), slog.Any("err", err))
			return nil, errThrottled
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		point, err := r.geocoder.Geocode(callCtx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrNoResult) {
				metrics.GeocodeRequests.WithLabelValues("nomatch").Inc()
			} else {
				metrics.GeocodeRequests.WithLabelValues("error").Inc()
				r.log.Debug("geocode failed", slog.String("query", query), slog.Any("err", err))
			}
			return nil, nil
		}
		metrics.GeocodeRequests.WithLabelValues("match").Inc()
		return &point, nil
	})
	if errors.Is(err, errThrottled) {
		return nil, nil
	}
	return point, err
}

// QueryWithHint tries "<place>, <hint>" when the hint is not already part of
// the place, then the place alone. It returns the point and the query that
// matched.
func (r *Resolver) QueryWithHint(ctx context.Context, place, hint string) (*models.Geopoint, string, error) {
	if strings.TrimSpace(place) == "" {
		return nil, "", nil
	}

	queries := make([]string, 0, 2)
	if h := strings.TrimSpace(hintNoise.ReplaceAllString(hint, " ")); h != "" {
		if !strings.Contains(strings.ToLower(place), strings.ToLower(h)) {
			queries = append(queries, place+", "+h)
		}
	}
	queries = append(queries, place)

	for _, q := range queries {
		point, err := r.Query(ctx, q)
		if err != nil {
			return nil, "", err
		}
		if point != nil {
			return point, q, nil
		}
	}
	return nil, "", nil
}
