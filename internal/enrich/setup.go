package enrich

import (
	"context"
	"log/slog"

	"github.com/DeafMist/geonews/backend/internal/config"
	"github.com/DeafMist/geonews/backend/internal/embedding"
	"github.com/DeafMist/geonews/backend/internal/geocache"
	"github.com/DeafMist/geonews/backend/internal/geocode"
	"github.com/DeafMist/geonews/backend/internal/nlp"
	"github.com/DeafMist/geonews/backend/internal/places"
	"github.com/DeafMist/geonews/backend/internal/temporal"
)

// SettingsFrom maps the configured heuristics onto Settings.
func SettingsFrom(cfg config.Enrich) Settings {
	return Settings{
		ReferenceYear: cfg.ReferenceYear,
		TemporalWeights: temporal.Weights{
			Year:          cfg.TemporalYearWeight,
			Dateline:      cfg.TemporalDatelineWeight,
			Other:         cfg.TemporalOtherWeight,
			Absolute:      cfg.TemporalAbsoluteWeight,
			Relative:      cfg.TemporalRelativeWeight,
			PositionDecay: cfg.PositionDecay,
			Max:           cfg.TemporalMax,
		},
		GeoWeights: places.Weights{
			Dateline: cfg.GeoDatelineWeight,
			Title:    cfg.GeoTitleWeight,
			Repeat:   cfg.GeoRepeatWeight,
		},
	}
}

// FromConfig wires the production collaborators: the HTTP entity
// recognizer, the natural-language date parser, Nominatim behind the
// configured geocode cache and, when EMBEDDING_URL is set, the embedder.
// The returned close function releases the cache connection.
func FromConfig(ctx context.Context, cfg config.Enrich, logger *slog.Logger) (*Enricher, func(), error) {
	settings := SettingsFrom(cfg)

	var store geocache.Store
	closeFn := func() {}
	switch cfg.GeocacheBackend {
	case config.GeocacheRedis:
		rs, err := geocache.Dial(ctx, cfg.GeocacheRedisAddr, cfg.GeocacheRedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		store = rs
		closeFn = func() {
			if err := rs.Close(); err != nil {
				logger.Warn("close geocache", slog.Any("err", err))
			}
		}
	default:
		if cfg.GeocacheCapacity > 0 {
			logger.Warn("bounded geocache: evicted places may be geocoded again",
				slog.Int("capacity", cfg.GeocacheCapacity))
		}
		store = geocache.NewMemoryStore(cfg.GeocacheCapacity)
	}

	resolver := geocode.NewResolver(
		geocode.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent),
		geocache.New(store, logger),
		geocode.WithTimeout(cfg.GeocoderTimeout),
		geocode.WithInterval(cfg.GeocoderInterval),
		geocode.WithStrategies(geocode.DefaultStrategies(&settings.GeoWeights)...),
		geocode.WithLogger(logger),
	)

	deps := Dependencies{
		Recognizer: nlp.NewHTTPRecognizer(cfg.NERURL, cfg.NERTimeout),
		Parser:     nlp.NewDateParser(),
		Resolver:   resolver,
		Logger:     logger,
	}
	if cfg.EmbeddingURL != "" {
		deps.Embedder = embedding.NewHTTPEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.EmbeddingInterval)
	}

	e, err := New(deps, settings)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return e, closeFn, nil
}
