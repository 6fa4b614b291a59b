package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/DeafMist/geonews/backend/internal/authors"
	"github.com/DeafMist/geonews/backend/internal/country"
	"github.com/DeafMist/geonews/backend/internal/embedding"
	"github.com/DeafMist/geonews/backend/internal/geocode"
	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/DeafMist/geonews/backend/internal/nlp"
	"github.com/DeafMist/geonews/backend/internal/places"
	"github.com/DeafMist/geonews/backend/internal/processing"
	"github.com/DeafMist/geonews/backend/internal/temporal"
)

// publishedLayout renders an authoritative publication date. Approximate
// dates keep the calendar-date form of the expression they came from.
const publishedLayout = "2006-01-02T15:04:05"

// Resolver runs the geocode cascade for one document.
type Resolver interface {
	Resolve(ctx context.Context, req geocode.Request) (geocode.Result, bool, error)
}

// Dependencies are the collaborators an Enricher is built from. Recognizer,
// Parser and Resolver are required.
type Dependencies struct {
	Recognizer nlp.EntityRecognizer
	Parser     nlp.DateParser
	Resolver   Resolver
	// Countries defaults to the embedded ISO 3166 dataset.
	Countries *country.Canonicalizer
	// Embedder is optional; without it no content embedding is attached.
	Embedder embedding.Embedder
	Logger   *slog.Logger
}

// Settings hold the tunable constants.
type Settings struct {
	ReferenceYear   int
	TemporalWeights temporal.Weights
	GeoWeights      places.Weights
}

// DefaultSettings returns the stock heuristics.
func DefaultSettings() Settings {
	return Settings{
		ReferenceYear:   temporal.DefaultReferenceYear,
		TemporalWeights: temporal.DefaultWeights(),
		GeoWeights:      places.DefaultWeights(),
	}
}

// Enricher turns raw stories into enriched documents. It holds no
// per-document state and is safe for concurrent use when its collaborators
// are.
type Enricher struct {
	temporal  *temporal.Extractor
	places    *places.Extractor
	resolver  Resolver
	countries *country.Canonicalizer
	embedder  embedding.Embedder
	settings  Settings
	log       *slog.Logger
}

// New wires an Enricher.
func New(deps Dependencies, settings Settings) (*Enricher, error) {
	if deps.Recognizer == nil || deps.Parser == nil || deps.Resolver == nil {
		return nil, errors.New("enrich: recognizer, parser and resolver are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	countries := deps.Countries
	if countries == nil {
		c, err := country.Default()
		if err != nil {
			return nil, err
		}
		countries = c
	}

	return &Enricher{
		temporal:  temporal.NewExtractor(deps.Recognizer, deps.Parser, settings.ReferenceYear, logger),
		places:    places.NewExtractor(deps.Recognizer, logger),
		resolver:  deps.Resolver,
		countries: countries,
		embedder:  deps.Embedder,
		settings:  settings,
		log:       logger,
	}, nil
}

// Enrich builds the EnrichedDocument for raw. Collaborator failures only
// lose the affected values; the error is non-nil only when ctx is done.
func (e *Enricher) Enrich(ctx context.Context, raw models.RawDocument) (models.EnrichedDocument, error) {
	if err := ctx.Err(); err != nil {
		return models.EnrichedDocument{}, err
	}

	published := raw.DatePublished
	if published != nil && published.IsZero() {
		published = nil
	}

	exprs := e.temporal.Extract(ctx, temporal.Fields{
		Dateline: raw.Dateline,
		Title:    raw.Title,
		Content:  raw.Content,
	}, published)

	doc := models.EnrichedDocument{
		ID:                  raw.ID,
		Title:               raw.Title,
		Content:             raw.Content,
		Dateline:            raw.Dateline,
		Topics:              nonNil(raw.Topics),
		Places:              nonNil(raw.Places),
		Authors:             authors.Parse(raw.AuthorRaw),
		TemporalExpressions: e.settings.TemporalWeights.Score(exprs),
	}

	if published != nil {
		d := published.Format(publishedLayout)
		doc.Date = &d
	} else if best, ok := e.settings.TemporalWeights.BestDate(exprs); ok {
		d := best.Normalized
		doc.Date = &d
		doc.Approximations.DateIsApprox = true
	}

	candidates := e.places.Candidates(ctx, raw.Dateline, raw.Title, raw.Content, raw.Places)

	req := geocode.Request{
		Title:      raw.Title,
		Dateline:   raw.Dateline,
		Candidates: candidates,
	}
	req.DatelinePlace, _ = places.DatelinePlace(raw.Dateline)
	req.CountryHint, _ = places.CountryHint(raw.Places)

	res, ok, err := e.resolver.Resolve(ctx, req)
	if err != nil {
		return models.EnrichedDocument{}, err
	}
	if ok {
		point := res.Point
		from := res.From
		doc.Geopoint = &point
		doc.Approximations.GeopointIsApprox = true
		doc.Approximations.GeopointFrom = &from
	}

	georefs := make([]models.Georeference, 0, len(candidates))
	for _, p := range candidates {
		georefs = append(georefs, models.Georeference{
			Name:       p,
			Key:        processing.GeoKey(p),
			Confidence: e.settings.GeoWeights.Confidence(p, raw.Title, raw.Dateline),
		})
	}
	doc.CountryKeys, doc.Georeferences = e.countries.Apply(raw.Places, georefs)

	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, doc.EmbeddingText())
		switch {
		case err == nil:
			doc.ContentEmbedding = vec
		case ctx.Err() != nil:
			return models.EnrichedDocument{}, ctx.Err()
		default:
			e.log.Warn("embedding failed", slog.String("id", raw.ID), slog.Any("err", err))
		}
	}

	if ctx.Err() != nil {
		return models.EnrichedDocument{}, ctx.Err()
	}
	return doc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
