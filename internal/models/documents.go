package models

import (
	"strings"
	"time"
)

// RawDocument is a wire story as produced by the markup extraction step.
type RawDocument struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Dateline      string     `json:"dateline"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	Topics        []string   `json:"topics"`
	Places        []string   `json:"places"`
	AuthorRaw     string     `json:"author_raw"`
}

// Author is one parsed byline entry.
type Author struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Email *string `json:"email"`
}

// Source names the field a temporal expression was found in.
type Source string

const (
	SourceDateline Source = "dateline"
	SourceTitle    Source = "title"
	SourceContent  Source = "content"
)

// TemporalExpression is a date mention normalized to an ISO calendar date.
// Position is the offset of the mention inside its source field.
type TemporalExpression struct {
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
	HasYear    bool   `json:"has_year"`
	IsRelative bool   `json:"is_relative"`
	Position   int    `json:"position"`
	Source     Source `json:"source"`
}

// ScoredTemporalExpression is a TemporalExpression with its confidence
// attached for output. The score is always recomputed from the expression.
type ScoredTemporalExpression struct {
	TemporalExpression
	Confidence float64 `json:"confidence"`
}

// Georeference is an extracted place mention.
type Georeference struct {
	Name        string  `json:"name"`
	Key         string  `json:"key"`
	Confidence  float64 `json:"confidence"`
	CountryCode *string `json:"country_code,omitempty"`
}

// Geopoint is a resolved latitude/longitude pair. The JSON shape matches
// the Elasticsearch geo_point object form.
type Geopoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Approximations records which values were inferred heuristically.
type Approximations struct {
	DateIsApprox     bool    `json:"date_is_approx"`
	GeopointIsApprox bool    `json:"geopoint_is_approx"`
	GeopointFrom     *string `json:"geopoint_from"`
}

// EnrichedDocument is the record handed to the search index.
type EnrichedDocument struct {
	ID                  string                     `json:"id"`
	Title               string                     `json:"title"`
	Content             string                     `json:"content"`
	Dateline            string                     `json:"dateline"`
	Topics              []string                   `json:"topics"`
	Places              []string                   `json:"places"`
	Authors             []Author                   `json:"authors"`
	Date                *string                    `json:"date"`
	Geopoint            *Geopoint                  `json:"geopoint"`
	TemporalExpressions []ScoredTemporalExpression `json:"temporalExpressions"`
	Georeferences       []Georeference             `json:"georeferences"`
	CountryKeys         []string                   `json:"countryKeys"`
	Approximations      Approximations             `json:"approximations"`
	ContentEmbedding    []float32                  `json:"content_embedding,omitempty"`
}

// HasIdentity reports whether the document can be persisted under a stable id.
func (d EnrichedDocument) HasIdentity() bool {
	return strings.TrimSpace(d.ID) != ""
}

// EmbeddingText is the text the content embedding is computed from.
func (d EnrichedDocument) EmbeddingText() string {
	return d.Title + " " + d.Content
}
