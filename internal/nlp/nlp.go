// Package nlp holds the contracts for the language collaborators used by
// enrichment (entity recognition and date parsing) and their default clients.
package nlp

import (
	"context"
	"time"
)

// Entity labels produced by the recognizer.
const (
	LabelDate = "DATE"
	LabelGPE  = "GPE"
	LabelLoc  = "LOC"
	LabelFac  = "FAC"
)

// Span is one recognized entity. Start is the offset of the span in the
// analyzed text.
type Span struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
}

// EntityRecognizer labels entity spans in free text.
type EntityRecognizer interface {
	Entities(ctx context.Context, text string) ([]Span, error)
}

// DateParser interprets a free-text date relative to ref. The boolean is
// false when the text cannot be read as a date.
type DateParser interface {
	ParseDate(text string, ref time.Time) (time.Time, bool)
}

// Filter returns the spans carrying one of the given labels, in order.
func Filter(spans []Span, labels ...string) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		for _, l := range labels {
			if s.Label == l {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
