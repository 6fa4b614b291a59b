// Package places extracts place mentions from wire stories and cleans them
// into geocodable candidates.
package places

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/DeafMist/geonews/backend/internal/nlp"
	"github.com/DeafMist/geonews/backend/internal/processing"
)

var (
	// An entity span that bled into a following date ("Tokyo Feb 26").
	monthTail  = regexp.MustCompile(`(?is)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\b.*$`)
	corpSuffix = regexp.MustCompile(`(?i)\b(inc|inc\.|co|co\.|corp|corp\.|ltd|ltd\.|plc|llc)\b\.?\s*$`)
	// Product-code shapes such as "XJ-6" or "MD80".
	productCode   = regexp.MustCompile(`(?i)^[A-Z]{1,4}[-_/]?\d{1,4}$`)
	datelinePlace = regexp.MustCompile(`^\s*([A-Z][A-Z\s\-]+),`)
)

// Clean strips a trailing month-led date, squeezes whitespace and drops a
// trailing corporate suffix.
func Clean(name string) string {
	cleaned := strings.TrimSpace(monthTail.ReplaceAllString(name, ""))
	cleaned = processing.CollapseSpace(cleaned)
	cleaned = strings.TrimSpace(corpSuffix.ReplaceAllString(cleaned, ""))
	return cleaned
}

// IsReasonable rejects empty strings, product codes, digit-and-connector
// tokens and strings without letters.
func IsReasonable(p string) bool {
	if p == "" {
		return false
	}
	if productCode.MatchString(strings.TrimSpace(p)) {
		return false
	}

	digits := 0
	for _, r := range p {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= 2 && strings.ContainsAny(p, "-_/") {
		return false
	}

	return processing.HasLetter(p)
}

// Dedupe cleans every name, drops unreasonable ones and keeps the first
// spelling of each PlaceKey.
func Dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		p := Clean(n)
		if !IsReasonable(p) {
			continue
		}
		k := processing.PlaceKey(p)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Extractor finds GPE, LOC and FAC entities.
type Extractor struct {
	recognizer nlp.EntityRecognizer
	log        *slog.Logger
}

// NewExtractor wires the extractor to a recognizer.
func NewExtractor(recognizer nlp.EntityRecognizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{recognizer: recognizer, log: logger}
}

// Find returns the cleaned place mentions of one text, in order.
// Duplicates are kept; Dedupe removes them across fields.
func (e *Extractor) Find(ctx context.Context, text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	spans, err := e.recognizer.Entities(ctx, text)
	if err != nil {
		e.log.Debug("place recognition failed", slog.Any("err", err))
		return nil
	}

	var out []string
	for _, s := range nlp.Filter(spans, nlp.LabelGPE, nlp.LabelLoc, nlp.LabelFac) {
		if p := Clean(s.Text); IsReasonable(p) {
			out = append(out, p)
		}
	}
	return out
}

// Candidates collects places from dateline, title and content, then the
// explicit place tags, and dedupes them.
func (e *Extractor) Candidates(ctx context.Context, dateline, title, content string, tags []string) []string {
	var all []string
	all = append(all, e.Find(ctx, dateline)...)
	all = append(all, e.Find(ctx, title)...)
	all = append(all, e.Find(ctx, content)...)
	all = append(all, tags...)
	return Dedupe(all)
}

// DatelinePlace returns the leading upper-case place of a dateline
// ("SALVADOR, Feb 26 -" -> "SALVADOR"). Source casing is kept.
func DatelinePlace(dateline string) (string, bool) {
	m := datelinePlace.FindStringSubmatch(dateline)
	if m == nil {
		return "", false
	}
	p := strings.TrimSpace(m[1])
	return p, p != ""
}

// CountryHint derives a geocoding hint from the explicit place tags: the
// first non-empty tag, with abbreviation punctuation collapsed ("U.S.A." ->
// "USA").
func CountryHint(tags []string) (string, bool) {
	for _, t := range tags {
		hint := strings.TrimSpace(t)
		if hint == "" {
			continue
		}
		collapsed := processing.CollapseAbbrev(hint)
		if collapsed != "" && !strings.EqualFold(collapsed, hint) {
			return collapsed, true
		}
		return hint, true
	}
	return "", false
}
