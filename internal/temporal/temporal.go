// Package temporal extracts date mentions from wire stories, normalizes them
// to ISO calendar dates and scores how much each one can be trusted.
package temporal

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/DeafMist/geonews/backend/internal/nlp"
	"github.com/DeafMist/geonews/backend/internal/processing"
)

// DefaultReferenceYear anchors relative and year-less dates when a story has
// no publication date. The Reuters-21578 collection is from 1987.
const DefaultReferenceYear = 1987

const isoLayout = "2006-01-02"

var (
	yearRe     = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)
	decadeRe   = regexp.MustCompile(`(?i)\b((18|19|20)\d{2})s\b`)
	monthRe    = regexp.MustCompile(`(?i)\b(jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|jun(e)?|jul(y)?|aug(ust)?|sep(tember)?|sept(ember)?|oct(ober)?|nov(ember)?|dec(ember)?)\b`)
	dayRe      = regexp.MustCompile(`\b([1-9]|[12]\d|3[01])\b`)
	relativeRe = regexp.MustCompile(`(?i)\b(today|yesterday|tomorrow|tonight|this\s+(week|month|year)|last\s+(week|month|year)|next\s+(week|month|year))\b`)
)

// Fields are the text fields scanned for dates.
type Fields struct {
	Dateline string
	Title    string
	Content  string
}

// Extractor finds DATE entities and normalizes them.
type Extractor struct {
	recognizer nlp.EntityRecognizer
	parser     nlp.DateParser
	refYear    int
	log        *slog.Logger
}

// NewExtractor wires the extractor to its collaborators. A refYear <= 0 means
// DefaultReferenceYear.
func NewExtractor(recognizer nlp.EntityRecognizer, parser nlp.DateParser, refYear int, logger *slog.Logger) *Extractor {
	if refYear <= 0 {
		refYear = DefaultReferenceYear
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{recognizer: recognizer, parser: parser, refYear: refYear, log: logger}
}

// Reference returns the anchor date used for a story: its publication date
// when known, January 1 of the reference year otherwise.
func (e *Extractor) Reference(published *time.Time) time.Time {
	if published != nil && !published.IsZero() {
		return *published
	}
	return time.Date(e.refYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Extract returns every distinct date mention in dateline, title and content,
// in that order. Mentions that cannot be normalized are dropped. A recognizer
// failure on one field only loses that field.
func (e *Extractor) Extract(ctx context.Context, f Fields, published *time.Time) []models.TemporalExpression {
	ref := e.Reference(published)
	out := make([]models.TemporalExpression, 0)
	seen := make(map[string]struct{})

	collect := func(src models.Source, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		spans, err := e.recognizer.Entities(ctx, text)
		if err != nil {
			e.log.Debug("date recognition failed", slog.String("source", string(src)), slog.Any("err", err))
			return
		}

		for _, span := range nlp.Filter(spans, nlp.LabelDate) {
			if !IsCandidate(span.Text) {
				continue
			}
			norm, ok := Normalize(span.Text, ref, e.parser)
			if !ok {
				e.log.Debug("unparseable date dropped", slog.String("text", span.Text))
				continue
			}

			key := strings.ToLower(span.Text) + "\x00" + norm + "\x00" + string(src)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			out = append(out, models.TemporalExpression{
				Text:       span.Text,
				Normalized: norm,
				HasYear:    HasYearLike(span.Text),
				IsRelative: IsRelative(span.Text),
				Position:   span.Start,
				Source:     src,
			})
		}
	}

	collect(models.SourceDateline, f.Dateline)
	collect(models.SourceTitle, f.Title)
	collect(models.SourceContent, f.Content)

	return out
}

// IsCandidate rejects spans that are bare numbers or short letterless tokens
// such as page numbers.
func IsCandidate(raw string) bool {
	s := strings.TrimSpace(raw)
	if processing.IsDigits(s) {
		return false
	}
	if !processing.HasLetter(s) && len(s) <= 2 {
		return false
	}
	return true
}

// HasYearLike reports an explicit year or a decade ("1990s").
func HasYearLike(raw string) bool {
	return yearRe.MatchString(raw) || decadeRe.MatchString(raw)
}

// IsRelative reports expressions anchored to the reference date ("today",
// "last month").
func IsRelative(raw string) bool {
	return relativeRe.MatchString(raw)
}

// Normalize maps a date mention to YYYY-MM-DD.
//
// Decades become January 1 of their first year. Everything else goes through
// parser anchored at ref, then: a year-less absolute mention takes ref's year,
// a month without a day gets day 1, and a bare year gets January 1.
func Normalize(raw string, ref time.Time, parser nlp.DateParser) (string, bool) {
	if m := decadeRe.FindStringSubmatch(raw); m != nil {
		year, err := strconv.Atoi(m[1])
		if err != nil {
			return "", false
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(isoLayout), true
	}

	hasYear := yearRe.MatchString(raw)
	hasMonth := monthRe.MatchString(raw)
	hasDay := dayRe.MatchString(raw)
	relative := IsRelative(raw)

	parsed, ok := parser.ParseDate(raw, ref)
	if !ok {
		return "", false
	}

	year, month, day := parsed.Date()
	if !hasYear && !relative {
		year = ref.Year()
	}
	if hasMonth && !hasDay && !relative {
		day = 1
	}
	if hasYear && !hasMonth && !hasDay && !relative {
		month, day = time.January, 1
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		// Feb 29 moved into a non-leap year.
		return "", false
	}
	return t.Format(isoLayout), true
}
