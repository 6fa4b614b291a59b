// Package authors turns wire-story bylines into structured author records.
package authors

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/DeafMist/geonews/backend/internal/processing"
)

var (
	byMarker    = regexp.MustCompile(`(?i)^\s*by\s+|,?\s*reuters\s*$`)
	separators  = regexp.MustCompile(`(?i)\s+and\s+|[;,]\s*`)
	parentheses = regexp.MustCompile(`\(.*?\)`)
	nameNoise   = regexp.MustCompile(`[^\p{L}\p{N}_\s\-']`)
)

// Parse splits a raw byline such as "By John Smith and Jane Doe, Reuters"
// into authors. Segments with fewer than two tokens are ignored and
// duplicates keep their first position. Empty input yields an empty slice.
func Parse(raw string) []models.Author {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []models.Author{}
	}

	text := byMarker.ReplaceAllString(raw, "")
	parts := separators.Split(text, -1)

	title := cases.Title(language.Und)
	out := make([]models.Author, 0, len(parts))
	seen := make(map[[2]string]struct{}, len(parts))

	for _, part := range parts {
		part = parentheses.ReplaceAllString(part, " ")
		part = nameNoise.ReplaceAllString(part, " ")
		tokens := strings.Fields(processing.CollapseSpace(part))
		if len(tokens) < 2 {
			continue
		}

		a := models.Author{
			First: titleName(title, tokens[0]),
			Last:  titleName(title, strings.Join(tokens[1:], " ")),
		}
		key := [2]string{a.First, a.Last}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}

	return out
}

// titleName capitalizes every apostrophe-separated piece, so "o'brien"
// becomes "O'Brien" rather than "O'brien".
func titleName(title cases.Caser, name string) string {
	pieces := strings.Split(name, "'")
	for i, p := range pieces {
		pieces[i] = title.String(p)
	}
	return strings.Join(pieces, "'")
}
