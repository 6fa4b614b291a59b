package processing

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonLower   = regexp.MustCompile(`[^a-z]`)
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	nonLetter  = regexp.MustCompile(`[^A-Za-z]`)
	asciiAlpha = regexp.MustCompile(`[A-Za-z]`)
)

// CollapseSpace squeezes runs of whitespace into single spaces and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// GeoKey is the grouping key for a place name: lowercase ASCII letters only,
// so "U.S.A.", "usa" and "U S A" all become "usa". Not meant for display.
func GeoKey(name string) string {
	if name == "" {
		return ""
	}
	return nonLower.ReplaceAllString(strings.ToLower(name), "")
}

// PlaceKey lowercases, replaces punctuation with spaces and collapses whitespace.
// It is used to dedupe place candidates and as the geocode cache key.
func PlaceKey(s string) string {
	return CollapseSpace(nonWord.ReplaceAllString(strings.ToLower(s), " "))
}

// CollapseAbbrev removes everything except ASCII letters ("U.S.A." -> "USA").
func CollapseAbbrev(s string) string {
	return nonLetter.ReplaceAllString(s, "")
}

// HasLetter reports whether s contains at least one ASCII letter.
func HasLetter(s string) bool {
	return asciiAlpha.MatchString(s)
}

// IsAlpha reports whether s is non-empty and made only of letters.
func IsAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// IsDigits reports whether s is non-empty and made only of decimal digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2-Jan-2006 15:04:05.00",
	"2-Jan-2006 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339, ISO-like and Reuters "26-FEB-1987 15:01:01.79"
// forms. An empty or unrecognized value yields the zero time.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	for _, f := range timestampFormats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}
