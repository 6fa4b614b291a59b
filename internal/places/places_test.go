package places_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DeafMist/geonews/backend/internal/nlp"
	"github.com/DeafMist/geonews/backend/internal/places"
	"github.com/stretchr/testify/require"
)

type stubRecognizer map[string][]nlp.Span

func (s stubRecognizer) Entities(_ context.Context, text string) ([]nlp.Span, error) {
	if text == "boom" {
		return nil, errors.New("recognizer down")
	}
	return s[text], nil
}

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Bahia", want: "Bahia"},
		{name: "month tail", input: "TOKYO Feb 26", want: "TOKYO"},
		{name: "month tail lower", input: "London mar 3 1987", want: "London"},
		{name: "whitespace", input: "New\n   York", want: "New York"},
		{name: "corporate suffix", input: "Hong Kong Ltd.", want: "Hong Kong"},
		{name: "corporate suffix no dot", input: "Brazil Coffee Co", want: "Brazil Coffee"},
		{name: "full month name kept", input: "February Island", want: "February Island"},
		{name: "morocco untouched", input: "Morocco", want: "Morocco"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, places.Clean(tt.input))
		})
	}
}

func TestIsReasonable(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "", want: false},
		{input: "XJ-6", want: false},
		{input: "MD80", want: false},
		{input: "a/b 12", want: false},
		{input: "Route 66-A", want: false},
		{input: "1987", want: false},
		{input: "--", want: false},
		{input: "Salvador", want: true},
		{input: "Route 66", want: true},
		{input: "St. John's", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, places.IsReasonable(tt.input))
		})
	}
}

func TestDedupe(t *testing.T) {
	got := places.Dedupe([]string{"U.S.", "Bahia", "u s", "BAHIA", "XJ-6", " ", "Salvador Feb 26", "SALVADOR"})
	require.Equal(t, []string{"U.S.", "Bahia", "Salvador"}, got)
}

func TestCandidates(t *testing.T) {
	rec := stubRecognizer{
		"SALVADOR, Feb 26 -": {{Text: "SALVADOR", Label: nlp.LabelGPE, Start: 0}},
		"BAHIA COCOA REVIEW": {{Text: "BAHIA", Label: nlp.LabelGPE, Start: 0}},
		"Rain in Bahia and the Ilheus port area, said Comissaria Smith.": {
			{Text: "Bahia", Label: nlp.LabelGPE, Start: 8},
			{Text: "Ilheus", Label: nlp.LabelFac, Start: 22},
			{Text: "Comissaria Smith", Label: "ORG", Start: 45},
		},
	}
	ex := places.NewExtractor(rec, nil)

	got := ex.Candidates(context.Background(),
		"SALVADOR, Feb 26 -",
		"BAHIA COCOA REVIEW",
		"Rain in Bahia and the Ilheus port area, said Comissaria Smith.",
		[]string{"brazil"},
	)
	require.Equal(t, []string{"SALVADOR", "BAHIA", "Ilheus", "brazil"}, got)
}

func TestFindSurvivesRecognizerFailure(t *testing.T) {
	ex := places.NewExtractor(stubRecognizer{}, nil)
	require.Empty(t, ex.Find(context.Background(), "boom"))
	require.Empty(t, ex.Find(context.Background(), ""))
}

func TestDatelinePlace(t *testing.T) {
	p, ok := places.DatelinePlace("SALVADOR, Feb 26 -")
	require.True(t, ok)
	require.Equal(t, "SALVADOR", p)

	p, ok = places.DatelinePlace("  NEW YORK, March 3 -")
	require.True(t, ok)
	require.Equal(t, "NEW YORK", p)

	_, ok = places.DatelinePlace("Feb 26 -")
	require.False(t, ok)

	_, ok = places.DatelinePlace("")
	require.False(t, ok)
}

func TestCountryHint(t *testing.T) {
	hint, ok := places.CountryHint([]string{"", "U.S.A.", "brazil"})
	require.True(t, ok)
	require.Equal(t, "USA", hint)

	hint, ok = places.CountryHint([]string{"brazil"})
	require.True(t, ok)
	require.Equal(t, "brazil", hint)

	hint, ok = places.CountryHint([]string{"west-germany"})
	require.True(t, ok)
	require.Equal(t, "westgermany", hint)

	_, ok = places.CountryHint(nil)
	require.False(t, ok)
}
