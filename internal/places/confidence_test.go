package places_test

import (
	"testing"

	"github.com/DeafMist/geonews/backend/internal/places"
	"github.com/stretchr/testify/require"
)

func TestConfidence(t *testing.T) {
	w := places.DefaultWeights()
	title := "BAHIA COCOA REVIEW - BAHIA RAINS"
	dateline := "SALVADOR, Feb 26 -"

	require.InDelta(t, 2.0, w.Confidence("SALVADOR", title, dateline), 1e-9)
	require.InDelta(t, 1.5+2*0.3, w.Confidence("BAHIA", title, dateline), 1e-9)
	require.InDelta(t, 0, w.Confidence("Bahia", title, dateline), 1e-9)
	require.InDelta(t, 0, w.Confidence("", title, dateline), 1e-9)
}

func TestRankIsStable(t *testing.T) {
	w := places.DefaultWeights()
	got := w.Rank([]string{"Ilheus", "brazil", "BAHIA", "SALVADOR"}, "BAHIA COCOA REVIEW", "SALVADOR, Feb 26 -")
	require.Equal(t, []string{"SALVADOR", "BAHIA", "Ilheus", "brazil"}, got)
}
