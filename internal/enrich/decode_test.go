package enrich_test

import (
	"testing"
	"time"

	"github.com/DeafMist/geonews/backend/internal/config"
	"github.com/DeafMist/geonews/backend/internal/enrich"
	"github.com/stretchr/testify/require"
)

func TestDecodeRaw(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *time.Time
	}{
		{
			name: "reuters timestamp",
			in:   `{"id":"5","title":"BAHIA COCOA REVIEW","date_published":"26-FEB-1987 15:01:01.79","places":["brazil"]}`,
			want: ptr(time.Date(1987, time.February, 26, 15, 1, 1, 790000000, time.UTC)),
		},
		{
			name: "rfc3339",
			in:   `{"id":"6","date_published":"1987-03-02T09:34:12Z"}`,
			want: ptr(time.Date(1987, time.March, 2, 9, 34, 12, 0, time.UTC)),
		},
		{name: "null date", in: `{"id":"7","date_published":null}`},
		{name: "garbled date", in: `{"id":"8","date_published":"sometime in spring"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := enrich.DecodeRaw([]byte(tt.in))
			require.NoError(t, err)
			if tt.want == nil {
				require.Nil(t, raw.DatePublished)
				return
			}
			require.NotNil(t, raw.DatePublished)
			require.True(t, tt.want.Equal(*raw.DatePublished), "got %s", raw.DatePublished)
		})
	}
}

func TestDecodeRawMalformed(t *testing.T) {
	_, err := enrich.DecodeRaw([]byte(`{"id":`))
	require.Error(t, err)
}

func TestSettingsFrom(t *testing.T) {
	s := enrich.SettingsFrom(config.Enrich{
		ReferenceYear:          1990,
		PositionDecay:          250,
		TemporalDatelineWeight: 3,
		TemporalMax:            4,
		GeoTitleWeight:         1.0,
	})
	require.Equal(t, 1990, s.ReferenceYear)
	require.Equal(t, 250.0, s.TemporalWeights.PositionDecay)
	require.Equal(t, 3.0, s.TemporalWeights.Dateline)
	require.Equal(t, 4.0, s.TemporalWeights.Max)
	require.Equal(t, 1.0, s.GeoWeights.Title)
}

func ptr(t time.Time) *time.Time { return &t }
