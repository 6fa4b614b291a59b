package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/geonews/backend/internal/metrics"
)

func TestRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	require.NotPanics(t, func() { metrics.Register(reg) })

	metrics.GeocodeRequests.WithLabelValues("match").Inc()
	metrics.DocumentsEnriched.WithLabelValues("indexed").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["geonews_geocode_requests_total"])
	require.True(t, names["geonews_documents_enriched_total"])
}
