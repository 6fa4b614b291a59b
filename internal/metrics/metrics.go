package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DocumentsEnriched counts enriched documents by outcome
	// (indexed, skipped, failed).
	DocumentsEnriched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geonews_documents_enriched_total",
		Help: "Documents processed by the enrichment pipeline by outcome",
	}, []string{"outcome"})

	// GeocodeRequests counts calls to the external geocoder by result
	// (match, nomatch, error).
	GeocodeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geonews_geocode_requests_total",
		Help: "External geocoder invocations by result",
	}, []string{"result"})

	// GeocacheLookups counts geocode cache lookups (hit, miss).
	GeocacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geonews_geocache_lookups_total",
		Help: "Geocode cache lookups by result",
	}, []string{"result"})

	// GeopointsResolved counts documents by the cascade step that produced
	// their geopoint, or "none".
	GeopointsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geonews_geopoints_resolved_total",
		Help: "Documents by the geocode strategy that resolved them",
	}, []string{"strategy"})
)

var registerOnce sync.Once

// Register adds every collector to reg. Only the first call has an effect.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(DocumentsEnriched, GeocodeRequests, GeocacheLookups, GeopointsResolved)
	})
}
