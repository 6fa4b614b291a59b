package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DeafMist/geonews/backend/internal/models"
)

// ErrNoResult means the geocoder answered but found nothing.
var ErrNoResult = errors.New("geocode: no result")

// Geocoder turns a place query into a point.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (models.Geopoint, error)
}

// Nominatim queries an OpenStreetMap Nominatim search endpoint. It does not
// throttle itself; the Resolver spaces calls.
type Nominatim struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim creates a client for endpoint. Nominatim requires an
// identifying User-Agent.
func NewNominatim(endpoint, userAgent string) *Nominatim {
	return &Nominatim{
		endpoint:  endpoint,
		userAgent: userAgent,
		client:    &http.Client{},
	}
}

// Geocode returns the best match for query, or ErrNoResult.
func (n *Nominatim) Geocode(ctx context.Context, query string) (models.Geopoint, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return models.Geopoint{}, fmt.Errorf("geocode: create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return models.Geopoint{}, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Geopoint{}, fmt.Errorf("geocode: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Geopoint{}, fmt.Errorf("geocode: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results []nominatimPlace
	if err := json.Unmarshal(body, &results); err != nil {
		return models.Geopoint{}, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(results) == 0 {
		return models.Geopoint{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Geopoint{}, fmt.Errorf("geocode: bad latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Geopoint{}, fmt.Errorf("geocode: bad longitude %q: %w", results[0].Lon, err)
	}
	return models.Geopoint{Lat: lat, Lon: lon}, nil
}
