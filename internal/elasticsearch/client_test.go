package elasticsearch_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DeafMist/geonews/backend/internal/elasticsearch"
	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster answers like Elasticsearch and hands each request to handle.
func fakeCluster(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, body []byte)) (*elasticsearch.Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handle(w, r, body)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.New(server.URL, "reuters", nil)
	require.NoError(t, err)
	return client, &hits
}

func TestIndexDocumentRequiresID(t *testing.T) {
	client, hits := fakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.Write([]byte(`{}`))
	})

	err := client.IndexDocument(context.Background(), models.EnrichedDocument{Title: "NO ID"})
	require.True(t, errors.Is(err, elasticsearch.ErrMissingID))
	require.Zero(t, hits.Load())
}

func TestIndexDocument(t *testing.T) {
	var path, method string
	var sent map[string]any
	client, _ := fakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		path, method = r.URL.Path, r.Method
		if err := json.Unmarshal(body, &sent); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	doc := models.EnrichedDocument{
		ID:               "5",
		Title:            "BAHIA COCOA REVIEW",
		CountryKeys:      []string{"br"},
		Geopoint:         &models.Geopoint{Lat: -12.97, Lon: -38.5},
		ContentEmbedding: []float32{0.6, 0.8},
	}
	require.NoError(t, client.IndexDocument(context.Background(), doc))

	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/reuters/_doc/5", path)
	require.Equal(t, []any{"br"}, sent["countryKeys"])
	require.Equal(t, map[string]any{"lat": -12.97, "lon": -38.5}, sent["geopoint"])
	require.Len(t, sent["content_embedding"], 2)
}

func TestIndexDocumentFailure(t *testing.T) {
	client, _ := fakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := client.IndexDocument(context.Background(), models.EnrichedDocument{ID: "1"})
	require.ErrorContains(t, err, "mapper_parsing_exception")
}

func TestGetDocument(t *testing.T) {
	client, _ := fakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		if r.URL.Path == "/reuters/_doc/missing" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"found":false}`))
			return
		}
		w.Write([]byte(`{"found":true,"_source":{"id":"5","title":"BAHIA COCOA REVIEW","countryKeys":["br"]}}`))
	})

	doc, err := client.GetDocument(context.Background(), "5")
	require.NoError(t, err)
	require.Equal(t, "BAHIA COCOA REVIEW", doc.Title)
	require.Equal(t, []string{"br"}, doc.CountryKeys)

	_, err = client.GetDocument(context.Background(), "missing")
	require.ErrorIs(t, err, elasticsearch.ErrNotFound)
}

func TestSearchDocuments(t *testing.T) {
	var query map[string]any
	client, _ := fakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		assert.Equal(t, "/reuters/_search", r.URL.Path)
		assert.NoError(t, json.Unmarshal(body, &query))
		w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"5","countryKeys":["br"]}}]}}`))
	})

	start := time.Date(1987, time.February, 1, 0, 0, 0, 0, time.UTC)
	res, err := client.SearchDocuments(context.Background(), elasticsearch.SearchParams{Country: "BR", Start: &start, Size: 500})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	require.Equal(t, "5", res.Items[0].ID)
	require.EqualValues(t, 200, query["size"])
}

func TestSearchQuery(t *testing.T) {
	start := time.Date(1987, time.February, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(1987, time.March, 1, 0, 0, 0, 0, time.UTC)

	q := elasticsearch.SearchQuery(elasticsearch.SearchParams{Country: "BR", Start: &start, End: &end, Size: 10})
	filters := q["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]map[string]any)
	require.Len(t, filters, 2)
	require.Equal(t, map[string]any{"countryKeys": "br"}, filters[0]["term"])
	require.Equal(t, map[string]any{
		"date": map[string]any{"gte": "1987-02-01T00:00:00Z", "lte": "1987-03-01T00:00:00Z"},
	}, filters[1]["range"])

	all := elasticsearch.SearchQuery(elasticsearch.SearchParams{})
	b := all["query"].(map[string]any)["bool"].(map[string]any)
	require.NotContains(t, b, "filter")
	require.Contains(t, b, "must")
}

func TestEnsureIndex(t *testing.T) {
	t.Run("creates with vector mapping", func(t *testing.T) {
		var created map[string]any
		client, _ := fakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
			switch r.Method {
			case http.MethodHead:
				w.WriteHeader(http.StatusNotFound)
			case http.MethodPut:
				assert.Equal(t, "/reuters", r.URL.Path)
				assert.NoError(t, json.Unmarshal(body, &created))
				w.Write([]byte(`{"acknowledged":true}`))
			}
		})

		require.NoError(t, client.EnsureIndex(context.Background(), 384))
		props := created["mappings"].(map[string]any)["properties"].(map[string]any)
		require.Equal(t, "geo_point", props["geopoint"].(map[string]any)["type"])
		require.EqualValues(t, 384, props["content_embedding"].(map[string]any)["dims"])
	})

	t.Run("existing index untouched", func(t *testing.T) {
		client, hits := fakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
			assert.Equal(t, http.MethodHead, r.Method)
			w.WriteHeader(http.StatusOK)
		})

		require.NoError(t, client.EnsureIndex(context.Background(), 0))
		require.EqualValues(t, 1, hits.Load())
	})
}

func TestMappingWithoutEmbedding(t *testing.T) {
	props := elasticsearch.Mapping(0)["mappings"].(map[string]any)["properties"].(map[string]any)
	require.NotContains(t, props, "content_embedding")
	require.Contains(t, props, "countryKeys")
}

func TestConnectWaitsForCluster(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := elasticsearch.Connect(context.Background(), server.URL, "reuters", nil,
		elasticsearch.Backoff{Attempts: 5, Initial: time.Millisecond, Max: 2 * time.Millisecond})
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestConnectGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := elasticsearch.Connect(context.Background(), server.URL, "reuters", nil,
		elasticsearch.Backoff{Attempts: 2, Initial: time.Millisecond, Max: time.Millisecond})
	require.ErrorContains(t, err, "after 2 attempts")
}
