package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/geonews/backend/internal/models"
)

var (
	// ErrMissingID is returned for documents that have no stable id.
	ErrMissingID = errors.New("document has no id")
	// ErrNotFound is returned when a document id is not in the index.
	ErrNotFound = errors.New("document not found")
)

// Client wraps go-elasticsearch with helpers tailored to this project.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// SearchParams are the term and range filters of the listing endpoint.
type SearchParams struct {
	Country string
	Start   *time.Time
	End     *time.Time
	From    int
	Size    int
}

// SearchResult bundles hits and total count.
type SearchResult struct {
	Total int64
	Items []models.EnrichedDocument
}

// New instantiates the Elasticsearch client.
func New(addr, index string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, index: index, log: logger}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Mapping is the index mapping for enriched documents. A positive dims adds
// the content_embedding dense vector.
func Mapping(dims int) map[string]any {
	keyword := map[string]any{"type": "keyword"}
	text := map[string]any{"type": "text"}

	props := map[string]any{
		"id":       keyword,
		"title":    text,
		"content":  text,
		"dateline": text,
		"topics":   keyword,
		"places":   keyword,
		"authors": map[string]any{
			"properties": map[string]any{
				"first": keyword,
				"last":  keyword,
				"email": keyword,
			},
		},
		"date":     map[string]any{"type": "date", "format": "strict_date_optional_time"},
		"geopoint": map[string]any{"type": "geo_point"},
		"temporalExpressions": map[string]any{
			"type": "nested",
			"properties": map[string]any{
				"text":        text,
				"normalized":  map[string]any{"type": "date", "format": "strict_date"},
				"source":      keyword,
				"has_year":    map[string]any{"type": "boolean"},
				"is_relative": map[string]any{"type": "boolean"},
				"position":    map[string]any{"type": "integer"},
				"confidence":  map[string]any{"type": "float"},
			},
		},
		"georeferences": map[string]any{
			"type": "nested",
			"properties": map[string]any{
				"name":         keyword,
				"key":          keyword,
				"confidence":   map[string]any{"type": "float"},
				"country_code": keyword,
			},
		},
		"countryKeys": keyword,
		"approximations": map[string]any{
			"properties": map[string]any{
				"date_is_approx":     map[string]any{"type": "boolean"},
				"geopoint_is_approx": map[string]any{"type": "boolean"},
				"geopoint_from":      keyword,
			},
		},
	}

	if dims > 0 {
		props["content_embedding"] = map[string]any{
			"type":       "dense_vector",
			"dims":       dims,
			"index":      true,
			"similarity": "cosine",
		}
	}

	return map[string]any{"mappings": map[string]any{"properties": props}}
}

// EnsureIndex creates the index with Mapping(dims) unless it already exists.
func (c *Client) EnsureIndex(ctx context.Context, dims int) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	payload, err := json.Marshal(Mapping(dims))
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// Another process won the race.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index failed: %s", strings.TrimSpace(string(body)))
	}

	c.log.Info("index created", slog.String("index", c.index), slog.Int("dims", dims))
	return nil
}

// IndexDocument writes an enriched document under its id.
func (c *Client) IndexDocument(ctx context.Context, doc models.EnrichedDocument) error {
	if !doc.HasIdentity() {
		return ErrMissingID
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

// GetDocument fetches one document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.EnrichedDocument, error) {
	res, err := c.es.Get(c.index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get doc: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get doc failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Found  bool                    `json:"found"`
		Source models.EnrichedDocument `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !parsed.Found {
		return nil, ErrNotFound
	}
	return &parsed.Source, nil
}

// SearchQuery builds the filter-only query body for params, newest first.
func SearchQuery(params SearchParams) map[string]any {
	filters := make([]map[string]any, 0, 2)

	if params.Country != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{
				"countryKeys": strings.ToLower(params.Country),
			},
		})
	}

	if params.Start != nil || params.End != nil {
		rangeQuery := map[string]any{}
		if params.Start != nil {
			rangeQuery["gte"] = params.Start.UTC().Format(time.RFC3339)
		}
		if params.End != nil {
			rangeQuery["lte"] = params.End.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"date": rangeQuery,
			},
		})
	}

	boolQuery := map[string]any{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	} else {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	return map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": boolQuery,
		},
		"sort": []map[string]any{
			{"date": map[string]any{"order": "desc", "missing": "_last"}},
		},
		"_source": map[string]any{
			"excludes": []string{"content_embedding"},
		},
	}
}

// SearchDocuments lists documents matching the country and date filters.
func (c *Client) SearchDocuments(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Size <= 0 {
		params.Size = 20
	}
	if params.Size > 200 {
		params.Size = 200
	}
	if params.From < 0 {
		params.From = 0
	}

	payload, err := json.Marshal(SearchQuery(params))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.EnrichedDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]models.EnrichedDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}

	return &SearchResult{
		Total: parsed.Hits.Total.Value,
		Items: items,
	}, nil
}

// Health pings Elasticsearch to ensure connectivity.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}
