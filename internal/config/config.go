package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Enrich configures the enrichment pipeline and its external collaborators.
// The worker and the batch driver share it.
type Enrich struct {
	ReferenceYear int
	PositionDecay float64

	TemporalYearWeight     float64
	TemporalDatelineWeight float64
	TemporalOtherWeight    float64
	TemporalAbsoluteWeight float64
	TemporalRelativeWeight float64
	TemporalMax            float64

	GeoDatelineWeight float64
	GeoTitleWeight    float64
	GeoRepeatWeight   float64

	NERURL     string
	NERTimeout time.Duration

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderInterval  time.Duration

	GeocacheBackend     string
	GeocacheCapacity    int
	GeocacheRedisAddr   string
	GeocacheRedisPrefix string

	EmbeddingURL      string
	EmbeddingModel    string
	EmbeddingInterval time.Duration
	EmbeddingDims     int
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	Enrich
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaConsumer string
	BatchSize     int
	MetricsAddr   string
}

// Batch configures the offline JSONL driver.
type Batch struct {
	Common
	Enrich
	Input   string
	Output  string
	Index   bool
	Workers int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr    string
	DefaultPage int
	MaxPage     int
}

// Geocache backends.
const (
	GeocacheMemory = "memory"
	GeocacheRedis  = "redis"
)

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "reuters"),
	}
}

// LoadEnrich builds the enrichment settings from environment variables.
func LoadEnrich() (Enrich, error) {
	c := Enrich{
		ReferenceYear: getInt("ENRICH_REFERENCE_YEAR", 1987),
		PositionDecay: getFloat("ENRICH_POSITION_DECAY", 500),

		TemporalYearWeight:     getFloat("ENRICH_TEMPORAL_YEAR_WEIGHT", 2.0),
		TemporalDatelineWeight: getFloat("ENRICH_TEMPORAL_DATELINE_WEIGHT", 1.5),
		TemporalOtherWeight:    getFloat("ENRICH_TEMPORAL_OTHER_WEIGHT", 0.5),
		TemporalAbsoluteWeight: getFloat("ENRICH_TEMPORAL_ABSOLUTE_WEIGHT", 1.0),
		TemporalRelativeWeight: getFloat("ENRICH_TEMPORAL_RELATIVE_WEIGHT", -1.0),
		TemporalMax:            getFloat("ENRICH_TEMPORAL_MAX", 5.0),

		GeoDatelineWeight: getFloat("ENRICH_GEO_DATELINE_WEIGHT", 2.0),
		GeoTitleWeight:    getFloat("ENRICH_GEO_TITLE_WEIGHT", 1.5),
		GeoRepeatWeight:   getFloat("ENRICH_GEO_REPEAT_WEIGHT", 0.3),

		NERURL:     getEnv("NER_URL", "http://ner:8000/entities"),
		NERTimeout: getDuration("NER_TIMEOUT", 30*time.Second),

		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "geonews-enricher"),
		GeocoderTimeout:   getDuration("GEOCODER_TIMEOUT", 10*time.Second),
		GeocoderInterval:  getDuration("GEOCODER_INTERVAL", time.Second),

		GeocacheBackend:     strings.ToLower(getEnv("GEOCACHE_BACKEND", GeocacheMemory)),
		GeocacheCapacity:    getInt("GEOCACHE_CAPACITY", 0),
		GeocacheRedisAddr:   getEnv("GEOCACHE_REDIS_ADDR", "redis:6379"),
		GeocacheRedisPrefix: getEnv("GEOCACHE_REDIS_PREFIX", "geocache:"),

		EmbeddingURL:      getEnv("EMBEDDING_URL", ""),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
		EmbeddingInterval: getDuration("EMBEDDING_INTERVAL", 200*time.Millisecond),
		EmbeddingDims:     getInt("EMBEDDING_DIMS", 384),
	}

	if c.ReferenceYear < 1 || c.ReferenceYear > 9999 {
		return Enrich{}, fmt.Errorf("ENRICH_REFERENCE_YEAR must be between 1 and 9999")
	}
	if c.PositionDecay < 0 {
		return Enrich{}, fmt.Errorf("ENRICH_POSITION_DECAY cannot be negative")
	}
	if c.TemporalMax <= 0 {
		return Enrich{}, fmt.Errorf("ENRICH_TEMPORAL_MAX must be positive")
	}
	if c.NERURL == "" {
		return Enrich{}, fmt.Errorf("NER_URL is required")
	}
	if c.GeocoderTimeout <= 0 {
		return Enrich{}, fmt.Errorf("GEOCODER_TIMEOUT must be positive")
	}
	if c.GeocoderInterval < 0 {
		return Enrich{}, fmt.Errorf("GEOCODER_INTERVAL cannot be negative")
	}
	switch c.GeocacheBackend {
	case GeocacheMemory, GeocacheRedis:
	default:
		return Enrich{}, fmt.Errorf("GEOCACHE_BACKEND must be %q or %q, got %q", GeocacheMemory, GeocacheRedis, c.GeocacheBackend)
	}
	if c.GeocacheCapacity < 0 {
		return Enrich{}, fmt.Errorf("GEOCACHE_CAPACITY cannot be negative")
	}
	if c.EmbeddingURL != "" && c.EmbeddingDims <= 0 {
		return Enrich{}, fmt.Errorf("EMBEDDING_DIMS must be positive when EMBEDDING_URL is set")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	enrich, err := LoadEnrich()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:        loadCommon(),
		Enrich:        enrich,
		KafkaBrokers:  splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "reuters_raw"),
		KafkaConsumer: getEnv("KAFKA_CONSUMER_GROUP", "enricher"),
		BatchSize:     getInt("WORKER_BATCH_SIZE", 10),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9100"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadBatch builds a Batch config from environment variables.
func LoadBatch() (*Batch, error) {
	enrich, err := LoadEnrich()
	if err != nil {
		return nil, err
	}

	c := &Batch{
		Common:  loadCommon(),
		Enrich:  enrich,
		Input:   getEnv("BATCH_INPUT", ""),
		Output:  getEnv("BATCH_OUTPUT", ""),
		Index:   getBool("BATCH_INDEX", false),
		Workers: getInt("BATCH_WORKERS", 4),
	}

	if c.Input == "" {
		return nil, fmt.Errorf("BATCH_INPUT is required")
	}
	if c.Output == "" && !c.Index {
		return nil, fmt.Errorf("set BATCH_OUTPUT or BATCH_INDEX, otherwise results are discarded")
	}
	if c.Workers <= 0 {
		return nil, fmt.Errorf("BATCH_WORKERS must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:      loadCommon(),
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
