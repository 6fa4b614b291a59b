package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/geonews/backend/internal/config"
	"github.com/DeafMist/geonews/backend/internal/elasticsearch"
	"github.com/DeafMist/geonews/backend/internal/enrich"
	"github.com/DeafMist/geonews/backend/internal/logger"
	"github.com/DeafMist/geonews/backend/internal/metrics"
	"github.com/DeafMist/geonews/backend/internal/models"
)

type documentEnricher interface {
	Enrich(ctx context.Context, raw models.RawDocument) (models.EnrichedDocument, error)
}

type documentIndexer interface {
	IndexDocument(ctx context.Context, doc models.EnrichedDocument) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, elasticsearch.DefaultBackoff())
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	dims := 0
	if cfg.EmbeddingURL != "" {
		dims = cfg.EmbeddingDims
	}
	if err := esClient.EnsureIndex(ctx, dims); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	enricher, closeEnricher, err := enrich.FromConfig(ctx, cfg.Enrich, log)
	if err != nil {
		log.Error("init enricher", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeEnricher()

	metrics.Register(prometheus.DefaultRegisterer)
	metricsServer := startMetrics(log, cfg.MetricsAddr)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		err = processMessage(ctx, log, enricher, esClient, msg)
		if ctx.Err() != nil {
			// Leave the message uncommitted; it is redelivered after restart.
			log.Info("context canceled, stopping")
			return
		}
		if err != nil {
			metrics.DocumentsEnriched.WithLabelValues("failed").Inc()
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			if !sendToDLQ(ctx, log, dlqWriter, dlqMessage(msg, err, time.Now())) {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

func startMetrics(log *slog.Logger, addr string) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", slog.Any("err", err))
		}
	}()
	return srv
}

// processMessage enriches and indexes one raw story. Stories without an id
// are enriched but not indexed. The returned error routes the message to the
// DLQ.
func processMessage(ctx context.Context, log *slog.Logger, enricher documentEnricher, indexer documentIndexer, msg kafka.Message) error {
	raw, err := enrich.DecodeRaw(msg.Value)
	if err != nil {
		return err
	}

	doc, err := enricher.Enrich(ctx, raw)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}

	if err := indexer.IndexDocument(ctx, doc); err != nil {
		if errors.Is(err, elasticsearch.ErrMissingID) {
			metrics.DocumentsEnriched.WithLabelValues("skipped").Inc()
			log.Warn("document without id skipped", slog.String("title", doc.Title))
			return nil
		}
		return err
	}

	metrics.DocumentsEnriched.WithLabelValues("indexed").Inc()
	log.Info("indexed document",
		slog.String("id", doc.ID),
		slog.Int("countries", len(doc.CountryKeys)),
		slog.Bool("geopoint", doc.Geopoint != nil),
	)
	return nil
}

func dlqMessage(msg kafka.Message, cause error, now time.Time) kafka.Message {
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(now.UTC().Format(time.RFC3339))},
		kafka.Header{Key: "dlq_id", Value: []byte(uuid.NewString())},
	)
	return kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// sendToDLQ retries the write with exponential backoff.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message) bool {
	for attempt := range 5 {
		dlqErr := w.WriteMessages(ctx, msg)
		if dlqErr == nil {
			log.Info("message sent to DLQ", slog.Int("attempt", attempt+1))
			return true
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}
	return false
}
