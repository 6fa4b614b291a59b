package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/geonews/backend/internal/config"
	"github.com/DeafMist/geonews/backend/internal/elasticsearch"
	"github.com/DeafMist/geonews/backend/internal/enrich"
	"github.com/DeafMist/geonews/backend/internal/logger"
	"github.com/DeafMist/geonews/backend/internal/metrics"
	"github.com/DeafMist/geonews/backend/internal/models"
)

const maxLineSize = 16 << 20

type documentEnricher interface {
	Enrich(ctx context.Context, raw models.RawDocument) (models.EnrichedDocument, error)
}

type documentIndexer interface {
	IndexDocument(ctx context.Context, doc models.EnrichedDocument) error
}

type stats struct {
	Read    int
	Written int
	Indexed int
	Skipped int
	Failed  int
}

func main() {
	log := logger.New("batch").With("run_id", uuid.NewString())
	cfg, err := config.LoadBatch()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := runBatch(ctx, log, cfg); err != nil {
		log.Error("batch failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, log *slog.Logger, cfg *config.Batch) error {
	enricher, closeEnricher, err := enrich.FromConfig(ctx, cfg.Enrich, log)
	if err != nil {
		return fmt.Errorf("init enricher: %w", err)
	}
	defer closeEnricher()

	var indexer documentIndexer
	if cfg.Index {
		esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, elasticsearch.DefaultBackoff())
		if err != nil {
			return fmt.Errorf("init elasticsearch: %w", err)
		}
		dims := 0
		if cfg.EmbeddingURL != "" {
			dims = cfg.EmbeddingDims
		}
		if err := esClient.EnsureIndex(ctx, dims); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
		indexer = esClient
	}

	in, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	var out io.Writer = io.Discard
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	started := time.Now()
	st, err := run(ctx, log, enricher, indexer, in, out, cfg.Workers)
	log.Info("batch finished",
		slog.Int("read", st.Read),
		slog.Int("written", st.Written),
		slog.Int("indexed", st.Indexed),
		slog.Int("skipped", st.Skipped),
		slog.Int("failed", st.Failed),
		slog.Duration("took", time.Since(started)),
	)
	return err
}

type outcome struct {
	doc    models.EnrichedDocument
	ok     bool
	status string
}

// run enriches every JSONL line of in and writes the enriched records to out
// in input order. Lines are processed in chunks of up to workers*4 stories
// with workers goroutines. A story that fails to decode or index is logged
// and counted; only cancellation and write errors stop the run.
func run(ctx context.Context, log *slog.Logger, enricher documentEnricher, indexer documentIndexer, in io.Reader, out io.Writer, workers int) (stats, error) {
	if workers <= 0 {
		workers = 1
	}

	var st stats
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	chunk := make([][]byte, 0, workers*4)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		results, err := processChunk(ctx, log, enricher, indexer, chunk, workers)
		chunk = chunk[:0]
		if err != nil {
			return err
		}
		for _, r := range results {
			switch r.status {
			case "indexed":
				st.Indexed++
			case "skipped":
				st.Skipped++
			case "failed":
				st.Failed++
			}
			if r.status != "" {
				metrics.DocumentsEnriched.WithLabelValues(r.status).Inc()
			}
			if !r.ok {
				continue
			}
			if err := enc.Encode(r.doc); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			st.Written++
		}
		return nil
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		st.Read++
		chunk = append(chunk, append([]byte(nil), line...))
		if len(chunk) == cap(chunk) {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return st, err
	}
	if err := w.Flush(); err != nil {
		return st, fmt.Errorf("write output: %w", err)
	}
	return st, nil
}

func processChunk(ctx context.Context, log *slog.Logger, enricher documentEnricher, indexer documentIndexer, lines [][]byte, workers int) ([]outcome, error) {
	results := make([]outcome, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, line := range lines {
		g.Go(func() error {
			raw, err := enrich.DecodeRaw(line)
			if err != nil {
				log.Warn("skipping undecodable line", slog.Any("err", err))
				results[i] = outcome{status: "failed"}
				return nil
			}

			doc, err := enricher.Enrich(gctx, raw)
			if err != nil {
				return err
			}
			results[i] = outcome{doc: doc, ok: true}

			if indexer == nil {
				return nil
			}
			switch err := indexer.IndexDocument(gctx, doc); {
			case err == nil:
				results[i].status = "indexed"
			case errors.Is(err, elasticsearch.ErrMissingID):
				log.Warn("document without id not indexed", slog.String("title", doc.Title))
				results[i].status = "skipped"
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				log.Warn("index document failed", slog.String("id", doc.ID), slog.Any("err", err))
				results[i].status = "failed"
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
