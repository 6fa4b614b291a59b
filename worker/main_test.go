package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/geonews/backend/internal/elasticsearch"
	"github.com/DeafMist/geonews/backend/internal/models"
)

type stubEnricher struct {
	seen []models.RawDocument
}

func (s *stubEnricher) Enrich(_ context.Context, raw models.RawDocument) (models.EnrichedDocument, error) {
	s.seen = append(s.seen, raw)
	return models.EnrichedDocument{ID: raw.ID, Title: raw.Title, CountryKeys: []string{"br"}}, nil
}

type stubIndexer struct {
	docs []models.EnrichedDocument
	err  error
}

func (s *stubIndexer) IndexDocument(_ context.Context, doc models.EnrichedDocument) error {
	if s.err != nil {
		return s.err
	}
	if !doc.HasIdentity() {
		return elasticsearch.ErrMissingID
	}
	s.docs = append(s.docs, doc)
	return nil
}

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessMessageIndexesDocument(t *testing.T) {
	enricher := &stubEnricher{}
	idx := &stubIndexer{}
	msg := kafka.Message{Value: []byte(`{"id":"5","title":"BAHIA COCOA REVIEW","dateline":"SALVADOR, Feb 26 -","date_published":"26-FEB-1987 15:01:01.79","places":["brazil"]}`)}

	require.NoError(t, processMessage(context.Background(), discard(), enricher, idx, msg))

	require.Len(t, idx.docs, 1)
	require.Equal(t, "5", idx.docs[0].ID)
	require.Len(t, enricher.seen, 1)
	require.NotNil(t, enricher.seen[0].DatePublished)
	require.Equal(t, 1987, enricher.seen[0].DatePublished.Year())
	require.Equal(t, []string{"brazil"}, enricher.seen[0].Places)
}

func TestProcessMessageSkipsDocumentWithoutID(t *testing.T) {
	enricher := &stubEnricher{}
	idx := &stubIndexer{}
	msg := kafka.Message{Value: []byte(`{"title":"NO ID"}`)}

	require.NoError(t, processMessage(context.Background(), discard(), enricher, idx, msg))
	require.Len(t, enricher.seen, 1)
	require.Empty(t, idx.docs)
}

func TestProcessMessageErrors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		err := processMessage(context.Background(), discard(), &stubEnricher{}, &stubIndexer{}, kafka.Message{Value: []byte(`{"id":`)})
		require.ErrorContains(t, err, "decode raw document")
	})

	t.Run("index failure", func(t *testing.T) {
		idx := &stubIndexer{err: errors.New("cluster read-only")}
		err := processMessage(context.Background(), discard(), &stubEnricher{}, idx, kafka.Message{Value: []byte(`{"id":"1"}`)})
		require.ErrorContains(t, err, "cluster read-only")
	})
}

func TestDLQMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := kafka.Message{
		Partition: 2,
		Offset:    41,
		Key:       []byte("k"),
		Value:     []byte("not json"),
		Headers:   []kafka.Header{{Key: "source", Value: []byte("sgm")}},
	}

	out := dlqMessage(msg, errors.New("decode raw document: boom"), now)
	require.Equal(t, msg.Value, out.Value)
	require.Equal(t, msg.Key, out.Key)
	require.Len(t, msg.Headers, 1)

	headers := map[string]string{}
	for _, h := range out.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "sgm", headers["source"])
	require.Equal(t, "2", headers["original_partition"])
	require.Equal(t, "41", headers["original_offset"])
	require.Equal(t, "decode raw document: boom", headers["error"])
	require.Equal(t, "2024-05-01T12:00:00Z", headers["timestamp"])
	require.Len(t, headers["dlq_id"], 36)
}

func TestSendToDLQ(t *testing.T) {
	t.Run("first attempt", func(t *testing.T) {
		w := &stubWriter{}
		require.True(t, sendToDLQ(context.Background(), discard(), w, kafka.Message{Value: []byte("x")}))
		require.Len(t, w.msgs, 1)
	})

	t.Run("gives up on shutdown", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		w := &stubWriter{err: errors.New("broker down")}
		require.False(t, sendToDLQ(ctx, discard(), w, kafka.Message{Value: []byte("x")}))
	})
}
