package enrich

import (
	"encoding/json"
	"fmt"

	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/DeafMist/geonews/backend/internal/processing"
)

// wireDocument is the raw story as it travels over Kafka and in JSONL
// files. The publication date arrives as text in any supported layout.
type wireDocument struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Dateline      string   `json:"dateline"`
	DatePublished *string  `json:"date_published"`
	Topics        []string `json:"topics"`
	Places        []string `json:"places"`
	AuthorRaw     string   `json:"author_raw"`
}

// DecodeRaw parses one raw story. Only malformed JSON is an error; an
// unreadable publication date is treated as absent.
func DecodeRaw(data []byte) (models.RawDocument, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return models.RawDocument{}, fmt.Errorf("decode raw document: %w", err)
	}

	raw := models.RawDocument{
		ID:        w.ID,
		Title:     w.Title,
		Content:   w.Content,
		Dateline:  w.Dateline,
		Topics:    w.Topics,
		Places:    w.Places,
		AuthorRaw: w.AuthorRaw,
	}
	if w.DatePublished != nil {
		if ts := processing.ParseTimestamp(*w.DatePublished); !ts.IsZero() {
			raw.DatePublished = &ts
		}
	}
	return raw, nil
}
