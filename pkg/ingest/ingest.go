package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/agenthub/agenthub/internal/models"
	"github.com/agenthub/agenthub/internal/types"
	"github.com/agenthub/agenthub/pkg/scraper"
	"github.com/agenthub/agenthub/pkg/textproc"
)

// IngestorConfig represents the configuration for an Ingestor.
type IngestorConfig struct {
	Extensions []string // accepted file extensions, e.g. ".txt"
	BatchSize  int      // chunks embedded and upserted per batch

	// scraper settings for URL ingestion
	MaxDepth  int
	RateLimit float64

	OnProgress func(stored int) // called after each stored batch
}

// Ingestor loads source material into the vector store. Every file or
// scraped page becomes exactly one chunk; there is no splitting stage.
type Ingestor struct {
	config   IngestorConfig
	embedder types.Embedder
	store    types.VectorStore
}

// NewWithConfig creates an Ingestor over an embedder and a vector store.
func NewWithConfig(config IngestorConfig, embedder types.Embedder, store types.VectorStore) *Ingestor {
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".txt"}
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Ingestor{
		config:   config,
		embedder: embedder,
		store:    store,
	}
}

// IngestPath stores every matching plain-text file under root, one chunk
// per file, and returns the number of chunks stored. A path with no
// matching files yields 0 without error.
func (ing *Ingestor) IngestPath(ctx context.Context, root string) (int, error) {
	var chunks []models.Chunk

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ing.accepts(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		chunks = append(chunks, models.Chunk{
			ID:   uuid.NewString(),
			Text: textproc.SanitizeUTF8(string(data)),
			Payload: map[string]interface{}{
				"source": "file",
				"path":   path,
			},
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	return ing.storeChunks(ctx, chunks)
}

// IngestURL scrapes same-host pages starting at rawURL and stores one
// chunk per page. Pages without extractable text are skipped.
func (ing *Ingestor) IngestURL(ctx context.Context, rawURL string) (int, error) {
	s, err := scraper.NewWithConfig(types.ScraperConfig{
		BaseURL:   rawURL,
		MaxDepth:  ing.config.MaxDepth,
		RateLimit: ing.config.RateLimit,
	})
	if err != nil {
		return 0, err
	}

	docs, err := s.Scrape(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	chunks := make([]models.Chunk, 0, len(docs))
	for _, doc := range docs {
		chunks = append(chunks, models.Chunk{
			ID:   uuid.NewString(),
			Text: textproc.SanitizeUTF8(doc.Content),
			Payload: map[string]interface{}{
				"source": "url",
				"url":    doc.URL,
				"title":  doc.Title,
			},
		})
	}

	return ing.storeChunks(ctx, chunks)
}

// storeChunks embeds and upserts chunks in batches. Each batch is one
// upsert call; a failure mid-way leaves earlier batches stored.
func (ing *Ingestor) storeChunks(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := ing.store.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	stored := 0
	for start := 0; start < len(chunks); start += ing.config.BatchSize {
		end := start + ing.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := ing.embedder.Embed(ctx, texts)
		if err != nil {
			return stored, err
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}

		if err := ing.store.Upsert(ctx, batch); err != nil {
			return stored, err
		}

		stored += len(batch)
		if ing.config.OnProgress != nil {
			ing.config.OnProgress(stored)
		}
	}

	return stored, nil
}

func (ing *Ingestor) accepts(path string) bool {
	ext := filepath.Ext(path)
	for _, allowed := range ing.config.Extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}
