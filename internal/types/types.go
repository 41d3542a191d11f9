package types

import (
	"context"
	"time"

	"github.com/agenthub/agenthub/internal/models"
)

// Core interfaces

// Embedder turns a batch of texts into a batch of normalized vectors,
// same length and order as the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists chunks and answers nearest-neighbor queries.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error)
	Close()
}

// Retriever resolves a query string to its most similar stored chunks.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.SearchResult, error)
}

// Generator streams a model completion for a prompt, token by token.
type Generator interface {
	Stream(ctx context.Context, prompt string) (<-chan models.StreamToken, error)
}

// Ingestor loads source material into the vector store and reports how
// many chunks were written.
type Ingestor interface {
	IngestPath(ctx context.Context, path string) (int, error)
	IngestURL(ctx context.Context, url string) (int, error)
}

// ChatStreamer runs the full question -> retrieval -> generation flow.
type ChatStreamer interface {
	ChatStream(ctx context.Context, question string, topK int) (<-chan models.StreamToken, error)
}

type ScraperConfig struct {
	BaseURL    string
	MaxDepth   int
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	OnProgress func(url string)
}
