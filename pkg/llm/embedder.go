package llm

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig represents the configuration for the embedding model.
type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// Embedder converts batches of texts into L2-normalized vectors. The
// underlying model client is read-only after construction, so a single
// Embedder is safe for concurrent use.
type Embedder struct {
	config EmbedderConfig
	model  *ollama.LLM
}

var (
	sharedEmbedder *Embedder
	sharedErr      error
	sharedOnce     sync.Once
)

// SharedEmbedder returns the process-wide embedder, initializing it on
// first use. The first caller's config wins; the instance is never torn
// down.
func SharedEmbedder(config EmbedderConfig) (*Embedder, error) {
	sharedOnce.Do(func() {
		sharedEmbedder, sharedErr = NewEmbedderWithConfig(config)
	})
	return sharedEmbedder, sharedErr
}

// NewEmbedderWithConfig creates a standalone embedder.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{
		config: config,
		model:  model,
	}, nil
}

// Embed returns one normalized vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.model.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &EmbeddingError{
			Err: fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)),
		}
	}

	for i := range vectors {
		Normalize(vectors[i])
	}

	return vectors, nil
}

// Normalize scales v to unit L2 length in place. Zero vectors are left
// untouched.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}

	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
