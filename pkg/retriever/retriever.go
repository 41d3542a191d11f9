package retriever

import (
	"context"
	"fmt"

	"github.com/agenthub/agenthub/internal/models"
	"github.com/agenthub/agenthub/internal/types"
)

// RetrieverConfig represents the configuration for a Retriever.
type RetrieverConfig struct {
	DefaultTopK int
}

// Retriever resolves a query to its top-k most similar stored chunks by
// embedding the query and searching the vector store.
type Retriever struct {
	config   RetrieverConfig
	embedder types.Embedder
	store    types.VectorStore
}

// NewWithConfig creates a Retriever over an embedder and a vector store.
func NewWithConfig(config RetrieverConfig, embedder types.Embedder, store types.VectorStore) *Retriever {
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = 4
	}

	return &Retriever{
		config:   config,
		embedder: embedder,
		store:    store,
	}
}

// Retrieve returns up to topK hits sorted by descending similarity.
// A non-positive topK falls back to the configured default. Querying an
// empty collection returns an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = r.config.DefaultTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	// The collection may not have been created yet if nothing was
	// ingested; make sure it exists before searching.
	if err := r.store.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	return r.store.Search(ctx, vectors[0], topK)
}
