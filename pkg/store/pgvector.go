package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/agenthub/agenthub/internal/models"
)

type VectorStoreConfig struct {
	ConnString  string
	Collection  string // table name
	VectorDim   int
	DefaultTopK int
}

// VectorStore keeps one named collection of chunks in Postgres with
// pgvector. A collection is a table with a fixed-dimension embedding
// column and a cosine ivfflat index. The pgx pool is safe for concurrent
// use; this store adds no locking of its own.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.Collection == "" {
		config.Collection = "agenthub"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384
	}
	if config.DefaultTopK == 0 {
		config.DefaultTopK = 4
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, &UnavailableError{Op: "connect", Err: err}
	}

	return &VectorStore{
		config: config,
		pool:   pool,
	}, nil
}

// EnsureCollection creates the collection if it does not exist yet.
// Every statement is IF NOT EXISTS, so concurrent callers all converge
// on the same schema.
func (vs *VectorStore) EnsureCollection(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return &UnavailableError{Op: "create extension", Err: err}
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d),
			payload JSONB
		)`, vs.config.Collection, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return &UnavailableError{Op: "create collection", Err: err}
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.Collection, vs.config.Collection)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return &UnavailableError{Op: "create index", Err: err}
	}

	return nil
}

// Upsert writes chunks keyed by id, replacing any existing row. One call
// is one transaction; separate calls are independent, so a reader may
// observe a collection with only some batches applied.
func (vs *VectorStore) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return &UnavailableError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload`,
		vs.config.Collection)

	for _, chunk := range chunks {
		_, err := tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.Text,
			pgvector.NewVector(chunk.Vector),
			chunk.Payload,
		)
		if err != nil {
			return &UnavailableError{Op: "upsert", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &UnavailableError{Op: "commit", Err: err}
	}

	return nil
}

// Search returns up to topK chunks ordered by descending cosine
// similarity. An empty collection yields an empty slice. Scores are
// 1 - cosine distance, so higher means closer.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = vs.config.DefaultTopK
	}

	query := fmt.Sprintf(`
		SELECT content, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.Collection)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, &UnavailableError{Op: "search", Err: err}
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, topK)
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.Text, &r.Score); err != nil {
			return nil, &UnavailableError{Op: "scan", Err: err}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Op: "search", Err: err}
	}

	return results, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
