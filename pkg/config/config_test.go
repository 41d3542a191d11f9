package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: 9000

llm:
  base_url: "http://ollama.internal:11434"
  model: "mistral"
  connect_timeout_secs: 10
  stream_timeout_secs: 120

embedder:
  model: "all-minilm"

database:
  url: "postgres://localhost:5432/test"
  collection: "docs"
  vector_dim: 768
  batch_size: 50

ingest:
  extensions:
    - ".txt"
    - ".md"

scraper:
  max_depth: 5
  rate_limit: 1.5
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "http://ollama.internal:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 10, config.LLM.ConnectTimeoutSecs)
	assert.Equal(t, 120, config.LLM.StreamTimeoutSecs)
	assert.Equal(t, "all-minilm", config.Embedder.Model)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "docs", config.Database.Collection)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, []string{".txt", ".md"}, config.Ingest.Extensions)
	assert.Equal(t, 5, config.Scraper.MaxDepth)
	assert.Equal(t, 1.5, config.Scraper.RateLimit)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8000, config.Server.Port)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3.1:8b", config.LLM.Model)
	assert.Equal(t, 60, config.LLM.ConnectTimeoutSecs)
	assert.Equal(t, 60, config.LLM.StreamTimeoutSecs)
	assert.Equal(t, "nomic-embed-text", config.Embedder.Model)
	assert.Equal(t, "agenthub", config.Database.Collection)
	assert.Equal(t, 384, config.Database.VectorDim)
	assert.Equal(t, 100, config.Database.BatchSize)
	assert.Equal(t, []string{".txt"}, config.Ingest.Extensions)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0644))

	t.Setenv("PORT", "8100")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("LLM_MODEL", "llama3.2")
	t.Setenv("DATABASE_URL", "postgres://db:5432/rag")
	t.Setenv("COLLECTION", "corpus")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8100, config.Server.Port)
	assert.Equal(t, "http://gpu-box:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3.2", config.LLM.Model)
	assert.Equal(t, "postgres://db:5432/rag", config.Database.URL)
	assert.Equal(t, "corpus", config.Database.Collection)
}

func TestConfigValidation(t *testing.T) {
	valid, err := getDefaultConfig()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = -1 },
			field:  "server.port",
		},
		{
			name:   "missing base url",
			mutate: func(c *Config) { c.LLM.BaseURL = "" },
			field:  "llm.base_url",
		},
		{
			name:   "zero connect timeout",
			mutate: func(c *Config) { c.LLM.ConnectTimeoutSecs = 0 },
			field:  "llm.connect_timeout_secs",
		},
		{
			name:   "missing collection",
			mutate: func(c *Config) { c.Database.Collection = "" },
			field:  "database.collection",
		},
		{
			name:   "bad vector dim",
			mutate: func(c *Config) { c.Database.VectorDim = 0 },
			field:  "database.vector_dim",
		},
		{
			name:   "bad extension",
			mutate: func(c *Config) { c.Ingest.Extensions = []string{"txt"} },
			field:  "ingest.extensions",
		},
		{
			name:   "bad rate limit",
			mutate: func(c *Config) { c.Scraper.RateLimit = -2 },
			field:  "scraper.rate_limit",
		},
	}

	assert.Empty(t, valid.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)

			errs := cfg.Validate()
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}
