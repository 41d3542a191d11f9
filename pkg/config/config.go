package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	LLM struct {
		BaseURL            string `yaml:"base_url"`
		Model              string `yaml:"model"`
		ConnectTimeoutSecs int    `yaml:"connect_timeout_secs"`
		StreamTimeoutSecs  int    `yaml:"stream_timeout_secs"`
	} `yaml:"llm"`

	Embedder struct {
		Model string `yaml:"model"`
	} `yaml:"embedder"`

	Database struct {
		URL        string `yaml:"url"`
		Collection string `yaml:"collection"`
		VectorDim  int    `yaml:"vector_dim"`
		BatchSize  int    `yaml:"batch_size"`
	} `yaml:"database"`

	Ingest struct {
		Extensions []string `yaml:"extensions"`
	} `yaml:"ingest"`

	Scraper struct {
		MaxDepth  int     `yaml:"max_depth"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"scraper"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/agenthub/config.yaml"),
			"/etc/agenthub/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "llama3.1:8b"
	}
	if config.LLM.ConnectTimeoutSecs == 0 {
		config.LLM.ConnectTimeoutSecs = 60
	}
	if config.LLM.StreamTimeoutSecs == 0 {
		config.LLM.StreamTimeoutSecs = 60
	}

	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text"
	}

	if config.Database.Collection == "" {
		config.Database.Collection = "agenthub"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 384
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if len(config.Ingest.Extensions) == 0 {
		config.Ingest.Extensions = []string{".txt"}
	}

	if config.Scraper.MaxDepth == 0 {
		config.Scraper.MaxDepth = 2
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
}

func mergeWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if collection := os.Getenv("COLLECTION"); collection != "" {
		config.Database.Collection = collection
	}
}
