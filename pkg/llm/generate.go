package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/agenthub/agenthub/internal/models"
)

// GeneratorConfig represents the configuration for the streaming
// generation client.
type GeneratorConfig struct {
	Model          string
	BaseURL        string        // Ollama server URL
	ConnectTimeout time.Duration // dial + response headers
	StreamTimeout  time.Duration // whole request, including body reads
}

// Generator streams completions from the generation backend. The backend
// replies with newline-delimited JSON records, each carrying an
// incremental text fragment and/or a completion flag.
type Generator struct {
	config GeneratorConfig
	client *http.Client
}

// NewGeneratorWithConfig creates a new Generator with the given
// configuration.
func NewGeneratorWithConfig(config GeneratorConfig) *Generator {
	if config.Model == "" {
		config.Model = "llama3.1:8b"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 60 * time.Second
	}
	if config.StreamTimeout == 0 {
		config.StreamTimeout = 60 * time.Second
	}

	return &Generator{
		config: config,
		client: &http.Client{
			// Timeout bounds the whole exchange, so a stalled backend
			// cannot hang a caller past StreamTimeout.
			Timeout: config.StreamTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: config.ConnectTimeout,
				}).DialContext,
				ResponseHeaderTimeout: config.ConnectTimeout,
			},
		},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateRecord struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// Stream opens a streaming completion for prompt and returns a channel
// of fragments in backend order. The channel is unbuffered: the
// consumer's pace gates reads from the backend. A successful stream ends
// with one Done token; an aborted stream ends with one Err token.
// Cancelling ctx releases the connection.
func (g *Generator) Stream(ctx context.Context, prompt string) (<-chan models.StreamToken, error) {
	body, err := json.Marshal(generateRequest{
		Model:  g.config.Model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &GenerationError{Status: resp.StatusCode}
	}

	ch := make(chan models.StreamToken)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var record generateRecord
			if err := json.Unmarshal(line, &record); err != nil {
				continue // skip malformed lines
			}

			if record.Response != nil {
				select {
				case ch <- models.StreamToken{Token: *record.Response}:
				case <-ctx.Done():
					return
				}
			}

			if record.Done {
				// Stop reading immediately; whatever the backend still
				// has buffered is not drained.
				select {
				case ch <- models.StreamToken{Done: true}:
				case <-ctx.Done():
				}
				return
			}
		}

		err := scanner.Err()
		if err == nil {
			// The backend closed the stream without a completion flag.
			err = io.ErrUnexpectedEOF
		}
		select {
		case ch <- models.StreamToken{Err: &GenerationError{Err: err}}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}
