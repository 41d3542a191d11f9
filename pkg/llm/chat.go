package llm

import (
	"context"

	"github.com/agenthub/agenthub/internal/models"
	"github.com/agenthub/agenthub/internal/types"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	DefaultTopK int
}

// ChatEngine runs the full grounded-answer flow: retrieve context for a
// question, compose a prompt, then relay the generation stream.
type ChatEngine struct {
	config    ChatConfig
	retriever types.Retriever
	generator types.Generator
}

// NewChatEngine creates a new ChatEngine over a retriever and generator.
func NewChatEngine(config ChatConfig, retriever types.Retriever, generator types.Generator) *ChatEngine {
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = 4
	}

	return &ChatEngine{
		config:    config,
		retriever: retriever,
		generator: generator,
	}
}

// ChatStream answers question as a live token stream. Retrieval runs to
// completion before the first token; retrieval or connection failures
// return an error before anything is emitted. A successful stream ends
// with exactly one terminal token (empty text, Done=true). A generation
// failure mid-stream ends with an Err token and no terminal marker.
func (ce *ChatEngine) ChatStream(ctx context.Context, question string, topK int) (<-chan models.StreamToken, error) {
	if topK <= 0 {
		topK = ce.config.DefaultTopK
	}

	hits, err := ce.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(question, hits)

	stream, err := ce.generator.Stream(ctx, prompt)
	if err != nil {
		return nil, err
	}

	out := make(chan models.StreamToken)

	go func() {
		defer close(out)

		for tok := range stream {
			switch {
			case tok.Err != nil:
				select {
				case out <- models.StreamToken{Err: tok.Err}:
				case <-ctx.Done():
				}
				return
			case tok.Done:
				select {
				case out <- models.StreamToken{Done: true}:
				case <-ctx.Done():
				}
				return
			default:
				select {
				case out <- models.StreamToken{Token: tok.Token}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
