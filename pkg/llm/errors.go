package llm

import "fmt"

// EmbeddingError wraps a failure of the embedding backend. Callers decide
// whether to retry; this package never does.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// GenerationError wraps a failure of the generation backend: transport
// error, timeout, or a non-2xx status (Status is zero when no HTTP status
// was received).
type GenerationError struct {
	Status int
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation failed: backend returned status %d", e.Status)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
