package interfaces

import (
	"context"
	"fmt"
)

// ModelError indicates a transport-level failure talking to the
// completion model. The summarizer converts it to a parse fallback;
// it never reaches the orchestrator.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// LLMService is the raw text-completion primitive underlying the
// summarizer's operations.
type LLMService interface {
	// Name returns the provider identifier ("gemini", "claude")
	Name() string

	// Complete sends a prompt and returns the raw model text
	Complete(ctx context.Context, prompt string) (string, error)

	// Close releases client resources
	Close() error
}
