// Package llm abstracts the reply-generation backends behind a single
// Provider interface. The default backend is a local CLI invoked per prompt;
// Ollama and Amazon Bedrock are available as alternatives.
package llm

import (
	"context"
	"errors"
)

// Provider defines a generic LLM interface
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Failure classes shared by all providers. Callers distinguish them with
// errors.Is; each one is non-fatal and skips a single conversation.
var (
	// ErrTimeout means the invocation ran past its deadline.
	ErrTimeout = errors.New("generation timed out")

	// ErrEmptyOutput means the backend succeeded but produced no text.
	ErrEmptyOutput = errors.New("generation produced no output")
)
