// Package llm provides the text-completion collaborator used to turn questions
// into SQL and to summarize results.
package llm

import (
	"context"

	"github.com/TFMV/inquire/pkg/errors"
)

// Request is a single completion call.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Unavailable is used when no provider is configured. Every call fails, which
// sends the pipeline down its rule-based path.
type Unavailable struct{}

// Complete always returns ErrGenerationUnavailable.
func (Unavailable) Complete(context.Context, Request) (string, error) {
	return "", errors.ErrGenerationUnavailable
}
