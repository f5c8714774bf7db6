// Package llm wraps the language-model providers used by the assistant
// behind a small Completer interface, so classifiers and strategies can be
// written once and run against OpenAI, Gemini or a test double.
package llm

import (
	"context"
	"errors"

	"github.com/tbourn/powerpulse-backend/internal/flow"
)

// ErrEmptyResponse is returned when a provider answers without any content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is one completion call.
type Request struct {
	// System is the system instruction. Messages with RoleSystem are merged
	// into it by providers that have a single instruction slot.
	System   string
	Messages []flow.ChatMessage
	// JSON asks the provider for a JSON object when it supports that mode.
	JSON bool
}

// Completer produces a single completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ImageGenerator turns a prompt into a URL of a generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
