// Package llm provides language-model provider abstractions.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling
//
// Providers never retry. A failed completion is reported to the caller,
// which decides what the failure means for the current turn.

package llm

import (
	"context"
)

// Provider defines the completion contract used by the orchestration engine:
// an ordered sequence of role-tagged messages in, a single text completion out.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)

	// ChatWithFormat sends a chat completion request with response format.
	// Providers without native structured-output support ignore the format.
	ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error)
}
