// LLMClient - thin wrapper around providers used by the orchestration nodes.

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Client wraps a Provider with an optional per-call deadline and logging.
type Client struct {
	provider Provider
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewClient creates a new LLM client from a provider.
// A zero timeout means completions run without a deadline of their own.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider, logger: zerolog.Nop()}
}

// WithTimeout sets a deadline applied to every completion.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithLogger sets the logger used for completion diagnostics.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger.With().Str("provider", c.provider.Name()).Logger()
	return c
}

// Chat sends a chat completion request and returns just the content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	content, _, err := c.complete(ctx, messages, nil)
	return content, err
}

// Complete sends a chat completion request with an optional response format
// and returns content with token usage.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (string, *TokenUsage, error) {
	return c.complete(ctx, messages, format)
}

func (c *Client) complete(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (string, *TokenUsage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		response LLMResponse
		err      error
	)
	if format != nil {
		response, err = c.provider.ChatWithFormat(ctx, messages, format)
	} else {
		response, err = c.provider.Chat(ctx, messages)
	}
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Debug().Err(err).Dur("elapsed", elapsed).Int("messages", len(messages)).Msg("completion failed")
		return "", nil, fmt.Errorf("%s: %w", c.provider.Name(), err)
	}

	event := c.logger.Debug().Dur("elapsed", elapsed).Int("messages", len(messages)).Int("chars", len(response.Content))
	if response.Usage != nil {
		event = event.Uint32("total_tokens", response.Usage.TotalTokens)
	}
	event.Msg("completion finished")

	return response.Content, response.Usage, nil
}
