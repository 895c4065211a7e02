package orchestration

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
)

// DefaultKeepAfterSummary is how many recent messages survive summarization.
const DefaultKeepAfterSummary = 2

// Summarizer folds older messages into the rolling summary.
type Summarizer struct {
	client *llm.Client
	keep   int
}

// NewSummarizer creates a summarizer that keeps the most recent keep messages.
func NewSummarizer(client *llm.Client, keep int) *Summarizer {
	if keep <= 0 {
		keep = DefaultKeepAfterSummary
	}
	return &Summarizer{client: client, keep: keep}
}

// Summarize asks the model to extend the prior summary with the state's
// messages, then trims the messages to the most recent few. Nothing in the
// input state is modified when the model call fails.
func (s *Summarizer) Summarize(ctx context.Context, state AgentState) (AgentState, error) {
	messages := append(llm.FromMessages(state.Messages), llm.UserMessage(summaryInstruction(state.Summary)))

	content, call, err := complete(ctx, s.client, "summarizer", messages, nil)
	state.record(call)
	if err != nil {
		return state, completionFailure(LabelSummarizer, err)
	}

	state.Summary = strings.TrimSpace(content)
	if drop := len(state.Messages) - s.keep; drop > 0 {
		state.Messages = append([]model.Message(nil), state.Messages[drop:]...)
		state.Folded += drop
	}

	zerolog.Ctx(ctx).Debug().Int("folded", state.Folded).Int("summary_chars", len(state.Summary)).Msg("conversation summarized")
	return state, nil
}
