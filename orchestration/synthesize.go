package orchestration

import (
	"context"
	"sort"
	"strings"

	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
)

// Synthesizer turns cleaned tool output into a conversational answer.
type Synthesizer struct {
	client *llm.Client
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(client *llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize makes one model call over the query and tool results. The
// reply is trimmed and unwrapped from any code fence.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results map[string]string) (string, model.CallRecord, error) {
	messages := []llm.ChatMessage{llm.UserMessage(synthesisInstruction(query, formatResults(results)))}

	content, call, err := complete(ctx, s.client, "synthesizer", messages, nil)
	if err != nil {
		return "", call, completionFailure(LabelSynthesis, err)
	}

	answer := StripCodeFence(content)
	if answer == "" {
		return "", call, &ParseError{Stage: LabelSynthesis, Detail: "empty answer"}
	}
	return answer, call, nil
}

// formatResults renders tool output without tool names so the model has
// nothing internal to repeat.
func formatResults(results map[string]string) string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if text := strings.TrimSpace(results[name]); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
