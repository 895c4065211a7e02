package orchestration

import (
	"maps"

	"github.com/richinex/feedsage/model"
)

// AgentState is the working state of one turn. It is created fresh from the
// thread's pending messages plus the new user message, and discarded once
// the turn has been committed.
type AgentState struct {
	ThreadID string
	Messages []model.Message
	// ToolResults maps tool name to its cleaned output for this turn.
	ToolResults map[string]string
	Summary     string
	// Folded counts messages removed from Messages by summarization.
	Folded int

	Intent *model.Intent
	Answer string
	Calls  []model.CallRecord
}

// NewState builds the initial state for a turn.
func NewState(thread model.Thread, query string) AgentState {
	pending := thread.Pending()
	return AgentState{
		ThreadID:    thread.ID,
		Messages:    append(pending, model.UserMessage(query)),
		ToolResults: make(map[string]string),
		Summary:     thread.Summary,
	}
}

// Clone returns a copy that shares nothing mutable with s.
func (s AgentState) Clone() AgentState {
	out := s
	out.Messages = append([]model.Message(nil), s.Messages...)
	out.Calls = append([]model.CallRecord(nil), s.Calls...)
	out.ToolResults = maps.Clone(s.ToolResults)
	if out.ToolResults == nil {
		out.ToolResults = make(map[string]string)
	}
	if s.Intent != nil {
		intent := *s.Intent
		out.Intent = &intent
	}
	return out
}

// Query returns the content of the most recent user message.
func (s AgentState) Query() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == model.RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

func (s *AgentState) record(call model.CallRecord) {
	s.Calls = append(s.Calls, call)
}
