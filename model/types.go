// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversational message.
// Values are treated as immutable once created.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserMessage creates a user message stamped with the current time.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// AssistantMessage creates an assistant message stamped with the current time.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// Thread is a copy of a conversation's persisted state.
type Thread struct {
	ID      string
	History []Message
	Summary string
	// Summarized counts the leading History entries already folded into
	// Summary. Entries after that point are still pending summarization.
	Summarized int
}

// Pending returns the messages not yet represented by the rolling summary.
func (t Thread) Pending() []Message {
	if t.Summarized >= len(t.History) {
		return []Message{}
	}
	pending := make([]Message, len(t.History)-t.Summarized)
	copy(pending, t.History[t.Summarized:])
	return pending
}

// IntentKind is the closed set of query classifications.
type IntentKind string

const (
	IntentGreeting      IntentKind = "greeting"
	IntentMetadataQuery IntentKind = "metadata_query"
	IntentDataQuery     IntentKind = "data_query"
	// IntentUnknown is the single fallback for unrecognized raw values.
	IntentUnknown IntentKind = "unknown"
)

// ParseIntentKind maps a raw classifier label onto the closed set.
// Any unrecognized value maps to IntentUnknown.
func ParseIntentKind(raw string) IntentKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "greeting", "general_greeting":
		return IntentGreeting
	case "metadata_query", "metadata":
		return IntentMetadataQuery
	case "data_query", "data":
		return IntentDataQuery
	default:
		return IntentUnknown
	}
}

// Intent is the classification of a single user query.
type Intent struct {
	Kind       IntentKind `json:"intent"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

// String returns a compact representation for logs.
func (i Intent) String() string {
	return fmt.Sprintf("%s (%.2f)", i.Kind, i.Confidence)
}

// ToolErrorKind distinguishes transport failures from tool-reported failures.
type ToolErrorKind int

const (
	// ToolErrCommunication means the tool could not be reached or the
	// exchange failed at the transport level.
	ToolErrCommunication ToolErrorKind = iota
	// ToolErrReported means the tool answered with a well-formed error.
	ToolErrReported
)

// String returns the string representation of the error kind.
func (k ToolErrorKind) String() string {
	switch k {
	case ToolErrCommunication:
		return "communication"
	case ToolErrReported:
		return "reported"
	default:
		return "unknown"
	}
}

// ToolError describes why a tool invocation failed.
type ToolError struct {
	Kind   ToolErrorKind
	Detail string
}

// ToolCallResult is the uniform shape every external tool invocation returns.
// Success is determined by whether Err is nil.
type ToolCallResult struct {
	Output string
	Err    *ToolError
}

// Ok creates a successful tool result.
func Ok(output string) ToolCallResult {
	return ToolCallResult{Output: output}
}

// Failed creates a failed tool result.
func Failed(kind ToolErrorKind, detail string) ToolCallResult {
	return ToolCallResult{Err: &ToolError{Kind: kind, Detail: detail}}
}

// Failedf creates a failed tool result with a formatted detail.
func Failedf(kind ToolErrorKind, format string, args ...any) ToolCallResult {
	return Failed(kind, fmt.Sprintf(format, args...))
}

// Success returns true if the invocation succeeded.
func (r ToolCallResult) Success() bool {
	return r.Err == nil
}

// CallRecord describes one external call made during a turn.
type CallRecord struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
	Tokens     uint32 `json:"tokens,omitempty"`
}
