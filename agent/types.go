// Package agent is the conversation entry point.
//
// Contains the request and response types exchanged with callers.
package agent

import (
	"github.com/richinex/feedsage/model"
)

// DefaultThreadID is used when a request names no thread.
const DefaultThreadID = "default"

// Request is one user turn.
type Request struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
}

// Metadata describes how a turn was answered. It is not part of the wire
// response.
type Metadata struct {
	TurnID          string
	ExecutionTimeMs uint64
	Intent          *model.Intent
	Nodes           []string
	Calls           []model.CallRecord
	// Tokens is the total reported by the provider across model calls.
	Tokens     uint32
	Summarized bool
	// Error is the failure behind an error answer, empty on success.
	Error string
}

// Response is the answer to one turn.
type Response struct {
	Response string   `json:"response"`
	ThreadID string   `json:"thread_id"`
	Metadata Metadata `json:"-"`
}

// IsSuccess reports whether the turn completed without a model or tool
// failure.
func (r Response) IsSuccess() bool {
	return r.Metadata.Error == ""
}
