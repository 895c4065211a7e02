// Package tools provides the invocation contract for external tools.
//
// Information Hiding:
// - Transport details (HTTP, stdio) hidden behind Invoker
// - Deadline enforcement and call accounting hidden in Executor
// - Local handler lookup hidden in Registry
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/richinex/feedsage/model"
)

// Default tool names exposed by the feed tool server.
const (
	DefaultRetrievalTool = "rag_query_tool"
	DefaultQueryTool     = "sql_query_tool"
)

// Invoker calls a named tool with a JSON-compatible argument map.
//
// Implementations never return Go errors. Transport failures become
// ToolErrCommunication results and well-formed tool failures become
// ToolErrReported results.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) model.ToolCallResult
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, name string, args map[string]any) model.ToolCallResult

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, name string, args map[string]any) model.ToolCallResult {
	return f(ctx, name, args)
}

// Lister is implemented by transports that can enumerate the remote tools.
type Lister interface {
	ListTools(ctx context.Context) ([]ToolMetadata, error)
}

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	if len(m.Parameters) == 0 {
		return fmt.Sprintf("%s: %s", m.Name, m.Description)
	}
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = p.Name
		if p.Required {
			params[i] += "*"
		}
	}
	return fmt.Sprintf("%s(%s): %s", m.Name, strings.Join(params, ", "), m.Description)
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s.
type ToolConfig struct {
	TimeoutSecs uint64
}

// Timeout returns the configured per-call deadline, defaulting to 30 seconds.
func (c *ToolConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSecs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{TimeoutSecs: 30}
}
