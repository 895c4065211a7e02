// MCP stdio surface.
//
// Information Hiding:
// - Tool definition and argument decoding hidden
// - Stdio framing delegated to mcp-go

package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/agent"
)

// AskToolName is the MCP tool that runs one conversation turn.
const AskToolName = "ask_feeds"

// AskTool handles the ask_feeds MCP tool.
type AskTool struct {
	asker  Asker
	logger zerolog.Logger
}

// NewAskTool creates an AskTool.
func NewAskTool(asker Asker, logger zerolog.Logger) *AskTool {
	return &AskTool{asker: asker, logger: logger}
}

// Definition returns the MCP tool definition for ask_feeds.
func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool(AskToolName,
		mcp.WithDescription(
			"Ask a question about the monitored camera feeds: field meanings, configuration, "+
				"or concrete data such as counts and lists of cameras. Conversation memory is kept per thread.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language question"),
		),
		mcp.WithString("thread_id",
			mcp.Description("Conversation thread (default: \"default\")"),
		),
	)
}

// Handle processes the ask_feeds tool call. Turn failures are already
// answer text, so only invalid input is reported as a tool error.
func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	threadID := req.GetString("thread_id", "")

	resp, err := t.asker.Ask(ctx, agent.Request{Query: query, ThreadID: threadID})
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuery) {
			return mcp.NewToolResultError("'query' is required"), nil
		}
		t.logger.Error().Err(err).Msg("ask_feeds failed")
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	return mcp.NewToolResultText(resp.Response), nil
}

// NewMCPServer registers the feedsage tools on a new MCP server.
func NewMCPServer(asker Asker, version string, logger zerolog.Logger) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"feedsage",
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	ask := NewAskTool(asker, logger)
	s.AddTool(ask.Definition(), ask.Handle)
	return s
}

// ServeMCP serves MCP over the given streams until ctx is cancelled or
// stdin closes.
func ServeMCP(ctx context.Context, s *mcpserver.MCPServer, stdin io.Reader, stdout io.Writer) error {
	stdio := mcpserver.NewStdioServer(s)
	if err := stdio.Listen(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
