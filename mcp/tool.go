// MCP tool transport - serves the tools.Invoker contract over a Client.
//
// Information Hiding:
// - MCP content block layout hidden
// - isError classification hidden
// - Schema parsing hidden

package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/richinex/feedsage/model"
	"github.com/richinex/feedsage/tools"
)

// Invoker adapts a Client to tools.Invoker and tools.Lister.
type Invoker struct {
	client *Client
}

// NewInvoker wraps a connected client.
func NewInvoker(client *Client) *Invoker {
	return &Invoker{client: client}
}

// Close closes the underlying client.
func (i *Invoker) Close() error {
	return i.client.Close()
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callToolResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// Invoke calls tools/call. JSON-RPC and transport failures are communication
// errors; a result flagged isError is a reported error.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any) model.ToolCallResult {
	raw, err := i.client.CallTool(ctx, name, args)
	if err != nil {
		return model.Failedf(model.ToolErrCommunication, "tool call failed: %v", err)
	}
	return parseCallResult(raw)
}

func parseCallResult(raw json.RawMessage) model.ToolCallResult {
	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return model.Failedf(model.ToolErrCommunication, "failed to parse tool result: %v", err)
	}

	texts := make([]string, 0, len(result.Content))
	for _, block := range result.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	text := strings.Join(texts, "\n")

	if result.IsError {
		if text == "" {
			text = "tool reported failure without detail"
		}
		return model.Failed(model.ToolErrReported, text)
	}
	return model.Ok(text)
}

// ListTools returns metadata for every tool the server advertises.
func (i *Invoker) ListTools(ctx context.Context) ([]tools.ToolMetadata, error) {
	infos, err := i.client.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]tools.ToolMetadata, len(infos))
	for idx, info := range infos {
		result[idx] = tools.ToolMetadata{
			Name:        info.Name,
			Description: stringValue(info.Description),
			Parameters:  parseParameters(info.InputSchema),
		}
	}
	return result, nil
}

// parseParameters extracts tool parameters from the JSON schema.
// Returns parameters in sorted order for deterministic output.
func parseParameters(inputSchema json.RawMessage) []tools.ToolParameter {
	var schema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(inputSchema, &schema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range schema.Required {
		requiredSet[r] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tools.ToolParameter, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		paramType := prop.Type
		if paramType == "" {
			paramType = "string"
		}

		params = append(params, tools.ToolParameter{
			Name:        name,
			Description: prop.Description,
			ParamType:   paramType,
			Required:    requiredSet[name],
		})
	}

	return params
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var (
	_ tools.Invoker = (*Invoker)(nil)
	_ tools.Lister  = (*Invoker)(nil)
)
