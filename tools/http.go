// HTTP tool transport.
//
// Information Hiding:
// - Endpoint layout (/tools, /tools/call) hidden
// - Response envelope parsing hidden
// - Status code classification hidden

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/richinex/feedsage/model"
)

// maxResponseBytes bounds how much of a tool response is read.
const maxResponseBytes = 8 << 20

// HTTPInvoker calls tools on a server exposing POST /tools/call and GET /tools.
type HTTPInvoker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPInvoker creates an invoker for the given base endpoint.
// Deadlines come from the caller's context, not from the client.
func NewHTTPInvoker(endpoint string) *HTTPInvoker {
	return &HTTPInvoker{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (h *HTTPInvoker) WithHTTPClient(client *http.Client) *HTTPInvoker {
	h.client = client
	return h
}

// Endpoint returns the base endpoint.
func (h *HTTPInvoker) Endpoint() string {
	return h.endpoint
}

type callRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Invoke posts {name, arguments} and interprets the {result, success, error}
// envelope.
func (h *HTTPInvoker) Invoke(ctx context.Context, name string, args map[string]any) model.ToolCallResult {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(callRequest{Name: name, Arguments: args})
	if err != nil {
		return model.Failedf(model.ToolErrCommunication, "failed to encode arguments: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+"/tools/call", bytes.NewReader(payload))
	if err != nil {
		return model.Failedf(model.ToolErrCommunication, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := h.do(req)
	if err != nil {
		return model.Failed(model.ToolErrCommunication, err.Error())
	}

	return parseCallResponse(body)
}

func parseCallResponse(body []byte) model.ToolCallResult {
	if !gjson.ValidBytes(body) {
		return model.Failedf(model.ToolErrCommunication, "malformed response: %s", preview(body))
	}

	envelope := gjson.ParseBytes(body)
	if !envelope.IsObject() {
		return model.Failedf(model.ToolErrCommunication, "malformed response: %s", preview(body))
	}

	errText := envelope.Get("error")
	success := envelope.Get("success")
	if errText.Type != gjson.Null && errText.String() != "" {
		return model.Failed(model.ToolErrReported, errText.String())
	}
	if success.Exists() && !success.Bool() {
		return model.Failed(model.ToolErrReported, "tool reported failure without detail")
	}

	result := envelope.Get("result")
	switch result.Type {
	case gjson.String:
		return model.Ok(result.Str)
	case gjson.Null:
		return model.Ok("")
	default:
		return model.Ok(result.Raw)
	}
}

// ListTools fetches GET /tools. Both a bare array and a {"tools": [...]}
// wrapper are accepted.
func (h *HTTPInvoker) ListTools(ctx context.Context) ([]ToolMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := h.do(req)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed tool listing: %s", preview(body))
	}

	list := gjson.ParseBytes(body)
	if list.IsObject() {
		list = list.Get("tools")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("malformed tool listing: %s", preview(body))
	}

	var tools []ToolMetadata
	list.ForEach(func(_, item gjson.Result) bool {
		tools = append(tools, parseToolMetadata(item))
		return true
	})
	return tools, nil
}

// parseToolMetadata reads {name, description, inputSchema} where inputSchema
// is a JSON Schema object.
func parseToolMetadata(item gjson.Result) ToolMetadata {
	meta := ToolMetadata{
		Name:        item.Get("name").String(),
		Description: item.Get("description").String(),
	}

	schema := item.Get("inputSchema")
	required := make(map[string]bool)
	schema.Get("required").ForEach(func(_, v gjson.Result) bool {
		required[v.String()] = true
		return true
	})
	schema.Get("properties").ForEach(func(key, prop gjson.Result) bool {
		meta.Parameters = append(meta.Parameters, ToolParameter{
			Name:        key.String(),
			ParamType:   prop.Get("type").String(),
			Description: prop.Get("description").String(),
			Required:    required[key.String()],
		})
		return true
	})
	return meta
}

func (h *HTTPInvoker) do(req *http.Request) ([]byte, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, preview(body))
	}
	return body, nil
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

var (
	_ Invoker = (*HTTPInvoker)(nil)
	_ Lister  = (*HTTPInvoker)(nil)
)
