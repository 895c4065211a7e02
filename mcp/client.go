// Package mcp provides a Model Context Protocol (MCP) client for tool servers
// reached over stdin/stdout.
//
// Information Hiding:
// - Process management hidden
// - JSON-RPC protocol details hidden
// - Request ID tracking and response routing hidden

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// ErrClosed is returned for calls made after the server connection ended.
var ErrClosed = errors.New("mcp connection closed")

const protocolVersion = "2024-11-05"

// Client communicates with an MCP server via JSON-RPC over stdin/stdout.
// Calls may be issued concurrently; responses are routed by request id.
type Client struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu   sync.Mutex
	mu        sync.Mutex
	requestID uint64
	pending   map[uint64]chan mcpResponse

	done      chan struct{}
	readErr   error
	closeOnce sync.Once
}

// mcpRequest is a JSON-RPC request to an MCP server. Notifications omit the id.
type mcpRequest struct {
	JSONRPC string  `json:"jsonrpc"`
	ID      *uint64 `json:"id,omitempty"`
	Method  string  `json:"method"`
	Params  any     `json:"params,omitempty"`
}

// mcpResponse is a JSON-RPC response from an MCP server.
type mcpResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *mcpError       `json:"error,omitempty"`
}

// mcpError is a JSON-RPC error.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *mcpError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// ToolInfo describes a tool available on the MCP server.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []ToolInfo `json:"tools"`
}

// NewClient creates a new MCP client by starting the given command.
// The command is expected to be an MCP server that communicates via stdin/stdout.
func NewClient(ctx context.Context, command string, args ...string) (*Client, error) {
	return NewClientWithEnv(ctx, nil, command, args...)
}

// NewClientWithEnv starts the server with extra environment variables.
func NewClientWithEnv(ctx context.Context, env map[string]string, command string, args ...string) (*Client, error) {
	// The process outlives the caller's context; Close ends it.
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start MCP server: %w", err)
	}

	client := newClient(stdin, stdout)
	client.cmd = cmd

	if err := client.Initialize(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	return client, nil
}

// newClient wires a client to an already-connected byte stream pair.
func newClient(stdin io.WriteCloser, stdout io.Reader) *Client {
	c := &Client{
		stdin:   stdin,
		pending: make(map[uint64]chan mcpResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop(bufio.NewReader(stdout))
	return c
}

func (c *Client) readLoop(stdout *bufio.Reader) {
	var err error
	for {
		var line []byte
		line, err = stdout.ReadBytes('\n')
		if len(line) > 0 {
			c.dispatch(line)
		}
		if err != nil {
			break
		}
	}

	c.mu.Lock()
	if errors.Is(err, io.EOF) {
		err = ErrClosed
	}
	c.readErr = err
	c.mu.Unlock()
	close(c.done)
}

func (c *Client) dispatch(line []byte) {
	var response mcpResponse
	if err := json.Unmarshal(line, &response); err != nil || response.ID == nil {
		// Server notifications and stray output are not responses.
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[*response.ID]
	delete(c.pending, *response.ID)
	c.mu.Unlock()

	if ok {
		ch <- response
	}
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "feedsage",
			"version": "0.1.0",
		},
	}

	if _, err := c.call(ctx, "initialize", params); err != nil {
		return err
	}
	return c.notify("notifications/initialized", nil)
}

// ListTools returns all tools available on the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var toolsResult toolsListResult
	if err := json.Unmarshal(result, &toolsResult); err != nil {
		return nil, fmt.Errorf("failed to parse tools list: %w", err)
	}

	return toolsResult.Tools, nil
}

// CallTool calls a tool on the MCP server with the given arguments and
// returns the raw result object.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}

	return c.call(ctx, "tools/call", params)
}

// call sends a JSON-RPC request and waits for the matching response.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan mcpResponse, 1)
	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return nil, err
	}
	c.requestID++
	id := c.requestID
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(mcpRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params}); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case response := <-ch:
		if response.Error != nil {
			return nil, response.Error
		}
		return response.Result, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		c.forget(id)
		c.mu.Lock()
		err := c.readErr
		c.mu.Unlock()
		return nil, err
	}
}

func (c *Client) notify(method string, params any) error {
	return c.write(mcpRequest{JSONRPC: "2.0", Method: method, Params: params})
}

func (c *Client) write(request mcpRequest) error {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(append(reqJSON, '\n')); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close stops the MCP server process and releases resources.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.stdin != nil {
			c.stdin.Close()
		}
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
			_ = c.cmd.Wait()
		}
	})
	return nil
}
