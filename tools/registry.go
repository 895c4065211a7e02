// Tool registry for in-process tools.
//
// Information Hiding:
// - Handler storage and lookup hidden
// - Registration order hidden behind sorted listings

package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/richinex/feedsage/model"
)

// Handler serves a single in-process tool.
type Handler func(ctx context.Context, args map[string]any) model.ToolCallResult

type registered struct {
	meta    ToolMetadata
	handler Handler
}

// Registry holds in-process tools and serves them through the Invoker
// interface, so local tools and remote transports are interchangeable.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registered
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]registered),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(meta ToolMetadata, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[meta.Name]; exists {
		return fmt.Errorf("tool '%s' already registered", meta.Name)
	}
	r.tools[meta.Name] = registered{meta: meta, handler: handler}
	return nil
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Invoke runs the named handler. Unknown names are communication failures,
// matching what a remote transport reports for a missing tool.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) model.ToolCallResult {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return model.Failedf(model.ToolErrCommunication, "tool '%s' not registered", name)
	}
	return tool.handler(ctx, args)
}

// ListTools returns metadata for all registered tools, sorted by name.
func (r *Registry) ListTools(_ context.Context) ([]ToolMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		metadata = append(metadata, tool.meta)
	}
	sort.Slice(metadata, func(i, j int) bool { return metadata[i].Name < metadata[j].Name })
	return metadata, nil
}

var (
	_ Invoker = (*Registry)(nil)
	_ Lister  = (*Registry)(nil)
)
