// Package server exposes the conversation entry point over HTTP and MCP.
package server

import (
	"context"

	"github.com/richinex/feedsage/agent"
)

// ServiceName identifies the service in status responses.
const ServiceName = "Camera Feed Query System"

// Asker answers one conversation turn. *agent.Agent implements it.
type Asker interface {
	Ask(ctx context.Context, req agent.Request) (agent.Response, error)
}

var _ Asker = (*agent.Agent)(nil)
