// MCP server configuration file support.
//
// Uses the common mcpServers format:
//
//	{
//	  "mcpServers": {
//	    "feeds": {
//	      "command": "python",
//	      "args": ["server.py", "--stdio"],
//	      "env": {"DB_PATH": "/data/feeds.db"}
//	    }
//	  }
//	}
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Config represents the MCP configuration file format.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig represents a single MCP server configuration.
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// LoadConfig loads MCP configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Server returns the named server. An empty name selects the only server
// when exactly one is configured.
func (c *Config) Server(name string) (ServerConfig, error) {
	if name == "" {
		if len(c.MCPServers) == 1 {
			for _, server := range c.MCPServers {
				return server, nil
			}
		}
		return ServerConfig{}, fmt.Errorf("server name required: %d servers configured", len(c.MCPServers))
	}

	server, ok := c.MCPServers[name]
	if !ok {
		return ServerConfig{}, fmt.Errorf("unknown MCP server %q (known: %s)", name, strings.Join(c.Names(), ", "))
	}
	return server, nil
}

// Names returns the configured server names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseCommand splits a "command arg1 arg2" line into a ServerConfig.
func ParseCommand(line string) (ServerConfig, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ServerConfig{}, fmt.Errorf("empty MCP server command")
	}
	return ServerConfig{Command: fields[0], Args: fields[1:]}, nil
}

// Connect starts the server and returns an initialized client.
func (s ServerConfig) Connect(ctx context.Context) (*Client, error) {
	if s.Command == "" {
		return nil, fmt.Errorf("MCP server command not set")
	}
	return NewClientWithEnv(ctx, s.Env, s.Command, s.Args...)
}
