// Process wiring shared by every command.
//
// Information Hiding:
// - Settings overrides hidden
// - Tool transport selection hidden
// - Storage and provider construction hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/agent"
	"github.com/richinex/feedsage/config"
	"github.com/richinex/feedsage/mcp"
	"github.com/richinex/feedsage/orchestration"
	"github.com/richinex/feedsage/storage"
	"github.com/richinex/feedsage/tools"
)

// Options holds flags shared by every command. Non-empty values override
// the loaded settings.
type Options struct {
	ConfigPath string
	Provider   string
	Endpoint   string
	DBPath     string
	Verbose    bool
}

// NewLogger returns the process logger. Verbose mode writes human-readable
// debug output to w; otherwise only warnings are logged, as JSON.
func NewLogger(w io.Writer, verbose bool) zerolog.Logger {
	if verbose {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

func loadSettings(opts Options) (config.Settings, error) {
	if opts.Provider != "" {
		if err := os.Setenv(config.EnvPrefix+"_LLM_PROVIDER", opts.Provider); err != nil {
			return config.Settings{}, err
		}
	}
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.Endpoint != "" {
		settings.Tools.Endpoint = opts.Endpoint
	}
	if opts.DBPath != "" {
		settings.Conversation.DBPath = opts.DBPath
	}
	return settings, nil
}

// agentConfig maps settings onto the engine configuration.
func agentConfig(s config.Settings) agent.Config {
	cfg := agent.DefaultConfig()
	cfg.MaxHistory = s.Conversation.MaxHistory
	cfg.LLMTimeout = s.LLM.Timeout
	cfg.Tool = tools.ToolConfig{TimeoutSecs: uint64(s.Tools.Timeout / time.Second)}
	cfg.Engine = orchestration.EngineConfig{
		SummarizeAfter:   s.Conversation.SummarizeAfter,
		KeepAfterSummary: s.Conversation.KeepAfterSummary,
		Pipeline: orchestration.PipelineConfig{
			RetrievalTool: s.Tools.RetrievalName,
			QueryTool:     s.Tools.QueryName,
			TopK:          s.Tools.TopK,
			Contract:      orchestration.DefaultDataContract,
		},
	}
	return cfg
}

// toolTransport is a tools.Invoker that can also list tools.
type toolTransport interface {
	tools.Invoker
	tools.Lister
}

// connectTools opens the configured tool transport. The returned closer is
// nil for transports that hold no resources.
func connectTools(ctx context.Context, s config.Settings) (toolTransport, io.Closer, error) {
	switch s.Tools.Transport {
	case config.TransportStdio:
		server, err := stdioServer(s.Tools)
		if err != nil {
			return nil, nil, err
		}
		client, err := server.Connect(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start tool server: %w", err)
		}
		invoker := mcp.NewInvoker(client)
		return invoker, invoker, nil
	default:
		return tools.NewHTTPInvoker(s.Tools.Endpoint), nil, nil
	}
}

func stdioServer(t config.ToolsConfig) (mcp.ServerConfig, error) {
	if t.ServersFile != "" {
		cfg, err := mcp.LoadConfig(t.ServersFile)
		if err != nil {
			return mcp.ServerConfig{}, err
		}
		return cfg.Server(t.Server)
	}
	return mcp.ParseCommand(t.Command)
}

func openStorage(path string) (*storage.SqliteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := storage.OpenSqlite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// buildAgent wires settings into a ready agent. Close the agent to release
// the tool transport and the database.
func buildAgent(ctx context.Context, s config.Settings, logger zerolog.Logger) (*agent.Agent, error) {
	provider, err := s.NewProvider()
	if err != nil {
		return nil, err
	}

	invoker, toolCloser, err := connectTools(ctx, s)
	if err != nil {
		return nil, err
	}

	builder := agent.NewBuilder().
		Provider(provider).
		Tools(invoker).
		Config(agentConfig(s)).
		Logger(logger).
		Closer(toolCloser)

	if s.Conversation.DBPath != "" {
		store, err := openStorage(s.Conversation.DBPath)
		if err != nil {
			if toolCloser != nil {
				_ = toolCloser.Close()
			}
			return nil, err
		}
		builder = builder.Storage(store).Closer(store)
	}

	logger.Debug().
		Str("provider", provider.Name()).
		Str("model", provider.Model()).
		Str("transport", s.Tools.Transport).
		Bool("persistent", s.Conversation.DBPath != "").
		Msg("agent configured")

	a, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return a, nil
}
