// Package main provides the feedsage CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/feedsage/cli"
	"github.com/richinex/feedsage/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	configPath string
	provider   string
	endpoint   string
	dbPath     string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:     "feedsage",
		Short:   "Conversational answers about monitored camera feeds",
		Version: version,
		Long: `Answer natural-language questions about a fleet of monitored camera feeds.

Each turn is classified, then answered from a context-retrieval tool, a
structured-query tool, or both. Conversations are kept per thread and
compacted with a rolling summary.

Configuration comes from feedsage.yaml (or --config), FEEDSAGE_* environment
variables, and the provider API-key variables (` + strings.Join(apiKeyVars(), ", ") + `).`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider ("+strings.Join(config.SupportedProviders(), ", ")+")")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Tool server endpoint for the http transport")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite path for thread persistence (default: in-memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs and per-turn details")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		ConfigPath: configPath,
		Provider:   provider,
		Endpoint:   endpoint,
		DBPath:     dbPath,
		Verbose:    verbose,
	}
}

func askCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Answer a single query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(cmd.Context(), args[0], threadID, options())
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", `Thread id (default "default")`)

	return cmd
}

func chatCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session on one thread.

Without --thread a fresh thread id is generated. Use --db to keep threads
across sessions and resume them later with --thread.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(cmd.Context(), threadID, options())
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread id to resume")

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /chat and GET /health over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Serve(cmd.Context(), addr, options())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")

	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask_feeds tool over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ServeMCP(cmd.Context(), version, options())
		},
	}
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools exposed by the tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(cmd.Context(), verboseTools, options())
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "params", "V", false, "Show tool parameters")

	return cmd
}

func apiKeyVars() []string {
	return []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEEPSEEK_API_KEY", "GEMINI_API_KEY"}
}
