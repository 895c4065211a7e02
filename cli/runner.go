// Command execution for CLI commands.
//
// Information Hiding:
// - Agent setup and teardown hidden
// - Output formatting hidden
// - REPL loop hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/agent"
	"github.com/richinex/feedsage/server"
	"github.com/richinex/feedsage/tools"
)

// Ask answers a single query and prints the response.
func Ask(ctx context.Context, query, threadID string, opts Options) error {
	logger := NewLogger(os.Stderr, opts.Verbose)
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	a, err := buildAgent(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeAgent(a, logger)

	resp, err := a.Ask(ctx, agent.Request{Query: query, ThreadID: threadID})
	if err != nil {
		return err
	}

	fmt.Println(resp.Response)
	if opts.Verbose {
		printTurn(os.Stderr, resp)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("turn failed: %s", resp.Metadata.Error)
	}
	return nil
}

// Chat starts an interactive session on one thread. An empty threadID
// starts a fresh thread.
func Chat(ctx context.Context, threadID string, opts Options) error {
	logger := NewLogger(os.Stderr, opts.Verbose)
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	a, err := buildAgent(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeAgent(a, logger)

	if threadID == "" {
		threadID = uuid.NewString()
	}
	if n := len(a.History(threadID, 0)); n > 0 {
		fmt.Printf("Resuming thread '%s' (%d messages)\n\n", threadID, n)
	}

	return chatLoop(ctx, a, threadID, os.Stdin, os.Stdout, opts.Verbose)
}

// chatLoop reads queries line by line until EOF or exit.
func chatLoop(ctx context.Context, asker server.Asker, threadID string, in io.Reader, out io.Writer, verbose bool) error {
	fmt.Fprintf(out, "Camera feed assistant (thread %s). Type 'exit' to quit.\n\n", threadID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		resp, err := asker.Ask(ctx, agent.Request{Query: input, ThreadID: threadID})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n\n", resp.Response)
		if verbose {
			printTurn(out, resp)
		}
	}

	return scanner.Err()
}

// Serve runs the HTTP surface until ctx is cancelled.
func Serve(ctx context.Context, addr string, opts Options) error {
	logger := NewLogger(os.Stderr, opts.Verbose)
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = settings.Server.Addr
	}

	a, err := buildAgent(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeAgent(a, logger)

	return server.NewHTTPServer(a, addr, logger).Serve(ctx)
}

// ServeMCP exposes the agent as an MCP server on stdin/stdout. Logs go to
// stderr so they never corrupt the protocol stream.
func ServeMCP(ctx context.Context, version string, opts Options) error {
	logger := NewLogger(os.Stderr, opts.Verbose)
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	a, err := buildAgent(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeAgent(a, logger)

	return server.ServeMCP(ctx, server.NewMCPServer(a, version, logger), os.Stdin, os.Stdout)
}

// ListTools prints the tools exposed by the configured tool server.
func ListTools(ctx context.Context, verbose bool, opts Options) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	transport, closer, err := connectTools(ctx, settings)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	list, err := transport.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	printTools(os.Stdout, list, verbose, settings.Tools.RetrievalName, settings.Tools.QueryName)
	return nil
}

func printTools(w io.Writer, list []tools.ToolMetadata, verbose bool, required ...string) {
	fmt.Fprintln(w, "Available tools:")
	fmt.Fprintln(w)

	seen := make(map[string]bool, len(list))
	for _, meta := range list {
		seen[meta.Name] = true
		fmt.Fprintf(w, "  %s\n", meta.Name)
		fmt.Fprintf(w, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(w, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(w, "      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Fprintln(w)
	}

	for _, name := range required {
		if !seen[name] {
			fmt.Fprintf(w, "Warning: required tool %q is not exposed by the server\n", name)
		}
	}
}

const maxIntentReasonLen = 120

func printTurn(w io.Writer, resp agent.Response) {
	meta := resp.Metadata
	fmt.Fprintln(w, "--- Turn ---")
	fmt.Fprintf(w, "  id: %s\n", meta.TurnID)
	fmt.Fprintf(w, "  path: %s\n", strings.Join(meta.Nodes, " -> "))
	if meta.Intent != nil {
		fmt.Fprintf(w, "  intent: %s\n", meta.Intent)
		if meta.Intent.Reasoning != "" {
			fmt.Fprintf(w, "  reasoning: %s\n", truncateString(meta.Intent.Reasoning, maxIntentReasonLen))
		}
	}
	for _, call := range meta.Calls {
		status := "ok"
		if !call.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "  call: %-16s %6dms  in=%d out=%d  %s\n", call.Name, call.DurationMs, call.InputSize, call.OutputSize, status)
	}
	if meta.Tokens > 0 {
		fmt.Fprintf(w, "  tokens: %d\n", meta.Tokens)
	}
	if meta.Summarized {
		fmt.Fprintln(w, "  history summarized")
	}
	fmt.Fprintf(w, "  elapsed: %dms\n", meta.ExecutionTimeMs)
	fmt.Fprintln(w, "------------")
	fmt.Fprintln(w)
}

func closeAgent(a *agent.Agent, logger zerolog.Logger) {
	if err := a.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to release resources")
	}
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
