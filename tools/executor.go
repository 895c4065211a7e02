// Tool Executor with per-call deadline.
//
// Information Hiding:
// - Deadline derivation hidden
// - Timeout classification hidden
// - Call accounting hidden
//
// Calls are attempted exactly once. A failed call is reported to the caller,
// which decides what the failure means for the turn.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/model"
)

// inBandError matches tool output that is an error message delivered as a
// successful result, such as "Error: ..." or "SQL Query Error: ...".
var inBandError = regexp.MustCompile(`(?s)^\s*(?:[A-Z][A-Za-z]*\s+){0,3}Error:\s*(.*)$`)

// Executor runs tool invocations under a deadline and records each call.
type Executor struct {
	invoker Invoker
	config  ToolConfig
	logger  zerolog.Logger
}

// NewExecutor creates a new tool executor over the given transport.
func NewExecutor(invoker Invoker, config ToolConfig) *Executor {
	return &Executor{invoker: invoker, config: config, logger: zerolog.Nop()}
}

// WithLogger sets the logger used for call diagnostics.
func (e *Executor) WithLogger(logger zerolog.Logger) *Executor {
	e.logger = logger
	return e
}

// Timeout returns the per-call deadline.
func (e *Executor) Timeout() time.Duration {
	return e.config.Timeout()
}

// Call invokes a tool once and returns its result with a call record.
func (e *Executor) Call(ctx context.Context, name string, args map[string]any) (model.ToolCallResult, model.CallRecord) {
	record := model.CallRecord{Name: name, InputSize: argsSize(args)}

	if err := ctx.Err(); err != nil {
		return model.Failedf(model.ToolErrCommunication, "call abandoned: %v", err), record
	}

	timeout := e.config.Timeout()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := e.invoker.Invoke(callCtx, name, args)
	elapsed := time.Since(start)

	// Transports surface deadline expiry in their own words; normalize it.
	if !result.Success() && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result = model.Failedf(model.ToolErrCommunication, "timed out after %s", timeout)
	}
	if result.Success() {
		result = classifyOutput(result.Output)
	}

	record.OutputSize = len(result.Output)
	record.DurationMs = uint64(elapsed.Milliseconds())
	record.Success = result.Success()

	event := e.logger.Debug().Str("tool", name).Dur("elapsed", elapsed)
	if result.Success() {
		event.Int("output_size", record.OutputSize).Msg("tool call succeeded")
	} else {
		event.Str("kind", result.Err.Kind.String()).Str("detail", result.Err.Detail).Msg("tool call failed")
	}

	return result, record
}

// classifyOutput turns an in-band error message into a reported failure.
func classifyOutput(output string) model.ToolCallResult {
	m := inBandError.FindStringSubmatch(output)
	if m == nil {
		return model.Ok(output)
	}
	detail := strings.TrimSpace(m[1])
	if detail == "" {
		detail = strings.TrimSpace(output)
	}
	return model.Failed(model.ToolErrReported, detail)
}

func argsSize(args map[string]any) int {
	if len(args) == 0 {
		return 0
	}
	data, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(data)
}
