// Package orchestration runs one conversation turn through the workflow
// graph: optional summarization, intent classification, the tool pipeline
// and answer synthesis.
package orchestration

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
	"github.com/richinex/feedsage/tools"
)

// DefaultSummarizeAfter is the message count above which a turn summarizes.
const DefaultSummarizeAfter = 5

// EngineConfig tunes the workflow.
type EngineConfig struct {
	SummarizeAfter   int
	KeepAfterSummary int
	Pipeline         PipelineConfig
}

// DefaultEngineConfig returns the standard thresholds and tool names.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SummarizeAfter:   DefaultSummarizeAfter,
		KeepAfterSummary: DefaultKeepAfterSummary,
		Pipeline:         DefaultPipelineConfig(),
	}
}

// Engine runs turns. It holds no per-thread state and is safe for
// concurrent use.
type Engine struct {
	graph  *Graph
	logger zerolog.Logger
}

// NewEngine wires the summarizer and orchestrator into the workflow graph.
func NewEngine(client *llm.Client, executor *tools.Executor, config EngineConfig, logger zerolog.Logger) (*Engine, error) {
	if config.SummarizeAfter <= 0 {
		config.SummarizeAfter = DefaultSummarizeAfter
	}

	summarizer := NewSummarizer(client, config.KeepAfterSummary)
	orchestrator := NewOrchestrator(client, executor, config.Pipeline)

	graph, err := NewWorkflowGraph(summarizer.Summarize, orchestrator.Run, config.SummarizeAfter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow graph: %w", err)
	}
	logger.Debug().
		Int("summarize_after", config.SummarizeAfter).
		Dur("tool_timeout", executor.Timeout()).
		Msg("engine ready")
	return &Engine{graph: graph, logger: logger}, nil
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	Answer string
	Intent *model.Intent
	Trace  Trace
	Calls  []model.CallRecord
	// Summary and Folded describe the summary update to commit. Folded is
	// zero when the turn did not summarize or failed.
	Summary string
	Folded  int
	Err     error
}

// Failed reports whether the turn ended in an error answer.
func (r TurnResult) Failed() bool {
	return r.Err != nil
}

// Turn runs one query against a thread snapshot. Failures never escape as
// errors; they become the answer text and Err records the cause.
func (e *Engine) Turn(ctx context.Context, thread model.Thread, query string) TurnResult {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		ctx = e.logger.With().Str("thread_id", thread.ID).Logger().WithContext(ctx)
	}

	state := NewState(thread, query)
	final, trace, err := e.graph.Run(ctx, state)

	result := TurnResult{
		Trace:  trace,
		Calls:  final.Calls,
		Intent: final.Intent,
	}
	if err != nil {
		result.Err = err
		result.Answer = AnswerText(err)
		zerolog.Ctx(ctx).Warn().Err(err).Strs("trace", traceStrings(trace)).Msg("turn failed")
		return result
	}

	result.Answer = final.Answer
	if final.Folded > 0 {
		result.Summary = final.Summary
		result.Folded = final.Folded
	}
	return result
}

func traceStrings(trace Trace) []string {
	out := make([]string, len(trace))
	for i, id := range trace {
		out[i] = string(id)
	}
	return out
}
