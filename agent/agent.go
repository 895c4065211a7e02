// Conversation entry point.
//
// Information Hiding:
// - Turn serialization per thread hidden
// - Summary commit bookkeeping hidden
// - Turn ids and per-turn logging hidden

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/conversation"
	"github.com/richinex/feedsage/model"
	"github.com/richinex/feedsage/orchestration"
)

// ErrEmptyQuery is returned by Ask for a blank query.
var ErrEmptyQuery = errors.New("query must not be empty")

// Agent answers user turns against per-thread conversation memory.
// It is safe for concurrent use; turns on the same thread are serialized.
type Agent struct {
	engine  *orchestration.Engine
	store   *conversation.Store
	logger  zerolog.Logger
	closers []io.Closer
}

// Ask runs one turn. Model and tool failures do not produce an error: the
// failure is rendered as the answer and recorded in the thread like any
// other answer. An error is returned only for an empty query or a context
// that is done before the turn starts, including while it waits behind
// another turn on the same thread.
func (a *Agent) Ask(ctx context.Context, req Request) (Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, ErrEmptyQuery
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = DefaultThreadID
	}
	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("turn not started: %w", err)
	}

	turnID := uuid.NewString()
	logger := a.logger.With().Str("thread_id", threadID).Str("turn_id", turnID).Logger()
	ctx = logger.WithContext(ctx)

	unlock := a.store.Lock(threadID)
	defer unlock()
	if err := ctx.Err(); err != nil {
		logger.Debug().Err(err).Msg("turn abandoned while waiting for thread")
		return Response{}, fmt.Errorf("turn not started: %w", err)
	}

	start := time.Now()
	thread := a.store.Snapshot(threadID)
	result := a.engine.Turn(ctx, thread, query)

	var update *conversation.SummaryUpdate
	if result.Folded > 0 {
		update = &conversation.SummaryUpdate{Summary: result.Summary, Folded: result.Folded}
	}
	a.store.Commit(threadID, []model.Message{
		model.UserMessage(query),
		model.AssistantMessage(result.Answer),
	}, update)

	elapsed := time.Since(start)
	meta := Metadata{
		TurnID:          turnID,
		ExecutionTimeMs: uint64(elapsed.Milliseconds()),
		Intent:          result.Intent,
		Nodes:           nodeNames(result.Trace),
		Calls:           result.Calls,
		Summarized:      update != nil,
	}
	for _, call := range result.Calls {
		meta.Tokens += call.Tokens
	}
	if result.Err != nil {
		meta.Error = result.Err.Error()
	}

	event := logger.Info()
	if result.Intent != nil {
		event = event.Stringer("intent", result.Intent)
	}
	event.Int("calls", len(result.Calls)).
		Uint32("tokens", meta.Tokens).
		Dur("elapsed", elapsed).
		Bool("failed", result.Failed()).
		Msg("turn complete")

	return Response{Response: result.Answer, ThreadID: threadID, Metadata: meta}, nil
}

// History returns up to limit recent messages of a thread, oldest first.
func (a *Agent) History(threadID string, limit int) []model.Message {
	return a.store.History(threadID, limit)
}

// Thread returns a copy of a thread, including its rolling summary.
func (a *Agent) Thread(threadID string) model.Thread {
	return a.store.Snapshot(threadID)
}

// Threads lists the thread ids known to this process.
func (a *Agent) Threads() []string {
	return a.store.Threads()
}

// Close releases the resources registered with the builder.
func (a *Agent) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func nodeNames(trace orchestration.Trace) []string {
	names := make([]string, len(trace))
	for i, id := range trace {
		names[i] = string(id)
	}
	return names
}
