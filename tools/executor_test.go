package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/feedsage/model"
)

func TestExecutorSingleAttempt(t *testing.T) {
	calls := 0
	invoker := InvokerFunc(func(_ context.Context, _ string, _ map[string]any) model.ToolCallResult {
		calls++
		return model.Failed(model.ToolErrCommunication, "connection refused")
	})

	result, record := NewExecutor(invoker, DefaultToolConfig()).Call(context.Background(), "rag_query_tool", map[string]any{"query": "x"})
	require.False(t, result.Success())
	assert.Equal(t, 1, calls)
	assert.Equal(t, "rag_query_tool", record.Name)
	assert.False(t, record.Success)
	assert.Positive(t, record.InputSize)
}

func TestExecutorRecordsSuccess(t *testing.T) {
	invoker := InvokerFunc(func(_ context.Context, name string, _ map[string]any) model.ToolCallResult {
		return model.Ok("rows for " + name)
	})

	result, record := NewExecutor(invoker, ToolConfig{}).Call(context.Background(), "sql_query_tool", nil)
	require.True(t, result.Success())
	assert.True(t, record.Success)
	assert.Equal(t, len("rows for sql_query_tool"), record.OutputSize)
	assert.Zero(t, record.InputSize)
}

func TestExecutorDeadline(t *testing.T) {
	invoker := InvokerFunc(func(ctx context.Context, _ string, _ map[string]any) model.ToolCallResult {
		<-ctx.Done()
		return model.Failedf(model.ToolErrCommunication, "request failed: %v", ctx.Err())
	})

	executor := NewExecutor(invoker, ToolConfig{TimeoutSecs: 1})
	start := time.Now()
	result, _ := executor.Call(context.Background(), "slow", nil)

	require.False(t, result.Success())
	assert.Equal(t, model.ToolErrCommunication, result.Err.Kind)
	assert.Contains(t, result.Err.Detail, "timed out after 1s")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecutorCancelledContext(t *testing.T) {
	called := false
	invoker := InvokerFunc(func(_ context.Context, _ string, _ map[string]any) model.ToolCallResult {
		called = true
		return model.Ok("")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _ := NewExecutor(invoker, DefaultToolConfig()).Call(ctx, "x", nil)
	assert.False(t, called)
	require.False(t, result.Success())
	assert.Equal(t, model.ToolErrCommunication, result.Err.Kind)
}

func TestToolConfigTimeoutDefault(t *testing.T) {
	var nilConfig *ToolConfig
	assert.Equal(t, 30*time.Second, nilConfig.Timeout())
	assert.Equal(t, 30*time.Second, (&ToolConfig{}).Timeout())
	assert.Equal(t, 5*time.Second, (&ToolConfig{TimeoutSecs: 5}).Timeout())
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(ToolMetadata{Name: "echo", Description: "echo query"},
		func(_ context.Context, args map[string]any) model.ToolCallResult {
			q, _ := args["query"].(string)
			return model.Ok(q)
		}))

	err := registry.Register(ToolMetadata{Name: "echo"}, nil)
	assert.Error(t, err)
	assert.Error(t, registry.Register(ToolMetadata{}, nil))

	assert.True(t, registry.Has("echo"))
	assert.Equal(t, "hi", registry.Invoke(context.Background(), "echo", map[string]any{"query": "hi"}).Output)

	missing := registry.Invoke(context.Background(), "nope", nil)
	require.False(t, missing.Success())
	assert.Equal(t, model.ToolErrCommunication, missing.Err.Kind)

	list, err := registry.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExecutorInBandErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"query error", "SQL Query Error: no such column: regions", "no such column: regions"},
		{"bare error", "Error: index not loaded", "index not loaded"},
		{"leading whitespace", "\n  RAG Error: timeout", "timeout"},
		{"prefix only", "Error:", "Error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := InvokerFunc(func(_ context.Context, _ string, _ map[string]any) model.ToolCallResult {
				return model.Ok(tt.output)
			})

			result, record := NewExecutor(invoker, DefaultToolConfig()).Call(context.Background(), DefaultQueryTool, nil)
			require.False(t, result.Success())
			assert.Equal(t, model.ToolErrReported, result.Err.Kind)
			assert.Equal(t, tt.want, result.Err.Detail)
			assert.False(t, record.Success)
		})
	}
}

func TestExecutorKeepsOutputMentioningErrors(t *testing.T) {
	outputs := []string{
		"count\n----\n3",
		"Cameras with Error: state are listed below",
		"The error_code column stores the last Error: value",
		"Camera cam-3 reported a lens error yesterday.",
	}
	for _, output := range outputs {
		invoker := InvokerFunc(func(_ context.Context, _ string, _ map[string]any) model.ToolCallResult {
			return model.Ok(output)
		})

		result, _ := NewExecutor(invoker, DefaultToolConfig()).Call(context.Background(), DefaultRetrievalTool, nil)
		require.True(t, result.Success(), output)
		assert.Equal(t, output, result.Output)
	}
}
