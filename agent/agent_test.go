package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
	"github.com/richinex/feedsage/orchestration"
	"github.com/richinex/feedsage/storage"
	"github.com/richinex/feedsage/tools"
)

// routingProvider answers by prompt kind so turn order does not matter.
type routingProvider struct {
	intent    string
	summaries atomic.Int32
	failWith  error
}

func (p *routingProvider) Name() string  { return "routing" }
func (p *routingProvider) Model() string { return "routing-1" }

func (p *routingProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}

func (p *routingProvider) ChatWithFormat(_ context.Context, messages []llm.ChatMessage, _ *llm.ResponseFormat) (llm.LLMResponse, error) {
	if p.failWith != nil {
		return llm.LLMResponse{}, p.failWith
	}
	last := messages[len(messages)-1].Content
	switch {
	case strings.HasPrefix(last, "Classify"):
		return llm.LLMResponse{Content: fmt.Sprintf(`{"intent": %q, "confidence": 0.9}`, p.intent)}, nil
	case strings.Contains(last, "summary"):
		n := p.summaries.Add(1)
		return llm.LLMResponse{Content: fmt.Sprintf("summary %d", n)}, nil
	case strings.HasPrefix(last, "Write one SQL"):
		return llm.LLMResponse{Content: "SELECT COUNT(*) FROM camera_feeds", Usage: &llm.TokenUsage{TotalTokens: 40}}, nil
	default:
		return llm.LLMResponse{Content: "There are 3 cameras.", Usage: &llm.TokenUsage{TotalTokens: 25}}, nil
	}
}

func okTools() tools.Invoker {
	registry := tools.NewRegistry()
	_ = registry.Register(tools.ToolMetadata{Name: tools.DefaultRetrievalTool, Description: "context retrieval"},
		func(_ context.Context, _ map[string]any) model.ToolCallResult {
			return model.Ok("Answer: cameras have a region field")
		})
	_ = registry.Register(tools.ToolMetadata{Name: tools.DefaultQueryTool, Description: "structured query"},
		func(_ context.Context, _ map[string]any) model.ToolCallResult {
			return model.Ok("count\n3")
		})
	return registry
}

func newTestAgent(t *testing.T, provider llm.Provider, invoker tools.Invoker) *Agent {
	t.Helper()
	a, err := NewBuilder().Provider(provider).Tools(invoker).Build()
	require.NoError(t, err)
	return a
}

func TestAskDefaultsThread(t *testing.T) {
	a := newTestAgent(t, &routingProvider{intent: "greeting"}, okTools())

	resp, err := a.Ask(context.Background(), Request{Query: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, DefaultThreadID, resp.ThreadID)
	assert.Equal(t, orchestration.GreetingReply, resp.Response)
	assert.True(t, resp.IsSuccess())
	assert.NotEmpty(t, resp.Metadata.TurnID)
	assert.Equal(t, []string{"start", "orchestrate", "end"}, resp.Metadata.Nodes)

	history := a.History(DefaultThreadID, 0)
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "Hi", history[0].Content)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.Equal(t, orchestration.GreetingReply, history[1].Content)
}

func TestAskDataQuery(t *testing.T) {
	a := newTestAgent(t, &routingProvider{intent: "data_query"}, okTools())

	resp, err := a.Ask(context.Background(), Request{Query: "How many cameras?", ThreadID: "ops"})
	require.NoError(t, err)
	assert.Equal(t, "There are 3 cameras.", resp.Response)
	assert.Equal(t, "ops", resp.ThreadID)
	require.NotNil(t, resp.Metadata.Intent)
	assert.Equal(t, model.IntentDataQuery, resp.Metadata.Intent.Kind)
	assert.Len(t, resp.Metadata.Calls, 5)
	assert.Equal(t, uint32(65), resp.Metadata.Tokens)
}

func TestAskFailureBecomesAnswer(t *testing.T) {
	invoker := tools.InvokerFunc(func(_ context.Context, _ string, _ map[string]any) model.ToolCallResult {
		return model.Failed(model.ToolErrCommunication, "connection refused")
	})
	a := newTestAgent(t, &routingProvider{intent: "metadata_query"}, invoker)

	resp, err := a.Ask(context.Background(), Request{Query: "What is CODEC?", ThreadID: "t"})
	require.NoError(t, err)
	assert.Equal(t, "RAG Error: connection refused", resp.Response)
	assert.False(t, resp.IsSuccess())

	history := a.History("t", 0)
	require.Len(t, history, 2)
	assert.Equal(t, "RAG Error: connection refused", history[1].Content)
}

func TestAskModelFailureBecomesAnswer(t *testing.T) {
	a := newTestAgent(t, &routingProvider{failWith: errors.New("quota exceeded")}, okTools())

	resp, err := a.Ask(context.Background(), Request{Query: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "Classifier Error: routing: quota exceeded", resp.Response)
}

func TestAskRejectsInvalidInput(t *testing.T) {
	a := newTestAgent(t, &routingProvider{intent: "greeting"}, okTools())

	_, err := a.Ask(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Ask(ctx, Request{Query: "Hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, a.History(DefaultThreadID, 0))
}

func TestAskSummarizesLongThreads(t *testing.T) {
	provider := &routingProvider{intent: "greeting"}
	a := newTestAgent(t, provider, okTools())

	for i := range 3 {
		_, err := a.Ask(context.Background(), Request{Query: fmt.Sprintf("hello %d", i), ThreadID: "t"})
		require.NoError(t, err)
	}
	assert.Empty(t, a.Thread("t").Summary)

	resp, err := a.Ask(context.Background(), Request{Query: "hello again", ThreadID: "t"})
	require.NoError(t, err)
	assert.True(t, resp.Metadata.Summarized)
	assert.Equal(t, []string{"start", "summarize", "orchestrate", "end"}, resp.Metadata.Nodes)

	thread := a.Thread("t")
	assert.Equal(t, "summary 1", thread.Summary)
	assert.Len(t, thread.History, 8)
	// Six prior messages plus the new query were summarized down to two,
	// so the five oldest are folded and three remain pending.
	assert.Equal(t, 5, thread.Summarized)
	assert.Len(t, thread.Pending(), 3)

	resp, err = a.Ask(context.Background(), Request{Query: "one more", ThreadID: "t"})
	require.NoError(t, err)
	assert.False(t, resp.Metadata.Summarized)
}

func TestAskSerializesSameThread(t *testing.T) {
	a := newTestAgent(t, &routingProvider{intent: "greeting"}, okTools())

	var wg conc.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			_, err := a.Ask(context.Background(), Request{Query: fmt.Sprintf("hi %d", i), ThreadID: "shared"})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	history := a.History("shared", 0)
	require.Len(t, history, 40)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, model.RoleUser, history[i].Role)
		assert.Equal(t, model.RoleAssistant, history[i+1].Role)
	}
}

// gatedProvider holds its first completion until release is closed.
type gatedProvider struct {
	*routingProvider
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (p *gatedProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}

func (p *gatedProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	if p.calls.Add(1) == 1 {
		close(p.entered)
		<-p.release
	}
	return p.routingProvider.ChatWithFormat(ctx, messages, format)
}

func TestAskAbandonedWhileWaitingForThread(t *testing.T) {
	provider := &gatedProvider{
		routingProvider: &routingProvider{intent: "greeting"},
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	a := newTestAgent(t, provider, okTools())

	var wg conc.WaitGroup
	wg.Go(func() {
		_, err := a.Ask(context.Background(), Request{Query: "hi", ThreadID: "busy"})
		assert.NoError(t, err)
	})
	<-provider.entered

	ctx, cancel := context.WithCancel(context.Background())
	waitErr := make(chan error, 1)
	wg.Go(func() {
		_, err := a.Ask(ctx, Request{Query: "still there?", ThreadID: "busy"})
		waitErr <- err
	})
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(provider.release)
	wg.Wait()

	err := <-waitErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), provider.calls.Load(), "the abandoned turn must not reach the model")
	assert.Len(t, a.History("busy", 0), 2)
}

func TestAskDistinctThreadsIndependent(t *testing.T) {
	a := newTestAgent(t, &routingProvider{intent: "greeting"}, okTools())

	var wg conc.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			_, err := a.Ask(context.Background(), Request{Query: "hi", ThreadID: fmt.Sprintf("t%d", i)})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Len(t, a.Threads(), 8)
	for _, id := range a.Threads() {
		assert.Len(t, a.History(id, 0), 2)
	}
}

func TestAskPersistsThroughStorage(t *testing.T) {
	backend := storage.NewInMemoryStorage()
	provider := &routingProvider{intent: "greeting"}

	first, err := NewBuilder().Provider(provider).Tools(okTools()).Storage(backend).Build()
	require.NoError(t, err)
	_, err = first.Ask(context.Background(), Request{Query: "Hi", ThreadID: "kept"})
	require.NoError(t, err)

	second, err := NewBuilder().Provider(provider).Tools(okTools()).Storage(backend).Build()
	require.NoError(t, err)
	assert.Len(t, second.History("kept", 0), 2)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestBuilderAndClose(t *testing.T) {
	_, err := NewBuilder().Tools(okTools()).Build()
	assert.Error(t, err)
	_, err = NewBuilder().Provider(&routingProvider{}).Build()
	assert.Error(t, err)

	var mu sync.Mutex
	var order []string
	closer := func(name string) closerFunc {
		return func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	a, err := NewBuilder().
		Provider(&routingProvider{}).
		Tools(okTools()).
		Closer(closer("tools")).
		Closer(closer("db")).
		Build()
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.Equal(t, []string{"db", "tools"}, order)
}
