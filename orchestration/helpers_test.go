package orchestration

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
	"github.com/richinex/feedsage/tools"
)

// scriptedProvider replays canned completions in order.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []scriptedReply
	requests [][]llm.ChatMessage
}

type scriptedReply struct {
	content string
	err     error
}

func reply(content string) scriptedReply { return scriptedReply{content: content} }

func failure(msg string) scriptedReply { return scriptedReply{err: errors.New(msg)} }

func newScriptedProvider(replies ...scriptedReply) *scriptedProvider {
	return &scriptedProvider{replies: replies}
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}

func (p *scriptedProvider) ChatWithFormat(_ context.Context, messages []llm.ChatMessage, _ *llm.ResponseFormat) (llm.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, messages)
	if len(p.replies) == 0 {
		return llm.LLMResponse{}, errors.New("no scripted reply left")
	}
	next := p.replies[0]
	p.replies = p.replies[1:]
	if next.err != nil {
		return llm.LLMResponse{}, next.err
	}
	return llm.LLMResponse{Content: next.content}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// toolCall is one recorded tool invocation.
type toolCall struct {
	name string
	args map[string]any
}

// fakeTools answers by tool name and records every call.
type fakeTools struct {
	mu      sync.Mutex
	results map[string]model.ToolCallResult
	log     []toolCall
}

func newFakeTools(results map[string]model.ToolCallResult) *fakeTools {
	return &fakeTools{results: results}
}

func (f *fakeTools) Invoke(_ context.Context, name string, args map[string]any) model.ToolCallResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.log = append(f.log, toolCall{name: name, args: args})
	result, ok := f.results[name]
	if !ok {
		return model.Failedf(model.ToolErrCommunication, "unknown tool: %s", name)
	}
	return result
}

func (f *fakeTools) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, len(f.log))
	for i, call := range f.log {
		names[i] = call.name
	}
	return names
}

func newTestEngine(provider llm.Provider, invoker tools.Invoker) *Engine {
	client := llm.NewClient(provider)
	executor := tools.NewExecutor(invoker, tools.DefaultToolConfig())
	engine, err := NewEngine(client, executor, DefaultEngineConfig(), zerolog.Nop())
	if err != nil {
		panic(err)
	}
	return engine
}

func callNames(calls []model.CallRecord) []string {
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Name
	}
	return names
}

func threadWith(id string, n int) model.Thread {
	thread := model.Thread{ID: id}
	for i := range n {
		if i%2 == 0 {
			thread.History = append(thread.History, model.UserMessage("question"))
		} else {
			thread.History = append(thread.History, model.AssistantMessage("answer"))
		}
	}
	return thread
}
