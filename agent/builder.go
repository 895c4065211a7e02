// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Client and executor construction hidden

package agent

import (
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/conversation"
	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/orchestration"
	"github.com/richinex/feedsage/storage"
	"github.com/richinex/feedsage/tools"
)

// Builder assembles an Agent from its collaborators.
type Builder struct {
	provider llm.Provider
	invoker  tools.Invoker
	storage  storage.ThreadStorage
	config   Config
	logger   zerolog.Logger
	closers  []io.Closer
}

// NewBuilder creates a builder with the default configuration.
func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// Provider sets the language-model provider. Required.
func (b *Builder) Provider(p llm.Provider) *Builder {
	b.provider = p
	return b
}

// Tools sets the tool transport. Required.
func (b *Builder) Tools(inv tools.Invoker) *Builder {
	b.invoker = inv
	return b
}

// Storage enables thread persistence.
func (b *Builder) Storage(ts storage.ThreadStorage) *Builder {
	b.storage = ts
	return b
}

// Config replaces the configuration.
func (b *Builder) Config(c Config) *Builder {
	b.config = c
	return b
}

// Logger sets the logger shared by every component.
func (b *Builder) Logger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// Closer registers a resource released by Agent.Close, such as a tool
// subprocess or a database handle.
func (b *Builder) Closer(c io.Closer) *Builder {
	if c != nil {
		b.closers = append(b.closers, c)
	}
	return b
}

// Build wires the store, the model client, the tool executor and the
// workflow engine.
func (b *Builder) Build() (*Agent, error) {
	if b.provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if b.invoker == nil {
		return nil, errors.New("agent: tool invoker is required")
	}

	client := llm.NewClient(b.provider).
		WithTimeout(b.config.LLMTimeout).
		WithLogger(b.logger)
	executor := tools.NewExecutor(b.invoker, b.config.Tool).
		WithLogger(b.logger)

	engine, err := orchestration.NewEngine(client, executor, b.config.Engine, b.logger)
	if err != nil {
		return nil, err
	}

	opts := []conversation.Option{
		conversation.WithMaxHistory(b.config.MaxHistory),
		conversation.WithLogger(b.logger),
	}
	if b.storage != nil {
		opts = append(opts, conversation.WithStorage(b.storage))
	}

	return &Agent{
		engine:  engine,
		store:   conversation.NewStore(opts...),
		logger:  b.logger,
		closers: b.closers,
	}, nil
}
