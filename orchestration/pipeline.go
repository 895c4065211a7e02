package orchestration

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
	"github.com/richinex/feedsage/tools"
)

// DefaultTopK is the number of passages requested from context retrieval.
const DefaultTopK = 5

// PipelineConfig names the external tools and the data contract.
type PipelineConfig struct {
	RetrievalTool string
	QueryTool     string
	TopK          int
	Contract      DataContract
}

// DefaultPipelineConfig returns the feed tool server defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RetrievalTool: tools.DefaultRetrievalTool,
		QueryTool:     tools.DefaultQueryTool,
		TopK:          DefaultTopK,
		Contract:      DefaultDataContract,
	}
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.RetrievalTool == "" {
		c.RetrievalTool = d.RetrievalTool
	}
	if c.QueryTool == "" {
		c.QueryTool = d.QueryTool
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.Contract.Table == "" {
		c.Contract = d.Contract
	}
	return c
}

// Orchestrator classifies the query and runs the matching tool pipeline.
type Orchestrator struct {
	classifier  *Classifier
	synthesizer *Synthesizer
	client      *llm.Client
	executor    *tools.Executor
	config      PipelineConfig
}

// NewOrchestrator creates an orchestrator over one model client and one
// tool executor.
func NewOrchestrator(client *llm.Client, executor *tools.Executor, config PipelineConfig) *Orchestrator {
	return &Orchestrator{
		classifier:  NewClassifier(client),
		synthesizer: NewSynthesizer(client),
		client:      client,
		executor:    executor,
		config:      config.withDefaults(),
	}
}

// Run is the orchestrate node. On failure the returned state carries the
// calls made so far; the error becomes the answer text.
func (o *Orchestrator) Run(ctx context.Context, state AgentState) (AgentState, error) {
	query := state.Query()

	intent, call, err := o.classifier.Classify(ctx, query)
	state.record(call)
	if err != nil {
		return state, err
	}
	state.Intent = &intent
	zerolog.Ctx(ctx).Info().Stringer("intent", intent).Msg("intent classified")

	switch intent.Kind {
	case model.IntentGreeting:
		state.Answer = GreetingReply
		return state, nil
	case model.IntentMetadataQuery:
		return o.metadataQuery(ctx, state, query)
	case model.IntentDataQuery:
		return o.dataQuery(ctx, state, query)
	case model.IntentUnknown:
		state.Answer = UnknownIntentReply
		return state, nil
	default:
		return state, ErrUnknownIntent
	}
}

func (o *Orchestrator) metadataQuery(ctx context.Context, state AgentState, query string) (AgentState, error) {
	answer, err := o.retrieve(ctx, &state, query)
	if err != nil {
		return state, err
	}
	state.Answer = answer
	return state, nil
}

// dataQuery runs retrieval, query generation, query execution and synthesis.
// The first failing step ends the pipeline.
func (o *Orchestrator) dataQuery(ctx context.Context, state AgentState, query string) (AgentState, error) {
	hints, err := o.retrieve(ctx, &state, query)
	if err != nil {
		return state, err
	}

	statement, err := o.generateQuery(ctx, &state, query, hints)
	if err != nil {
		return state, err
	}

	result, call := o.executor.Call(ctx, o.config.QueryTool, map[string]any{"query": statement})
	state.record(call)
	if !result.Success() {
		return state, toolFailure(LabelQuery, result)
	}
	rows := CleanQueryResult(result.Output)
	state.ToolResults[o.config.QueryTool] = rows

	answer, call, err := o.synthesizer.Synthesize(ctx, query, map[string]string{o.config.QueryTool: rows})
	state.record(call)
	if err != nil {
		return state, err
	}
	state.Answer = answer
	return state, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, state *AgentState, query string) (string, error) {
	result, call := o.executor.Call(ctx, o.config.RetrievalTool, map[string]any{
		"query": query,
		"top_k": o.config.TopK,
	})
	state.record(call)
	if !result.Success() {
		return "", toolFailure(LabelRetrieval, result)
	}

	cleaned := CleanRetrievalAnswer(result.Output)
	state.ToolResults[o.config.RetrievalTool] = cleaned
	return cleaned, nil
}

func (o *Orchestrator) generateQuery(ctx context.Context, state *AgentState, query, hints string) (string, error) {
	messages := []llm.ChatMessage{llm.UserMessage(queryGenInstruction(query, hints, o.config.Contract))}

	content, call, err := complete(ctx, o.client, "query_generator", messages, nil)
	state.record(call)
	if err != nil {
		return "", completionFailure(LabelQueryGen, err)
	}

	statement := StripCodeFence(content)
	if statement == "" {
		return "", &ParseError{Stage: LabelQueryGen, Detail: "model returned no query"}
	}
	zerolog.Ctx(ctx).Debug().Str("statement", statement).Msg("query generated")
	return statement, nil
}

// complete runs one model call and records it like a tool call.
func complete(ctx context.Context, client *llm.Client, name string, messages []llm.ChatMessage, format *llm.ResponseFormat) (string, model.CallRecord, error) {
	input := 0
	for _, m := range messages {
		input += len(m.Content)
	}

	start := time.Now()
	content, usage, err := client.Complete(ctx, messages, format)

	call := model.CallRecord{
		Name:       name,
		InputSize:  input,
		OutputSize: len(content),
		DurationMs: uint64(time.Since(start).Milliseconds()),
		Success:    err == nil,
	}
	if usage != nil {
		call.Tokens = usage.TotalTokens
	}
	return content, call, err
}
