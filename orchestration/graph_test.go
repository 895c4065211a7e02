package orchestration

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
)

func answerNode(answer string) NodeFunc {
	return func(_ context.Context, state AgentState) (AgentState, error) {
		state.Answer = answer
		return state, nil
	}
}

func TestWorkflowSkipsSummarizeForShortThreads(t *testing.T) {
	summarized := false
	summarize := func(_ context.Context, state AgentState) (AgentState, error) {
		summarized = true
		return state, nil
	}

	graph, err := NewWorkflowGraph(summarize, answerNode("ok"), DefaultSummarizeAfter, zerolog.Nop())
	require.NoError(t, err)

	for history := 0; history <= 4; history++ {
		state := NewState(threadWith("t", history), "next")
		require.LessOrEqual(t, len(state.Messages), 5)

		final, trace, err := graph.Run(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, Trace{NodeStart, NodeOrchestrate, NodeEnd}, trace)
		assert.Equal(t, "ok", final.Answer)
	}
	assert.False(t, summarized)
}

func TestWorkflowSummarizesLongThreads(t *testing.T) {
	provider := newScriptedProvider(reply("  They discussed the north gate cameras.  "))
	summarizer := NewSummarizer(llm.NewClient(provider), DefaultKeepAfterSummary)

	var seen AgentState
	orchestrate := func(_ context.Context, state AgentState) (AgentState, error) {
		seen = state
		return state, nil
	}

	graph, err := NewWorkflowGraph(summarizer.Summarize, orchestrate, DefaultSummarizeAfter, zerolog.Nop())
	require.NoError(t, err)

	state := NewState(threadWith("t", 5), "and the south gate?")
	require.Len(t, state.Messages, 6)

	final, trace, err := graph.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, Trace{NodeStart, NodeSummarize, NodeOrchestrate, NodeEnd}, trace)
	assert.Len(t, seen.Messages, 2)
	assert.Equal(t, "and the south gate?", seen.Query())
	assert.Equal(t, "They discussed the north gate cameras.", final.Summary)
	assert.Equal(t, 4, final.Folded)
	assert.Equal(t, []string{"summarizer"}, callNames(final.Calls))
}

func TestSummarizeKeepsShortSequences(t *testing.T) {
	provider := newScriptedProvider(reply("summary"))
	summarizer := NewSummarizer(llm.NewClient(provider), DefaultKeepAfterSummary)

	state := NewState(model.Thread{ID: "t"}, "only message")
	final, err := summarizer.Summarize(context.Background(), state)
	require.NoError(t, err)
	assert.Len(t, final.Messages, 1)
	assert.Zero(t, final.Folded)
}

func TestSummarizeExtendsPriorSummary(t *testing.T) {
	provider := newScriptedProvider(reply("extended"))
	summarizer := NewSummarizer(llm.NewClient(provider), DefaultKeepAfterSummary)

	thread := threadWith("t", 6)
	thread.Summary = "earlier talk about lobby cameras"
	_, err := summarizer.Summarize(context.Background(), NewState(thread, "next"))
	require.NoError(t, err)

	require.Len(t, provider.requests, 1)
	request := provider.requests[0]
	instruction := request[len(request)-1].Content
	assert.Contains(t, instruction, "earlier talk about lobby cameras")
	assert.Len(t, request, 8)
}

func TestSummarizeFailure(t *testing.T) {
	provider := newScriptedProvider(failure("connection reset"))
	summarizer := NewSummarizer(llm.NewClient(provider), DefaultKeepAfterSummary)

	state := NewState(threadWith("t", 6), "next")
	final, err := summarizer.Summarize(context.Background(), state)
	require.Error(t, err)

	var commErr *ToolCommunicationError
	require.ErrorAs(t, err, &commErr)
	assert.Equal(t, LabelSummarizer, commErr.Tool)
	assert.Len(t, final.Messages, 7)
	assert.Zero(t, final.Folded)
}

func TestGraphNodeFailureStopsTraversal(t *testing.T) {
	boom := errors.New("boom")
	failing := func(_ context.Context, state AgentState) (AgentState, error) {
		state.Calls = append(state.Calls, model.CallRecord{Name: "classifier"})
		return state, boom
	}

	graph, err := NewWorkflowGraph(answerNode("unused"), failing, DefaultSummarizeAfter, zerolog.Nop())
	require.NoError(t, err)

	final, trace, err := graph.Run(context.Background(), NewState(model.Thread{ID: "t"}, "hi"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Trace{NodeStart, NodeOrchestrate}, trace)
	assert.Equal(t, []string{"classifier"}, callNames(final.Calls))
}

func TestGraphNodesReceiveCopies(t *testing.T) {
	original := NewState(model.Thread{ID: "t"}, "hi")
	mutate := func(_ context.Context, state AgentState) (AgentState, error) {
		state.Messages[0].Content = "changed"
		state.ToolResults["x"] = "y"
		return state, nil
	}

	graph, err := NewWorkflowGraph(answerNode(""), mutate, DefaultSummarizeAfter, zerolog.Nop())
	require.NoError(t, err)

	_, _, err = graph.Run(context.Background(), original)
	require.NoError(t, err)
	assert.Equal(t, "hi", original.Messages[0].Content)
	assert.Empty(t, original.ToolResults)
}

func TestGraphBuilderValidation(t *testing.T) {
	_, err := NewGraphBuilder(NodeStart).
		AddNode(NodeStart, nil).
		AddEdge(NodeStart, NodeOrchestrate).
		Build(zerolog.Nop())
	assert.Error(t, err, "edge to unknown node")

	_, err = NewGraphBuilder(NodeStart).
		AddNode(NodeStart, nil).
		AddNode(NodeOrchestrate, answerNode("")).
		AddEdge(NodeStart, NodeOrchestrate).
		Build(zerolog.Nop())
	assert.Error(t, err, "node without outgoing edge")

	_, err = NewGraphBuilder(NodeSummarize).
		AddNode(NodeStart, nil).
		AddEdge(NodeStart, NodeEnd).
		Build(zerolog.Nop())
	assert.Error(t, err, "missing start node")

	_, err = NewGraphBuilder(NodeStart).
		AddNode(NodeStart, nil).
		AddNode(NodeStart, nil).
		AddEdge(NodeStart, NodeEnd).
		Build(zerolog.Nop())
	assert.Error(t, err, "duplicate node")
}

func TestRouterToUnknownNode(t *testing.T) {
	graph, err := NewGraphBuilder(NodeStart).
		AddNode(NodeStart, nil).
		AddConditionalEdge(NodeStart, func(AgentState) NodeID { return "nowhere" }, NodeEnd).
		Build(zerolog.Nop())
	require.NoError(t, err)

	_, _, err = graph.Run(context.Background(), NewState(model.Thread{ID: "t"}, "hi"))
	assert.Error(t, err)
}
