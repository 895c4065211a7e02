// WorkflowGraph - a small directed graph of state-transforming nodes.
//
// Information Hiding:
// - Edge and router storage hidden
// - Traversal bookkeeping (trace, step guard) hidden
// - Per-node logging hidden

package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// NodeID names a graph node.
type NodeID string

const (
	NodeStart       NodeID = "start"
	NodeSummarize   NodeID = "summarize"
	NodeOrchestrate NodeID = "orchestrate"
	NodeEnd         NodeID = "end"
)

// NodeFunc transforms the turn state. On failure it may return a partially
// updated state alongside the error; the state is kept for diagnostics only.
type NodeFunc func(ctx context.Context, state AgentState) (AgentState, error)

// Router picks the next node from the state.
type Router func(state AgentState) NodeID

// Trace lists the nodes visited by one traversal, in order.
type Trace []NodeID

// Graph is an immutable workflow graph, safe for concurrent traversals.
type Graph struct {
	nodes  map[NodeID]NodeFunc
	next   map[NodeID]Router
	start  NodeID
	logger zerolog.Logger
}

// GraphBuilder assembles a Graph.
type GraphBuilder struct {
	nodes map[NodeID]NodeFunc
	next  map[NodeID]Router
	start NodeID
	err   error
}

// NewGraphBuilder starts a graph whose traversal begins at start.
func NewGraphBuilder(start NodeID) *GraphBuilder {
	return &GraphBuilder{
		nodes: map[NodeID]NodeFunc{NodeEnd: nil},
		next:  make(map[NodeID]Router),
		start: start,
	}
}

// AddNode registers a node.
func (b *GraphBuilder) AddNode(id NodeID, fn NodeFunc) *GraphBuilder {
	if _, exists := b.nodes[id]; exists && b.err == nil {
		b.err = fmt.Errorf("node %q already added", id)
	}
	b.nodes[id] = fn
	return b
}

// AddEdge adds an unconditional transition.
func (b *GraphBuilder) AddEdge(from, to NodeID) *GraphBuilder {
	return b.AddConditionalEdge(from, func(AgentState) NodeID { return to }, to)
}

// AddConditionalEdge adds a routed transition. targets lists every node the
// router may return so the graph can be validated up front.
func (b *GraphBuilder) AddConditionalEdge(from NodeID, router Router, targets ...NodeID) *GraphBuilder {
	if _, exists := b.next[from]; exists && b.err == nil {
		b.err = fmt.Errorf("node %q already has an outgoing edge", from)
	}
	for _, target := range targets {
		if _, ok := b.nodes[target]; !ok && b.err == nil {
			b.err = fmt.Errorf("edge %q -> %q targets an unknown node", from, target)
		}
	}
	b.next[from] = router
	return b
}

// Build validates and returns the graph.
func (b *GraphBuilder) Build(logger zerolog.Logger) (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if _, ok := b.nodes[b.start]; !ok {
		return nil, fmt.Errorf("start node %q not added", b.start)
	}
	for id := range b.nodes {
		if _, ok := b.next[id]; !ok && id != NodeEnd {
			return nil, fmt.Errorf("node %q has no outgoing edge", id)
		}
	}
	return &Graph{nodes: b.nodes, next: b.next, start: b.start, logger: logger}, nil
}

// Run traverses the graph from the start node until End. A node failure
// stops the traversal; the returned state is whatever that node returned.
func (g *Graph) Run(ctx context.Context, state AgentState) (AgentState, Trace, error) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &g.logger
	}

	var trace Trace
	current := g.start
	// Every node is visited at most once in an acyclic graph.
	for steps := 0; steps <= len(g.nodes); steps++ {
		trace = append(trace, current)
		if current == NodeEnd {
			return state, trace, nil
		}

		fn := g.nodes[current]
		if fn != nil {
			start := time.Now()
			next, err := fn(ctx, state.Clone())
			elapsed := time.Since(start)
			if err != nil {
				logger.Debug().Str("node", string(current)).Dur("elapsed", elapsed).Err(err).Msg("node failed")
				return next, trace, err
			}
			logger.Debug().Str("node", string(current)).Dur("elapsed", elapsed).Msg("node finished")
			state = next
		}

		target := g.next[current](state)
		if _, ok := g.nodes[target]; !ok {
			return state, trace, fmt.Errorf("node %q routed to unknown node %q", current, target)
		}
		current = target
	}
	return state, trace, fmt.Errorf("graph did not reach %q within %d steps", NodeEnd, len(g.nodes))
}

// RouteAfterStart sends states with more than threshold messages through
// summarization and everything else straight to orchestration.
func RouteAfterStart(threshold int) Router {
	return func(state AgentState) NodeID {
		if len(state.Messages) > threshold {
			return NodeSummarize
		}
		return NodeOrchestrate
	}
}

// NewWorkflowGraph wires Start, Summarize, Orchestrate and End.
func NewWorkflowGraph(summarize, orchestrate NodeFunc, threshold int, logger zerolog.Logger) (*Graph, error) {
	return NewGraphBuilder(NodeStart).
		AddNode(NodeStart, nil).
		AddNode(NodeSummarize, summarize).
		AddNode(NodeOrchestrate, orchestrate).
		AddConditionalEdge(NodeStart, RouteAfterStart(threshold), NodeSummarize, NodeOrchestrate).
		AddEdge(NodeSummarize, NodeOrchestrate).
		AddEdge(NodeOrchestrate, NodeEnd).
		Build(logger)
}
