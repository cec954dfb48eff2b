package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucaproject/luca-core/log"
	"github.com/lucaproject/luca-core/store"
)

// DefaultStepLimit bounds how many nodes a single invocation may run.
// The workflows built on this engine loop only through counted feedback
// cycles, so hitting this limit always means a topology bug.
const DefaultStepLimit = 100

// StateGraph is a typed state machine builder. The type parameter S is
// the state threaded through every node.
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("validate", "Validate input", validateNode)
//	g.AddConditionalEdge("validate", routeAfterValidate)
//	g.SetEntryPoint("validate")
//	runnable, err := g.Compile()
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            []Edge
	conditionalEdges map[string]Condition[S]
	entryPoint       string
	retryPolicy      *RetryPolicy
	stepLimit        int
	logger           log.Logger
}

// NewStateGraph creates an empty state graph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]Condition[S]),
		stepLimit:        DefaultStepLimit,
		logger:           log.GetDefaultLogger(),
	}
}

// AddNode registers a node under a unique name.
func (g *StateGraph[S]) AddNode(name, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge declares a static transition from one node to the next.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge declares a runtime-decided transition. A conditional
// edge takes precedence over static edges from the same node.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition Condition[S]) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the node execution starts from.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the per-node retry policy.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetStepLimit overrides the default step limit.
func (g *StateGraph[S]) SetStepLimit(limit int) {
	if limit > 0 {
		g.stepLimit = limit
	}
}

// SetLogger overrides the logger used during execution.
func (g *StateGraph[S]) SetLogger(logger log.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Compile validates the graph and returns a Runnable.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	return &Runnable[S]{graph: g}, nil
}

// Config carries per-invocation options.
type Config struct {
	// ThreadID keys checkpoints to a conversation thread.
	ThreadID string

	// Checkpoints, when set, receives a state snapshot after every node.
	// Failures are logged and never interrupt execution.
	Checkpoints store.CheckpointStore

	// Metadata is attached to every checkpoint written during the run.
	Metadata map[string]any
}

// WithThreadID is a convenience constructor for checkpoint-keyed runs.
func WithThreadID(threadID string, checkpoints store.CheckpointStore) *Config {
	return &Config{ThreadID: threadID, Checkpoints: checkpoints}
}

// Runnable is a compiled state graph.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Invoke executes the graph from the entry point until END.
func (r *Runnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the graph with per-invocation options.
// Nodes run strictly one at a time; a conditional edge on the current
// node decides the successor, otherwise its single static edge does.
func (r *Runnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	state := initialState
	current := r.graph.entryPoint
	steps := 0

	for current != END {
		if err := ctx.Err(); err != nil {
			var zero S
			return zero, err
		}

		steps++
		if steps > r.graph.stepLimit {
			var zero S
			return zero, fmt.Errorf("%w: %d steps from node %s", ErrStepLimit, r.graph.stepLimit, current)
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			var zero S
			return zero, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		r.graph.logger.Debug("graph: running node %s (step %d)", current, steps)

		result, err := r.executeWithRetry(ctx, node, state)
		if err != nil {
			var zero S
			return zero, fmt.Errorf("error in node %s: %w", current, err)
		}
		state = result

		r.saveCheckpoint(ctx, config, current, steps, state)

		next, err := r.nextNode(ctx, current, state)
		if err != nil {
			var zero S
			return zero, err
		}
		current = next
	}

	return state, nil
}

// nextNode resolves the successor of a node from its conditional or
// static edges.
func (r *Runnable[S]) nextNode(ctx context.Context, current string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[current]; ok {
		next := condition(ctx, state)
		if next == "" {
			return "", fmt.Errorf("conditional edge returned empty next node from %s", current)
		}
		return next, nil
	}

	next := ""
	for _, edge := range r.graph.edges {
		if edge.From != current {
			continue
		}
		if next != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousEdge, current)
		}
		next = edge.To
	}
	if next == "" {
		return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
	}
	return next, nil
}

// saveCheckpoint persists the post-node state. Best-effort: persistence
// being down must never change workflow control flow.
func (r *Runnable[S]) saveCheckpoint(ctx context.Context, config *Config, nodeName string, version int, state S) {
	if config == nil || config.Checkpoints == nil {
		return
	}

	checkpoint := &store.Checkpoint{
		ID:        "checkpoint_" + uuid.New().String(),
		ThreadID:  config.ThreadID,
		NodeName:  nodeName,
		State:     state,
		Metadata:  config.Metadata,
		Timestamp: time.Now(),
		Version:   version,
	}

	if err := config.Checkpoints.Save(ctx, checkpoint); err != nil {
		r.graph.logger.Warn("graph: checkpoint save failed at node %s: %v", nodeName, err)
	}
}
