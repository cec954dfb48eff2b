package graph

import (
	"context"
	"errors"
)

// END is the special node name that terminates execution.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when execution reaches an undeclared node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when a node has no edge and no condition.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrAmbiguousEdge is returned when a node declares more than one static
	// edge. This engine runs nodes strictly one at a time; fan-out requires
	// a conditional edge that picks a single successor.
	ErrAmbiguousEdge = errors.New("multiple outgoing edges for node")

	// ErrStepLimit is returned when execution exceeds the configured step
	// limit, which means an edge declaration produced an unbounded cycle.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Node is a named step in the state machine.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes what the node does; surfaced in logs.
	Description string

	// Function takes the current state and returns the updated state.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge is a static transition between two nodes.
type Edge struct {
	From string
	To   string
}

// Condition picks the next node name from the current state.
type Condition[S any] func(ctx context.Context, state S) string
