// Package graph implements the state machine engine both LUCA workflows
// run on: named nodes, static and conditional edges, a fixed entry
// point and the END sentinel.
//
// Execution is strictly sequential. Exactly one node is active at a
// time and the successor is decided by the current node's conditional
// edge (if declared) or its single static edge. Cycles are legal —
// the gap-analysis feedback loop is one — but every invocation is
// bounded by a step limit, and the workflows themselves carry an
// iteration counter checked by a pure decision function.
//
// A Config may attach a store.CheckpointStore; the engine then writes a
// thread-keyed snapshot after every node. Checkpoint failures are
// logged and swallowed: persistence availability never changes control
// flow.
package graph
