package store

import (
	"context"
	"time"
)

// Checkpoint is a saved workflow state snapshot, keyed by the conversation
// thread it belongs to.
type Checkpoint struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	NodeName  string         `json:"node_name"`
	State     any            `json:"state"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
}

// CheckpointStore persists workflow checkpoints. Implementations must be
// safe for concurrent use across different thread IDs.
type CheckpointStore interface {
	// Save stores a checkpoint.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID.
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// List returns all checkpoints for a thread, oldest first.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// LatestByThread returns the highest-version checkpoint for a thread,
	// or nil when the thread has none.
	LatestByThread(ctx context.Context, threadID string) (*Checkpoint, error)

	// Delete removes a checkpoint.
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints for a thread.
	Clear(ctx context.Context, threadID string) error
}

// Entry is a single key/value pair returned by MemoryStore.Search.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// MemoryStore is the namespaced key-value contract for long-term memory.
// Namespaces are caller-composed strings such as "student:123:gaps".
// A missing key is (nil, false, nil), not an error.
type MemoryStore interface {
	Put(ctx context.Context, namespace, key string, value any) error
	Get(ctx context.Context, namespace, key string) (any, bool, error)
	List(ctx context.Context, namespace string) ([]string, error)
	Search(ctx context.Context, namespace, query string, limit int) ([]Entry, error)
	Delete(ctx context.Context, namespace, key string) error
}
