package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lucaproject/luca-core/store"
)

// CheckpointStore is an in-process, non-durable checkpoint store. It is
// the fallback when no external backend is configured or reachable.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
	byThread    map[string][]string
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates an empty in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
		byThread:    make(map[string][]string),
	}
}

// Save stores a checkpoint.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ID == "" {
		return fmt.Errorf("checkpoint must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.checkpoints[checkpoint.ID]; !exists && checkpoint.ThreadID != "" {
		s.byThread[checkpoint.ThreadID] = append(s.byThread[checkpoint.ThreadID], checkpoint.ID)
	}
	cp := *checkpoint
	s.checkpoints[checkpoint.ID] = &cp
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *CheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
	}
	out := *cp
	return &out, nil
}

// List returns all checkpoints for a thread, oldest version first.
func (s *CheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byThread[threadID]
	out := make([]*store.Checkpoint, 0, len(ids))
	for _, id := range ids {
		if cp, ok := s.checkpoints[id]; ok {
			c := *cp
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// LatestByThread returns the highest-version checkpoint, or nil.
func (s *CheckpointStore) LatestByThread(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	checkpoints, err := s.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(checkpoints) == 0 {
		return nil, nil
	}
	return checkpoints[len(checkpoints)-1], nil
}

// Delete removes a checkpoint.
func (s *CheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil
	}
	delete(s.checkpoints, checkpointID)

	ids := s.byThread[cp.ThreadID]
	for i, id := range ids {
		if id == checkpointID {
			s.byThread[cp.ThreadID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *CheckpointStore) Clear(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byThread[threadID] {
		delete(s.checkpoints, id)
	}
	delete(s.byThread, threadID)
	return nil
}

// KVStore is an in-process, non-durable namespaced key-value store.
type KVStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]any
}

var _ store.MemoryStore = (*KVStore)(nil)

// NewKVStore creates an empty in-memory key-value store.
func NewKVStore() *KVStore {
	return &KVStore{
		namespaces: make(map[string]map[string]any),
	}
}

// Put stores a value under (namespace, key).
func (s *KVStore) Put(ctx context.Context, namespace, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]any)
		s.namespaces[namespace] = ns
	}
	ns[key] = value
	return nil
}

// Get retrieves a value. Missing keys return (nil, false, nil).
func (s *KVStore) Get(ctx context.Context, namespace, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, false, nil
	}
	v, ok := ns[key]
	return v, ok, nil
}

// List returns all keys in a namespace, sorted.
func (s *KVStore) List(ctx context.Context, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.namespaces[namespace]
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Search returns entries whose key or JSON-encoded value contains the
// query, case-insensitively, up to limit (0 = unlimited).
func (s *KVStore) Search(ctx context.Context, namespace, query string, limit int) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	ns := s.namespaces[namespace]

	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var entries []store.Entry
	for _, k := range keys {
		v := ns[k]
		if matches(k, v, needle) {
			entries = append(entries, store.Entry{Key: k, Value: v})
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
	}
	return entries, nil
}

// Delete removes a key from a namespace.
func (s *KVStore) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.namespaces[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func matches(key string, value any, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(key), needle) {
		return true
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), needle)
}
