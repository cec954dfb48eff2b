package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lucaproject/luca-core/store"
)

// Options configures the Redis connection shared by both stores.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "luca:"
	TTL      time.Duration // expiration for checkpoints, default 0 (none)
}

func (o Options) prefix() string {
	if o.Prefix == "" {
		return "luca:"
	}
	return o.Prefix
}

// CheckpointStore implements store.CheckpointStore on Redis.
type CheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a Redis-backed checkpoint store.
func NewCheckpointStore(opts Options) *CheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &CheckpointStore{
		client: client,
		prefix: opts.prefix(),
		ttl:    opts.TTL,
	}
}

func (s *CheckpointStore) checkpointKey(id string) string {
	return fmt.Sprintf("%scheckpoint:%s", s.prefix, id)
}

func (s *CheckpointStore) threadKey(id string) string {
	return fmt.Sprintf("%sthread:%s:checkpoints", s.prefix, id)
}

// Save stores a checkpoint and indexes it by thread.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.checkpointKey(checkpoint.ID), data, s.ttl)

	if checkpoint.ThreadID != "" {
		threadKey := s.threadKey(checkpoint.ThreadID)
		pipe.SAdd(ctx, threadKey, checkpoint.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, threadKey, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *CheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(checkpointID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}

	var checkpoint store.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// List returns all live checkpoints for a thread, oldest version first.
func (s *CheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	ids, err := s.client.SMembers(ctx, s.threadKey(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for thread %s: %w", threadID, err)
	}
	if len(ids) == 0 {
		return []*store.Checkpoint{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.checkpointKey(id))
	}

	// MGet returns nil for expired members, which we skip.
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkpoints: %w", err)
	}

	checkpoints := make([]*store.Checkpoint, 0, len(results))
	for _, result := range results {
		strData, ok := result.(string)
		if !ok {
			continue
		}
		var checkpoint store.Checkpoint
		if err := json.Unmarshal([]byte(strData), &checkpoint); err != nil {
			continue
		}
		checkpoints = append(checkpoints, &checkpoint)
	}
	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Version < checkpoints[j].Version
	})
	return checkpoints, nil
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

// Delete removes a checkpoint and its thread index entry.
func (s *CheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	checkpoint, err := s.Load(ctx, checkpointID)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.checkpointKey(checkpointID))
	if checkpoint.ThreadID != "" {
		pipe.SRem(ctx, s.threadKey(checkpoint.ThreadID), checkpointID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *CheckpointStore) Clear(ctx context.Context, threadID string) error {
	ids, err := s.client.SMembers(ctx, s.threadKey(threadID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get checkpoints for clearing: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.checkpointKey(id))
	}
	pipe.Del(ctx, s.threadKey(threadID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}

// KVStore implements store.MemoryStore on Redis. Each namespace maps to
// one hash; values are JSON-encoded.
type KVStore struct {
	client *redis.Client
	prefix string
}

var _ store.MemoryStore = (*KVStore)(nil)

// NewKVStore creates a Redis-backed long-term memory store.
func NewKVStore(opts Options) *KVStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &KVStore{
		client: client,
		prefix: opts.prefix(),
	}
}

func (s *KVStore) namespaceKey(namespace string) string {
	return fmt.Sprintf("%smemory:%s", s.prefix, namespace)
}

// Put stores a JSON-encoded value under (namespace, key).
func (s *KVStore) Put(ctx context.Context, namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := s.client.HSet(ctx, s.namespaceKey(namespace), key, data).Err(); err != nil {
		return fmt.Errorf("failed to put memory record: %w", err)
	}
	return nil
}

// Get retrieves and decodes a value. Missing keys return (nil, false, nil).
func (s *KVStore) Get(ctx context.Context, namespace, key string) (any, bool, error) {
	data, err := s.client.HGet(ctx, s.namespaceKey(namespace), key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get memory record: %w", err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal memory record: %w", err)
	}
	return value, true, nil
}

// List returns all keys in a namespace, sorted.
func (s *KVStore) List(ctx context.Context, namespace string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.namespaceKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list memory keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Search scans a namespace for entries whose key or encoded value
// contains the query, case-insensitively.
func (s *KVStore) Search(ctx context.Context, namespace, query string, limit int) ([]store.Entry, error) {
	all, err := s.client.HGetAll(ctx, s.namespaceKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search memory records: %w", err)
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	needle := strings.ToLower(query)
	var entries []store.Entry
	for _, k := range keys {
		raw := all[k]
		if needle != "" &&
			!strings.Contains(strings.ToLower(k), needle) &&
			!strings.Contains(strings.ToLower(raw), needle) {
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			continue
		}
		entries = append(entries, store.Entry{Key: k, Value: value})
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// Delete removes a key from a namespace.
func (s *KVStore) Delete(ctx context.Context, namespace, key string) error {
	if err := s.client.HDel(ctx, s.namespaceKey(namespace), key).Err(); err != nil {
		return fmt.Errorf("failed to delete memory record: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *KVStore) Close() error {
	return s.client.Close()
}
