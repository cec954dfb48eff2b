package memorystore

import (
	"context"
	"sync"

	"github.com/lucaproject/luca-core/log"
	"github.com/lucaproject/luca-core/store"
	"github.com/lucaproject/luca-core/store/memory"
)

// NewResilient returns a manager that degrades to a fresh in-memory
// backend the first time the primary store errors. Workflow control
// flow is unchanged by the switch; only durability is lost.
func NewResilient(primary store.MemoryStore) *Manager {
	return NewManager(&resilientStore{
		primary:  primary,
		fallback: memory.NewKVStore(),
		logger:   log.GetDefaultLogger(),
	})
}

type resilientStore struct {
	primary  store.MemoryStore
	fallback store.MemoryStore
	logger   log.Logger

	mu       sync.Mutex
	degraded bool
}

func (r *resilientStore) active() store.MemoryStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded {
		return r.fallback
	}
	return r.primary
}

func (r *resilientStore) degrade(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.degraded {
		r.degraded = true
		r.logger.Warn("memorystore: primary store failed, degrading to in-memory: %v", err)
	}
}

func (r *resilientStore) Put(ctx context.Context, namespace, key string, value any) error {
	if err := r.active().Put(ctx, namespace, key, value); err != nil {
		r.degrade(err)
		return r.fallback.Put(ctx, namespace, key, value)
	}
	return nil
}

func (r *resilientStore) Get(ctx context.Context, namespace, key string) (any, bool, error) {
	v, ok, err := r.active().Get(ctx, namespace, key)
	if err != nil {
		r.degrade(err)
		return r.fallback.Get(ctx, namespace, key)
	}
	return v, ok, nil
}

func (r *resilientStore) List(ctx context.Context, namespace string) ([]string, error) {
	keys, err := r.active().List(ctx, namespace)
	if err != nil {
		r.degrade(err)
		return r.fallback.List(ctx, namespace)
	}
	return keys, nil
}

func (r *resilientStore) Search(ctx context.Context, namespace, query string, limit int) ([]store.Entry, error) {
	entries, err := r.active().Search(ctx, namespace, query, limit)
	if err != nil {
		r.degrade(err)
		return r.fallback.Search(ctx, namespace, query, limit)
	}
	return entries, nil
}

func (r *resilientStore) Delete(ctx context.Context, namespace, key string) error {
	if err := r.active().Delete(ctx, namespace, key); err != nil {
		r.degrade(err)
		return r.fallback.Delete(ctx, namespace, key)
	}
	return nil
}
