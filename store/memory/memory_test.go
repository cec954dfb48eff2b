package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca-core/store"
)

func TestCheckpointStoreBasicOperations(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()

	cp := &store.Checkpoint{
		ID:        "cp-1",
		ThreadID:  "session-1",
		NodeName:  "classify_intent",
		State:     map[string]any{"message": "hola"},
		Timestamp: time.Now(),
		Version:   1,
	}

	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "classify_intent", loaded.NodeName)
	assert.Equal(t, "session-1", loaded.ThreadID)

	_, err = s.Load(ctx, "missing")
	assert.Error(t, err)
}

func TestCheckpointStoreListAndLatest(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := s.Save(ctx, &store.Checkpoint{
			ID:       fmt.Sprintf("cp-%d", i),
			ThreadID: "session-1",
			NodeName: "analyze_gaps",
			Version:  i,
		})
		require.NoError(t, err)
	}

	list, err := s.List(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Version)
	assert.Equal(t, 3, list[2].Version)

	latest, err := s.LatestByThread(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 3, latest.Version)

	// Unknown thread: nil, no error.
	latest, err = s.LatestByThread(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestCheckpointStoreDeleteAndClear(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "a", ThreadID: "t", Version: 1}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "b", ThreadID: "t", Version: 2}))

	require.NoError(t, s.Delete(ctx, "a"))
	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Clear(ctx, "t"))
	list, err = s.List(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestKVStore(t *testing.T) {
	t.Parallel()

	s := NewKVStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "student:1:gaps", "gap-1", map[string]any{
		"title": "confusión con LEFT JOIN",
	}))
	require.NoError(t, s.Put(ctx, "student:1:gaps", "gap-2", map[string]any{
		"title": "producto cartesiano",
	}))

	v, ok, err := s.Get(ctx, "student:1:gaps", "gap-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, fmt.Sprint(v), "LEFT JOIN")

	_, ok, err = s.Get(ctx, "student:1:gaps", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(ctx, "student:2:gaps", "gap-1")
	require.NoError(t, err)
	assert.False(t, ok, "namespaces must be isolated")

	keys, err := s.List(ctx, "student:1:gaps")
	require.NoError(t, err)
	assert.Equal(t, []string{"gap-1", "gap-2"}, keys)

	hits, err := s.Search(ctx, "student:1:gaps", "join", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "gap-1", hits[0].Key)

	hits, err = s.Search(ctx, "student:1:gaps", "", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "limit must cap results")

	require.NoError(t, s.Delete(ctx, "student:1:gaps", "gap-1"))
	_, ok, _ = s.Get(ctx, "student:1:gaps", "gap-1")
	assert.False(t, ok)
}
