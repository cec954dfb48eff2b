package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca-core/store"
)

func newTestStore(t *testing.T) *CheckpointStore {
	t.Helper()

	s, err := NewCheckpointStore(Options{
		Path: filepath.Join(t.TempDir(), "checkpoints.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCheckpointStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp := &store.Checkpoint{
		ID:       "cp-1",
		ThreadID: "session-1",
		NodeName: "evaluate_gaps",
		State: map[string]any{
			"feedback_iterations": 1,
		},
		Metadata:  map[string]any{"source": "step"},
		Timestamp: time.Now().UTC(),
		Version:   1,
	}

	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "evaluate_gaps", loaded.NodeName)
	assert.Equal(t, "session-1", loaded.ThreadID)

	state, ok := loaded.State.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, state["feedback_iterations"])
	assert.Equal(t, "step", loaded.Metadata["source"])
}

func TestCheckpointStoreListOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []int{2, 1, 3} {
		require.NoError(t, s.Save(ctx, &store.Checkpoint{
			ID:        "cp-" + string(rune('0'+v)),
			ThreadID:  "session-1",
			NodeName:  "analyze_gaps",
			State:     "x",
			Timestamp: time.Now().UTC(),
			Version:   v,
		}))
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
}

func TestCheckpointStoreMissingAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "nope")
	assert.ErrorContains(t, err, "checkpoint not found")

	latest, err := s.LatestByThread(ctx, "empty-thread")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.Save(ctx, &store.Checkpoint{
		ID: "cp-1", ThreadID: "t", NodeName: "n", State: "s",
		Timestamp: time.Now().UTC(), Version: 1,
	}))
	require.NoError(t, s.Delete(ctx, "cp-1"))
	_, err = s.Load(ctx, "cp-1")
	assert.Error(t, err)

	require.NoError(t, s.Save(ctx, &store.Checkpoint{
		ID: "cp-2", ThreadID: "t", NodeName: "n", State: "s",
		Timestamp: time.Now().UTC(), Version: 2,
	}))
	require.NoError(t, s.Clear(ctx, "t"))
	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, list)
}
