package tags_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/surveylens/mediastore/pkg/db"
	"github.com/surveylens/mediastore/pkg/tags"
)

func newStore(t *testing.T) *tags.Store {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{
		Path: filepath.Join(t.TempDir(), "tags.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	store, err := tags.NewStore(conn)
	require.NoError(t, err)
	return store
}

func TestStore_SetGet(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	const addr = "uploads/acme/surveyA/u1_photo.jpg"

	t.Run("missing address reads as empty set", func(t *testing.T) {
		got, err := store.Get(ctx, "never-tagged")
		require.NoError(t, err)
		require.Empty(t, got)
		require.NotNil(t, got)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, addr, []string{"portrait", "dark"}))
		got, err := store.Get(ctx, addr)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"portrait", "dark"}, got)
	})

	t.Run("update overwrites wholesale", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, addr, []string{"landscape"}))
		got, err := store.Get(ctx, addr)
		require.NoError(t, err)
		require.Equal(t, []string{"landscape"}, got)
	})

	t.Run("nil set stored as empty", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, addr, nil))
		got, err := store.Get(ctx, addr)
		require.NoError(t, err)
		require.Empty(t, got)
		require.NotNil(t, got)
	})
}

func TestRandom(t *testing.T) {
	t.Parallel()

	for n := 0; n < 50; n++ {
		picked := tags.Random(1, 4)
		require.NotEmpty(t, picked)
		require.LessOrEqual(t, len(picked), 4)

		seen := make(map[string]struct{}, len(picked))
		for _, tag := range picked {
			_, dup := seen[tag]
			require.False(t, dup, "tags must be distinct")
			seen[tag] = struct{}{}
		}
	}

	// Degenerate bounds are clamped rather than rejected.
	require.NotEmpty(t, tags.Random(0, 0))
	require.NotEmpty(t, tags.Random(5, 2))
}
