package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "turns.db"), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	testutil.RunTurnStoreSuite(t, func(t *testing.T) core.TurnStore { return openTestStore(t) })
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.db")
	ctx := context.Background()

	store, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, testutil.NewHistoryBuilder("u1").User("hello").Model("hi there").Seed(ctx, store))
	require.NoError(t, store.Close())

	store, err = Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer store.Close()

	turns, err := store.ListRecent(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hi there", turns[0].Message)
	assert.Equal(t, core.RoleUser, turns[1].Role)
}
