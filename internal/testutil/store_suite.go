package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/turnmesh/core"
)

// RunTurnStoreSuite checks a TurnStore implementation against the shared
// contract. newStore must return an empty store.
func RunTurnStoreSuite(t *testing.T, newStore func(t *testing.T) core.TurnStore) {
	t.Helper()

	t.Run("AppendAssignsIDs", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		id1, err := store.Append(ctx, core.NewTurn("u1", core.RoleUser, "hello"))
		require.NoError(t, err)
		id2, err := store.Append(ctx, core.NewTurn("u1", core.RoleModel, "hi"))
		require.NoError(t, err)

		assert.NotEmpty(t, id1)
		assert.NotEqual(t, id1, id2)

		turns, err := store.ListRecent(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, id2, turns[0].ID)
		assert.Equal(t, id1, turns[1].ID)
	})

	t.Run("AppendRequiresUser", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Append(context.Background(), core.NewTurn("", core.RoleUser, "x"))
		assert.Error(t, err)
	})

	t.Run("ListRecentNewestFirstWithLimit", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		b := NewHistoryBuilder("u1")
		for i := range 5 {
			b.User(fmt.Sprintf("m%d", i))
		}
		require.NoError(t, b.Seed(ctx, store))

		turns, err := store.ListRecent(ctx, "u1", 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"m4", "m3", "m2"}, messages(turns))

		all, err := store.ListRecent(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("TiesBrokenByInsertionOrder", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

		for _, msg := range []string{"first", "second", "third"} {
			turn := core.NewTurn("u1", core.RoleModel, msg)
			turn.CreatedAt = ts
			_, err := store.Append(ctx, turn)
			require.NoError(t, err)
		}

		turns, err := store.ListRecent(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"third", "second", "first"}, messages(turns))
	})

	t.Run("OrderIgnoresClock", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		call, err := core.EncodeFunctionCall("get_weather", map[string]any{"latitude": 1.0})
		require.NoError(t, err)
		resp, err := core.EncodeFunctionResponse("get_weather", "Sunny")
		require.NoError(t, err)

		for i, msg := range []string{call, resp} {
			turn := core.NewTurn("u1", core.RoleModel, msg)
			turn.CreatedAt = ts.Add(-time.Duration(i) * time.Hour)
			_, err := store.Append(ctx, turn)
			require.NoError(t, err)
		}

		turns, err := store.ListRecent(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{resp, call}, messages(turns))

		removed, err := store.PruneOlderThan(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		turns, err = store.ListRecent(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{resp}, messages(turns))
	})

	t.Run("UsersAreIsolated", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, NewHistoryBuilder("alice").User("a1").User("a2").Seed(ctx, store))
		require.NoError(t, NewHistoryBuilder("bob").User("b1").Seed(ctx, store))

		turns, err := store.ListRecent(ctx, "bob", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b1"}, messages(turns))

		removed, err := store.PruneOlderThan(ctx, "alice", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		turns, err = store.ListRecent(ctx, "bob", 0)
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	})

	t.Run("PruneKeepsNewest", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		b := NewHistoryBuilder("u1")
		for i := range 11 {
			b.User(fmt.Sprintf("m%d", i))
		}
		require.NoError(t, b.Seed(ctx, store))

		removed, err := store.PruneOlderThan(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		turns, err := store.ListRecent(ctx, "u1", 0)
		require.NoError(t, err)
		require.Len(t, turns, 10)
		assert.Equal(t, "m10", turns[0].Message)
		assert.Equal(t, "m1", turns[9].Message)

		removed, err = store.PruneOlderThan(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("RoundTripsFields", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		msg, err := core.EncodeFunctionCall("get_weather", map[string]any{"latitude": 1.5})
		require.NoError(t, err)

		turn := core.NewTurn("u1", core.RoleModel, msg)
		turn.CreatedAt = time.Date(2025, 5, 6, 7, 8, 9, 1000, time.UTC)
		_, err = store.Append(ctx, turn)
		require.NoError(t, err)

		turns, err := store.ListRecent(ctx, "u1", 1)
		require.NoError(t, err)
		require.Len(t, turns, 1)
		got := turns[0]
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, core.RoleModel, got.Role)
		assert.Equal(t, msg, got.Message)
		assert.True(t, turn.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, core.FunctionCallContent{Name: "get_weather", Args: map[string]any{"latitude": 1.5}}, got.Content())
	})
}

func messages(turns []core.ConversationTurn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Message
	}
	return out
}
