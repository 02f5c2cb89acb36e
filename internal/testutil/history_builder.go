package testutil

import (
	"context"
	"time"

	"github.com/hupe1980/turnmesh/core"
)

// HistoryBuilder provides a fluent helper for constructing stored turns in
// tests. Each added turn is stamped one millisecond after the previous one.
//
// Example:
//
//	turns := NewHistoryBuilder("u1").User("hi").Call("get_weather", args).Response("get_weather", "sunny").Model("It is sunny").Build()
type HistoryBuilder struct {
	userID string
	clock  time.Time
	turns  []core.ConversationTurn
	err    error
}

// NewHistoryBuilder creates a builder for userID starting at a fixed instant.
func NewHistoryBuilder(userID string) *HistoryBuilder {
	return &HistoryBuilder{
		userID: userID,
		clock:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// At overrides the timestamp of the next turn (chainable).
func (b *HistoryBuilder) At(ts time.Time) *HistoryBuilder { b.clock = ts; return b }

// Raw appends a turn with an arbitrary role and message (chainable).
func (b *HistoryBuilder) Raw(role core.Role, message string) *HistoryBuilder {
	b.turns = append(b.turns, core.ConversationTurn{
		UserID:    b.userID,
		Role:      role,
		Message:   message,
		CreatedAt: b.clock,
	})
	b.clock = b.clock.Add(time.Millisecond)
	return b
}

// User appends a user text turn (chainable).
func (b *HistoryBuilder) User(text string) *HistoryBuilder { return b.Raw(core.RoleUser, text) }

// Model appends a model text turn (chainable).
func (b *HistoryBuilder) Model(text string) *HistoryBuilder { return b.Raw(core.RoleModel, text) }

// Call appends a persisted function call turn (chainable).
func (b *HistoryBuilder) Call(name string, args map[string]any) *HistoryBuilder {
	msg, err := core.EncodeFunctionCall(name, args)
	if err != nil && b.err == nil {
		b.err = err
	}
	return b.Raw(core.RoleModel, msg)
}

// Response appends a persisted function response turn (chainable).
func (b *HistoryBuilder) Response(name string, response any) *HistoryBuilder {
	msg, err := core.EncodeFunctionResponse(name, response)
	if err != nil && b.err == nil {
		b.err = err
	}
	return b.Raw(core.RoleModel, msg)
}

// Build returns the turns oldest first.
func (b *HistoryBuilder) Build() []core.ConversationTurn {
	out := make([]core.ConversationTurn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Seed appends the built turns to store in order.
func (b *HistoryBuilder) Seed(ctx context.Context, store core.TurnStore) error {
	if b.err != nil {
		return b.err
	}
	for _, t := range b.turns {
		if _, err := store.Append(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
