package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/turnmesh/core"
)

// InMemoryStore is a volatile TurnStore implementation storing turns in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Returned slices are copies.
type InMemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]core.ConversationTurn
}

// NewInMemoryStore constructs an empty in‑memory turn store. Turns are kept
// per user in append order.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]core.ConversationTurn)}
}

// Append stores the turn under its user, assigning a fresh id.
func (s *InMemoryStore) Append(ctx context.Context, turn core.ConversationTurn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if turn.UserID == "" {
		return "", fmt.Errorf("append turn: user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	turn.ID = core.NewID()
	s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)

	return turn.ID, nil
}

// ListRecent returns up to limit turns newest first.
func (s *InMemoryStore) ListRecent(ctx context.Context, userID string, limit int) ([]core.ConversationTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.turns[userID]
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]core.ConversationTurn, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}

	return out, nil
}

// PruneOlderThan drops the oldest turns so at most keep remain.
func (s *InMemoryStore) PruneOlderThan(ctx context.Context, userID string, keep int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.turns[userID]
	removed := len(entries) - keep
	if removed <= 0 {
		return 0, nil
	}

	kept := make([]core.ConversationTurn, keep)
	copy(kept, entries[removed:])
	if keep == 0 {
		delete(s.turns, userID)
	} else {
		s.turns[userID] = kept
	}

	return removed, nil
}

// Count returns the number of stored turns for userID.
func (s *InMemoryStore) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[userID])
}
