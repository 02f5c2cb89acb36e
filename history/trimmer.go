package history

import (
	"context"
	"fmt"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/logging"
)

// Trimmer enforces the per-user retention cap.
type Trimmer struct {
	store  core.TurnStore
	logger logging.Logger
}

// NewTrimmer creates a Trimmer pruning store.
func NewTrimmer(store core.TurnStore, optFns ...func(o *Options)) *Trimmer {
	opts := defaultOptions(optFns...)
	return &Trimmer{store: store, logger: opts.Logger}
}

// Enforce deletes the oldest turns of userID so that at most maxTurns remain
// and returns how many were removed. maxTurns <= 0 disables trimming.
func (t *Trimmer) Enforce(ctx context.Context, userID string, maxTurns int) (int, error) {
	if maxTurns <= 0 {
		return 0, nil
	}

	removed, err := t.store.PruneOlderThan(ctx, userID, maxTurns)
	if err != nil {
		return 0, fmt.Errorf("trim history for %s: %w", userID, err)
	}

	if removed > 0 {
		t.logger.Info("history.trim", "user_id", userID, "removed", removed, "kept", maxTurns)
	}

	return removed, nil
}
