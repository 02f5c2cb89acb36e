package core

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is returned once an IterationBudget is spent.
var ErrBudgetExceeded = errors.New("tool-call budget exceeded")

// IterationBudget enforces a maximum number of model calls per run. It is
// owned by a single run and not safe for concurrent use.
type IterationBudget struct {
	max   int
	count int
}

// NewIterationBudget creates a budget allowing max calls. A budget is always
// finite: max < 1 allows a single call.
func NewIterationBudget(max int) *IterationBudget {
	if max < 1 {
		max = 1
	}
	return &IterationBudget{max: max}
}

// Spend consumes one call and returns an error wrapping ErrBudgetExceeded
// if the limit is passed.
func (b *IterationBudget) Spend() error {
	b.count++
	if b.count > b.max {
		return fmt.Errorf("%w: %d model calls", ErrBudgetExceeded, b.max)
	}

	return nil
}

// Count returns the number of calls spent so far, including a rejected one.
func (b *IterationBudget) Count() int { return b.count }

// Remaining returns how many calls are left before hitting the limit.
func (b *IterationBudget) Remaining() int {
	if r := b.max - b.count; r > 0 {
		return r
	}

	return 0
}
