// Package history turns a user's stored turns into a protocol-valid context
// window and enforces the per-user retention cap.
package history

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/logging"
)

// Options configure the Assembler and Trimmer.
type Options struct {
	Logger logging.Logger
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return opts
}

// Assembler builds context windows from a TurnStore.
type Assembler struct {
	store  core.TurnStore
	logger logging.Logger
}

// NewAssembler creates an Assembler reading from store.
func NewAssembler(store core.TurnStore, optFns ...func(o *Options)) *Assembler {
	opts := defaultOptions(optFns...)
	return &Assembler{store: store, logger: opts.Logger}
}

// Assemble returns the context window for userID: the most recent windowSize
// turns in chronological order, cut to a safe starting point, with broken
// call/response pairs removed. A non-empty newMessage is appended as the
// final user block. windowSize <= 0 loads the whole history.
func (a *Assembler) Assemble(ctx context.Context, userID string, windowSize int, newMessage string) ([]core.Content, error) {
	turns, err := a.store.ListRecent(ctx, userID, windowSize)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}
	slices.Reverse(turns)

	blocks := make([]core.Content, 0, len(turns)+1)
	for _, t := range turns {
		block, ok := ToContent(t)
		if !ok {
			a.logger.Warn("history.turn.skipped", "user_id", userID, "turn_id", t.ID, "role", string(t.Role))
			continue
		}
		blocks = append(blocks, block)
	}

	loaded := len(blocks)
	blocks = RepairPairs(TrimLeading(blocks))

	if dropped := loaded - len(blocks); dropped > 0 {
		a.logger.Debug("history.window.trimmed", "user_id", userID, "dropped", dropped)
	}

	if newMessage != "" {
		blocks = append(blocks, core.NewTextContent(core.ProtocolRoleUser, newMessage))
	}

	return blocks, nil
}

// ToContent maps a stored turn onto a content block. User turns become user
// text; model and function turns are classified and sent with the model
// role. ok is false for unknown roles.
func ToContent(t core.ConversationTurn) (core.Content, bool) {
	var role string
	switch t.Role {
	case core.RoleUser:
		role = core.ProtocolRoleUser
	case core.RoleModel, core.RoleFunction:
		role = core.ProtocolRoleModel
	default:
		return core.Content{}, false
	}
	return core.Content{Role: role, Parts: []core.Part{t.Content().Part()}}, true
}

// TrimLeading drops blocks until the first safe restart point: a user block
// or a model block that leads with plain text. The result may be empty.
func TrimLeading(blocks []core.Content) []core.Content {
	for i, b := range blocks {
		if b.Role == core.ProtocolRoleUser || (b.Role == core.ProtocolRoleModel && b.IsText()) {
			return blocks[i:]
		}
	}
	return blocks[:0]
}

// RepairPairs drops function calls that are not immediately followed by a
// function response and responses that do not immediately follow a call.
func RepairPairs(blocks []core.Content) []core.Content {
	out := make([]core.Content, 0, len(blocks))
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		switch {
		case b.IsFunctionCall():
			if i+1 < len(blocks) && blocks[i+1].IsFunctionResponse() {
				out = append(out, b, blocks[i+1])
				i++
			}
		case b.IsFunctionResponse():
			// orphan
		default:
			out = append(out, b)
		}
	}
	return out
}
