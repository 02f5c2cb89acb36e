package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a stored conversation turn.
type Role string

const (
	// RoleUser marks a message typed by the end user.
	RoleUser Role = "user"
	// RoleModel marks model output: text, function calls and function results.
	RoleModel Role = "model"
	// RoleFunction marks a function-authored turn. Older histories use it
	// for tool results; it is folded into the model role on read.
	RoleFunction Role = "function"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModel, RoleFunction:
		return true
	default:
		return false
	}
}

// ConversationTurn is one persisted unit of conversation. Message holds the
// raw stored text: a plain string, or one of the JSON encodings produced by
// EncodeFunctionCall / EncodeFunctionResponse.
type ConversationTurn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn creates an unsaved turn stamped with the current UTC time.
func NewTurn(userID string, role Role, message string) ConversationTurn {
	return ConversationTurn{
		UserID:    userID,
		Role:      role,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Content classifies the stored message. User turns are always text.
func (t ConversationTurn) Content() TurnContent {
	if t.Role == RoleUser {
		return TextContent{Text: t.Message}
	}
	return Classify(t.Message)
}

// TurnStore persists the append-only per-user turn log.
//
// Contract:
//   - Append assigns and returns an opaque id; written turns are immutable
//   - ListRecent returns at most limit turns newest first (limit <= 0: all)
//   - PruneOlderThan deletes the oldest turns so at most keep remain and
//     reports how many were removed
//
// Ordering is append order per user. CreatedAt is informational and never
// reorders turns.
type TurnStore interface {
	Append(ctx context.Context, turn ConversationTurn) (string, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]ConversationTurn, error)
	PruneOlderThan(ctx context.Context, userID string, keep int) (int, error)
}

// NewID generates a new unique identifier for turns.
func NewID() string { return uuid.NewString() }
