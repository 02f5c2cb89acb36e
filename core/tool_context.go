package core

import (
	"context"
	"maps"

	"github.com/hupe1980/turnmesh/logging"
)

// InjectedUserIDKey is the argument key under which the acting user id is
// injected into backend tool arguments.
const InjectedUserIDKey = "user_id"

// ToolContext provides the request-scoped surface a backend tool sees while
// it executes: a deadline-bound context, the acting user, the caller-supplied
// environment (e.g. current map state) and a logger.
type ToolContext struct {
	ctx          context.Context
	userID       string
	functionName string
	env          map[string]any

	*loggerAdapter
}

// NewToolContext constructs a tool context. env is copied.
func NewToolContext(ctx context.Context, userID, functionName string, env map[string]any, logger logging.Logger) *ToolContext {
	return &ToolContext{
		ctx:           ctx,
		userID:        userID,
		functionName:  functionName,
		env:           maps.Clone(env),
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// UserID returns the acting user.
func (tc *ToolContext) UserID() string { return tc.userID }

// FunctionName returns the name the model used to call the tool.
func (tc *ToolContext) FunctionName() string { return tc.functionName }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// Env looks up a caller-supplied environment value.
func (tc *ToolContext) Env(key string) (any, bool) {
	v, ok := tc.env[key]
	return v, ok
}

// Injected returns the fields merged into backend tool arguments: the
// environment plus the user id. The user id wins over a same-named env key.
func (tc *ToolContext) Injected() map[string]any {
	out := make(map[string]any, len(tc.env)+1)
	maps.Copy(out, tc.env)
	out[InjectedUserIDKey] = tc.userID
	return out
}

// WithArgs returns a copy of args with the injected fields applied on top, so
// model-supplied values can never override request-scoped ones.
func (tc *ToolContext) WithArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(tc.env)+1)
	maps.Copy(out, args)
	maps.Copy(out, tc.Injected())
	return out
}
