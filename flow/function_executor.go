package flow

import (
	"context"
	"time"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/logging"
	"github.com/hupe1980/turnmesh/tool"
)

// functionExecutor runs backend tool calls under a per-call timeout with the
// request context injected into the arguments.
type functionExecutor struct {
	timeout time.Duration
	logger  logging.Logger
}

func newFunctionExecutor(timeout time.Duration, logger logging.Logger) *functionExecutor {
	return &functionExecutor{timeout: timeout, logger: logger}
}

// Execute never fails: tool errors are reported through ToolInvocation.Err
// and a structured payload in ToolInvocation.Result.
func (e *functionExecutor) Execute(inv *Invocation, call core.FunctionCall, desc tool.Descriptor) ToolInvocation {
	ctx := inv.Context
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	toolCtx := core.NewToolContext(ctx, inv.UserID, call.Name, inv.Env, e.logger)

	start := time.Now()
	result, err := tool.Execute(toolCtx, desc.Tool, toolCtx.WithArgs(call.Args))
	dur := time.Since(start)

	e.logger.Info(
		"flow.tool.executed",
		"user_id", inv.UserID,
		"tool", call.Name,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)
	if rec, ok := e.logger.(logging.CallRecorder); ok {
		rec.LogToolCall(call.Name, dur, err == nil, err)
	}

	return ToolInvocation{
		Name:     call.Name,
		Args:     call.Args,
		Location: desc.Location,
		Result:   result,
		Err:      err,
		Duration: dur,
	}
}
