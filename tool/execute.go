package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/turnmesh/core"
)

type callResult struct {
	value any
	err   error
}

// Execute is the dispatch boundary for backend tools. It runs t with the
// given args, recovers panics and stops waiting once the ToolContext is done.
//
// On success the tool's value is returned unchanged. On failure the returned
// value is the structured {"error", "details"} payload meant for the model and
// err is the corresponding *ToolError.
func Execute(toolCtx *core.ToolContext, t Tool, args map[string]any) (any, error) {
	if t == nil {
		toolErr := UnknownToolError(toolCtx.FunctionName())
		return toolErr.Payload(), toolErr
	}

	ctx := toolCtx.Context()
	if err := ctx.Err(); err != nil {
		toolErr := contextToolError(t.Name(), err)
		return toolErr.Payload(), toolErr
	}

	// Buffered so an abandoned tool can still finish without blocking.
	done := make(chan callResult, 1)
	start := time.Now()

	go func() {
		var res callResult
		defer func() {
			if r := recover(); r != nil {
				toolCtx.LogError("tool.panic", "tool", t.Name(), "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
				res = callResult{err: &ToolError{
					Tool:    t.Name(),
					Message: fmt.Sprintf("tool panicked: %v", r),
					Code:    CodePanic,
				}}
			}
			done <- res
		}()
		res.value, res.err = t.Call(toolCtx, args)
	}()

	select {
	case res := <-done:
		if res.err != nil {
			toolErr := asToolError(t.Name(), res.err)
			toolCtx.LogWarn("tool.failed", "tool", t.Name(), "code", toolErr.Code, "duration_ms", time.Since(start).Milliseconds())
			return toolErr.Payload(), toolErr
		}
		return res.value, nil
	case <-ctx.Done():
		toolErr := contextToolError(t.Name(), ctx.Err())
		toolCtx.LogWarn("tool.abandoned", "tool", t.Name(), "code", toolErr.Code, "duration_ms", time.Since(start).Milliseconds())
		return toolErr.Payload(), toolErr
	}
}

// asToolError normalizes any tool failure into a *ToolError.
func asToolError(name string, err error) *ToolError {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return contextToolError(name, err)
	}
	return &ToolError{Tool: name, Message: err.Error(), Code: CodeExecution}
}

func contextToolError(name string, err error) *ToolError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{Tool: name, Message: "tool call timed out", Code: CodeTimeout}
	}
	return &ToolError{Tool: name, Message: fmt.Sprintf("tool call cancelled: %v", err), Code: CodeExecution}
}
