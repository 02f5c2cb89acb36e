package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/history"
	"github.com/hupe1980/turnmesh/logging"
	"github.com/hupe1980/turnmesh/model"
	"github.com/hupe1980/turnmesh/tool"
)

// Orchestrator runs the conversation loop. It is safe for concurrent use;
// runs for the same user are serialized.
type Orchestrator struct {
	store      core.TurnStore
	model      model.Model
	registry   *tool.Registry
	trimmer    *history.Trimmer
	processors []RequestProcessor
	executor   *functionExecutor
	locks      *userLocks
	opts       Options
	logger     logging.Logger
}

// New creates an Orchestrator. registry may be nil for a tool-less setup.
func New(store core.TurnStore, m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := defaultOptions(optFns...)
	if registry == nil {
		registry = tool.NewRegistryBuilder().Build()
	}

	historyLogger := func(o *history.Options) { o.Logger = opts.Logger }

	processors := []RequestProcessor{
		NewInstructionsProcessor(opts.Instructions, opts.Logger),
		NewContentsProcessor(history.NewAssembler(store, historyLogger), opts.WindowSize),
		NewToolsProcessor(registry),
	}
	processors = append(processors, opts.RequestProcessors...)

	return &Orchestrator{
		store:      store,
		model:      m,
		registry:   registry,
		trimmer:    history.NewTrimmer(store, historyLogger),
		processors: processors,
		executor:   newFunctionExecutor(opts.ToolTimeout, opts.Logger),
		locks:      newUserLocks(),
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Registry returns the tool registry used by the orchestrator.
func (o *Orchestrator) Registry() *tool.Registry { return o.registry }

// Run handles one user message. env carries request-scoped values (for
// example the current map data) that are injected into backend tool
// arguments and available to the instructions template.
//
// A non-nil error means the run could not complete: invalid input, a
// storage failure or cancellation. Model failures, budget exhaustion and
// empty model output are reported through Result.Kind instead.
func (o *Orchestrator) Run(ctx context.Context, userID, prompt string, env map[string]any) (res Result, err error) {
	if userID == "" {
		return Result{}, ErrEmptyUser
	}
	if strings.TrimSpace(prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	unlock, err := o.locks.acquire(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	start := time.Now()
	defer func() {
		o.enforceRetention(ctx, userID, &err)
		o.logger.Info(
			"flow.run.completed",
			"user_id", userID,
			"kind", string(res.Kind),
			"iterations", res.Iterations,
			"tool_calls", len(res.ToolCalls),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
		)
	}()

	inv := &Invocation{Context: ctx, UserID: userID, Env: env}
	if err := o.persist(inv, core.RoleUser, prompt); err != nil {
		return res, err
	}

	budget := core.NewIterationBudget(o.opts.MaxIterations)

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := budget.Spend(); err != nil {
			o.logger.Warn("flow.budget.exceeded", "user_id", userID, "max_iterations", o.opts.MaxIterations)
			return o.finishWithText(inv, res, KindBudgetExceeded, o.opts.BudgetExceededMessage)
		}
		inv.Iteration = budget.Count()
		res.Iterations = inv.Iteration

		req := model.Request{}
		for _, p := range o.processors {
			if err := p.ProcessRequest(inv, &req); err != nil {
				return res, fmt.Errorf("request processor %s failed: %w", p.Name(), err)
			}
		}

		callStart := time.Now()
		resp, err := o.model.Generate(ctx, req)
		callDur := time.Since(callStart)
		o.logger.Info(
			"flow.model.call",
			"user_id", userID,
			"iteration", inv.Iteration,
			"window", len(req.Contents),
			"duration_ms", callDur.Milliseconds(),
			"error", err != nil,
		)
		if rec, ok := o.logger.(logging.CallRecorder); ok {
			tokens := 0
			if err == nil && resp.Usage != nil {
				tokens = resp.Usage.TotalTokens
			}
			rec.LogLLMCall(o.model.Info().Name, tokens, callDur, err == nil, err)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			o.logger.Error("flow.model.failed", "user_id", userID, "error", err.Error())
			res.Kind = KindModelFailure
			res.Text = o.opts.FailureMessage
			res.Cause = err
			return res, nil
		}
		addUsage(&res.Usage, resp.Usage)

		switch part := resp.FirstPart().(type) {
		case core.FunctionCallPart:
			done, err := o.handleFunctionCall(inv, &res, part.FunctionCall)
			if err != nil || done {
				return res, err
			}
		case core.TextPart:
			if part.Text == "" {
				return o.finishWithText(inv, res, KindFallback, o.opts.FallbackMessage)
			}
			return o.finishWithText(inv, res, KindText, part.Text)
		default:
			o.logger.Warn("flow.model.empty", "user_id", userID, "iteration", inv.Iteration)
			return o.finishWithText(inv, res, KindFallback, o.opts.FallbackMessage)
		}
	}
}

// handleFunctionCall persists the call and acts on it. done reports whether
// the run ends here.
func (o *Orchestrator) handleFunctionCall(inv *Invocation, res *Result, call core.FunctionCall) (done bool, err error) {
	if call.Args == nil {
		call.Args = map[string]any{}
	}

	msg, err := core.EncodeFunctionCall(call.Name, call.Args)
	if err != nil {
		return true, err
	}
	if err := o.persist(inv, core.RoleModel, msg); err != nil {
		return true, err
	}

	desc, ok := o.registry.Resolve(call.Name)
	switch {
	case !ok:
		toolErr := tool.UnknownToolError(call.Name)
		o.logger.Warn("flow.tool.unknown", "user_id", inv.UserID, "tool", call.Name)
		res.ToolCalls = append(res.ToolCalls, ToolInvocation{Name: call.Name, Args: call.Args, Result: toolErr.Payload(), Err: toolErr})
		return false, o.persistResponse(inv, call.Name, toolErr.Payload())

	case desc.IsFrontend():
		o.logger.Info("flow.tool.forwarded", "user_id", inv.UserID, "tool", call.Name)
		if err := o.persistResponse(inv, call.Name, ForwardedResponse); err != nil {
			return true, err
		}
		res.Kind = KindFrontendCall
		res.FunctionCall = &core.FunctionCall{Name: call.Name, Args: call.Args}
		res.ToolCalls = append(res.ToolCalls, ToolInvocation{Name: call.Name, Args: call.Args, Location: desc.Location})
		return true, nil

	default:
		ti := o.executor.Execute(inv, call, desc)
		res.ToolCalls = append(res.ToolCalls, ti)
		return false, o.persistResponse(inv, call.Name, tool.Summarize(ti.Result))
	}
}

func (o *Orchestrator) persistResponse(inv *Invocation, name string, response any) error {
	msg, err := core.EncodeFunctionResponse(name, response)
	if err != nil {
		return err
	}
	return o.persist(inv, core.RoleModel, msg)
}

// finishWithText persists a closing model turn and returns the final result.
func (o *Orchestrator) finishWithText(inv *Invocation, res Result, kind ResultKind, text string) (Result, error) {
	res.Kind = kind
	res.Text = text
	if err := o.persist(inv, core.RoleModel, text); err != nil {
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) persist(inv *Invocation, role core.Role, message string) error {
	if _, err := o.store.Append(inv.Context, core.NewTurn(inv.UserID, role, message)); err != nil {
		return fmt.Errorf("persist %s turn: %w", role, err)
	}
	inv.RunTurns++
	return nil
}

// enforceRetention trims the user's history. It runs even when ctx was
// cancelled. A trim failure replaces a nil run error and is logged otherwise.
func (o *Orchestrator) enforceRetention(ctx context.Context, userID string, runErr *error) {
	_, err := o.trimmer.Enforce(context.WithoutCancel(ctx), userID, o.opts.MaxStoredTurns)
	if err == nil {
		return
	}
	if *runErr == nil {
		*runErr = err
		return
	}
	o.logger.Error("history.trim.failed", "user_id", userID, "error", err.Error())
}

func addUsage(total *model.TokenUsage, u *model.TokenUsage) {
	if u == nil {
		return
	}
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}
