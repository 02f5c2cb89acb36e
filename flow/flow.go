// Package flow drives the tool-calling conversation loop.
//
// An Orchestrator persists the user's prompt, then repeatedly assembles the
// context window, asks the model for the next step and acts on it: backend
// tool calls are executed and their results fed back, frontend tool calls and
// plain text end the run. Every generated turn is persisted as it happens so
// an interrupted run leaves a history the next request can resume from.
//
// Request building is split into RequestProcessors, run in order before each
// model call, so callers can extend the request without touching the loop.
package flow

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/logging"
	"github.com/hupe1980/turnmesh/model"
	"github.com/hupe1980/turnmesh/tool"
)

var (
	// ErrEmptyPrompt is returned by Run for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrEmptyUser is returned by Run without a user id.
	ErrEmptyUser = errors.New("user id is empty")
)

// ResultKind tells how a run ended.
type ResultKind string

const (
	// KindText: the model answered with text.
	KindText ResultKind = "text"
	// KindFrontendCall: the model called a client side tool.
	KindFrontendCall ResultKind = "frontend_call"
	// KindFallback: the model returned no usable content.
	KindFallback ResultKind = "fallback"
	// KindBudgetExceeded: the iteration budget ran out.
	KindBudgetExceeded ResultKind = "budget_exceeded"
	// KindModelFailure: the model call failed.
	KindModelFailure ResultKind = "model_failure"
)

// ForwardedResponse is persisted as the function response of a frontend call.
var ForwardedResponse = map[string]any{"status": "forwarded_to_client"}

// ToolInvocation records one tool call made during a run. Result is the full
// value returned to the caller; history keeps a summarized copy.
type ToolInvocation struct {
	Name     string
	Args     map[string]any
	Location tool.Location
	Result   any
	Err      error
	Duration time.Duration
}

// Result is the outcome of one Run.
type Result struct {
	Kind ResultKind
	// Text is the message for the user: the model's answer or one of the
	// fixed fallback, failure and budget messages.
	Text string
	// FunctionCall is set for KindFrontendCall.
	FunctionCall *core.FunctionCall
	// ToolCalls lists the tool calls of this run in order.
	ToolCalls []ToolInvocation
	// Iterations counts model calls.
	Iterations int
	// Usage sums the token usage reported by the model.
	Usage model.TokenUsage
	// Cause holds the model error for KindModelFailure.
	Cause error
}

// Invocation is the per-run state handed to request processors.
type Invocation struct {
	Context   context.Context
	UserID    string
	Env       map[string]any
	Iteration int
	// RunTurns counts the turns persisted by this run, the prompt included.
	// They are the newest turns of the user while the run holds its lock.
	RunTurns int
}

// RequestProcessor processes the request before it is sent to the model.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before the model call.
	ProcessRequest(inv *Invocation, req *model.Request) error
}

// Default option values.
const (
	DefaultWindowSize     = 20
	DefaultMaxStoredTurns = 100
	DefaultMaxIterations  = 10
	DefaultToolTimeout    = 30 * time.Second

	DefaultFallbackMessage       = "Sorry, I could not come up with a response. Please try rephrasing your request."
	DefaultFailureMessage        = "Sorry, something went wrong while contacting the language model. Please try again."
	DefaultBudgetExceededMessage = "Sorry, I stopped after too many tool calls without reaching an answer."
)

// Options configure an Orchestrator.
type Options struct {
	// WindowSize is the number of stored turns assembled per model call.
	WindowSize int
	// MaxStoredTurns is the per-user retention cap; <= 0 keeps everything.
	MaxStoredTurns int
	// MaxIterations bounds model calls per run. Values <= 0 fall back to
	// DefaultMaxIterations.
	MaxIterations int
	// ToolTimeout bounds each backend tool call; <= 0 disables the timeout.
	ToolTimeout time.Duration
	// Instructions is the system instructions template. It is rendered with
	// text/template against the run environment plus "user_id".
	Instructions string

	FallbackMessage       string
	FailureMessage        string
	BudgetExceededMessage string

	// RequestProcessors run after the built-in ones.
	RequestProcessors []RequestProcessor

	Logger logging.Logger
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		WindowSize:            DefaultWindowSize,
		MaxStoredTurns:        DefaultMaxStoredTurns,
		MaxIterations:         DefaultMaxIterations,
		ToolTimeout:           DefaultToolTimeout,
		FallbackMessage:       DefaultFallbackMessage,
		FailureMessage:        DefaultFailureMessage,
		BudgetExceededMessage: DefaultBudgetExceededMessage,
		Logger:                logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return opts
}
