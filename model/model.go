package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/turnmesh/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by the orchestrator.
type Request struct {
	Instructions string           `json:"instructions"` // System instructions for the model
	Contents     []core.Content   `json:"contents"`     // Assembled context window
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Candidate is one alternative completion.
type Candidate struct {
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
}

// Response is the complete result of one generation call.
type Response struct {
	Candidates []Candidate `json:"candidates"`
	Usage      *TokenUsage `json:"usage,omitempty"`
}

// FirstPart returns the first part of the first candidate, or nil when the
// response carries no content.
func (r *Response) FirstPart() core.Part {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].Content.FirstPart()
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "gemini", "openai", "anthropic", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the orchestrator to drive
// generation. Generate is one synchronous call; no streaming.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// TextResponse builds a single-candidate text response.
func TextResponse(text string) Response {
	return Response{Candidates: []Candidate{{
		Content:      core.NewTextContent(core.ProtocolRoleModel, text),
		FinishReason: "stop",
	}}}
}

// FunctionCallResponse builds a single-candidate function call response.
func FunctionCallResponse(name string, args map[string]any) Response {
	return Response{Candidates: []Candidate{{
		Content: core.Content{
			Role:  core.ProtocolRoleModel,
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{Name: name, Args: args}}},
		},
		FinishReason: "tool_calls",
	}}}
}

// ErrNoScriptedResponse is returned by a strict MockModel with an empty queue.
var ErrNoScriptedResponse = errors.New("mock model: no scripted response left")

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Scripted responses are served in order; once the queue is empty it echoes
// the last user text (or fails when Strict is set).
type MockModel struct {
	info Info

	// Strict makes Generate fail once the script is exhausted.
	Strict bool

	mu       sync.Mutex
	script   []scripted
	requests []Request
}

type scripted struct {
	resp Response
	err  error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
	}
}

// Enqueue appends scripted responses.
func (m *MockModel) Enqueue(responses ...Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range responses {
		m.script = append(m.script, scripted{resp: r})
	}
	return m
}

// EnqueueError appends a scripted failure.
func (m *MockModel) EnqueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Generate invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		if next.err != nil {
			return nil, next.err
		}
		resp := next.resp
		return &resp, nil
	}

	if m.Strict {
		return nil, ErrNoScriptedResponse
	}

	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("no contents provided")
	}

	resp := TextResponse(fmt.Sprintf("Mock response to: %s", req.Contents[len(req.Contents)-1].Text()))
	return &resp, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
