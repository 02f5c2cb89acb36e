package flow

import (
	"fmt"
	"maps"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/history"
	internalutil "github.com/hupe1980/turnmesh/internal/util"
	"github.com/hupe1980/turnmesh/logging"
	"github.com/hupe1980/turnmesh/model"
	"github.com/hupe1980/turnmesh/tool"
)

// InstructionsProcessor renders the system instructions template.
type InstructionsProcessor struct {
	template string
	logger   logging.Logger
}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor(template string, logger logging.Logger) *InstructionsProcessor {
	return &InstructionsProcessor{template: template, logger: logger}
}

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (p *InstructionsProcessor) ProcessRequest(inv *Invocation, req *model.Request) error {
	if p.template == "" {
		return nil
	}

	state := maps.Clone(inv.Env)
	if state == nil {
		state = map[string]any{}
	}
	state[core.InjectedUserIDKey] = inv.UserID

	instructions, err := internalutil.RenderTemplate(p.template, state)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	if inv.Iteration == 1 {
		p.logger.Debug("flow.instructions.resolved", "user_id", inv.UserID, "length", len(instructions))
	}

	req.Instructions = instructions
	return nil
}

// ContentsProcessor loads the context window from history.
type ContentsProcessor struct {
	assembler  *history.Assembler
	windowSize int
}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor(assembler *history.Assembler, windowSize int) *ContentsProcessor {
	return &ContentsProcessor{assembler: assembler, windowSize: windowSize}
}

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents. The prompt is already persisted, so no
// new message is appended here. The window grows to cover every turn of the
// current run so the prompt and its tool exchanges are never cut off.
func (p *ContentsProcessor) ProcessRequest(inv *Invocation, req *model.Request) error {
	window := p.windowSize
	if window > 0 && inv.RunTurns > window {
		window = inv.RunTurns
	}

	contents, err := p.assembler.Assemble(inv.Context, inv.UserID, window, "")
	if err != nil {
		return err
	}
	req.Contents = contents
	return nil
}

// ToolsProcessor declares the registry's tools.
type ToolsProcessor struct {
	registry *tool.Registry
}

// NewToolsProcessor creates a new tools processor.
func NewToolsProcessor(registry *tool.Registry) *ToolsProcessor {
	return &ToolsProcessor{registry: registry}
}

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest sets req.Tools.
func (p *ToolsProcessor) ProcessRequest(_ *Invocation, req *model.Request) error {
	req.Tools = p.registry.Declarations()
	return nil
}
