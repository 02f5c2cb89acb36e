// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/model"
)

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{
		client: client,
		opts:   defaultOptions(optFns...),
	}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    BuildMessages(req.Contents),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}

	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}

	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var parts []core.Part

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			textBlock := block.AsText()
			if textBlock.Text != "" {
				parts = append(parts, core.TextPart{Text: textBlock.Text})
			}
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := map[string]any{}
			if len(toolBlock.Input) > 0 {
				if err := json.Unmarshal(toolBlock.Input, &args); err != nil {
					return nil, fmt.Errorf("anthropic tool call %s: malformed input: %w", toolBlock.Name, err)
				}
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				Name: toolBlock.Name,
				Args: args,
			}})
		}
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}

	return &model.Response{
		Candidates: []model.Candidate{{
			Content:      core.Content{Role: core.ProtocolRoleModel, Parts: parts},
			FinishReason: finishReason,
		}},
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// BuildMessages converts a context window into Anthropic messages. Tool
// results are sent as user-side tool_result blocks bound to the id of the
// tool_use block that requested them.
func BuildMessages(contents []core.Content) []anthropic.MessageParam {
	var (
		messages []anthropic.MessageParam
		tracker  model.CallTracker
	)

	for _, c := range contents {
		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				if part.Text == "" {
					continue
				}
				if c.Role == core.ProtocolRoleModel {
					messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(part.Text)))
				} else {
					messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(part.Text)))
				}
			case core.FunctionCallPart:
				var input any = part.FunctionCall.Args
				if part.FunctionCall.Args == nil {
					input = map[string]any{}
				}
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewToolUseBlock(
					tracker.Call(part.FunctionCall.Name),
					input,
					part.FunctionCall.Name,
				)))
			case core.FunctionResponsePart:
				id, ok := tracker.Respond(part.FunctionResponse.Name)
				if !ok {
					continue
				}
				_, isError := errorPayload(part.FunctionResponse.Response)
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(
					id,
					model.ResponseJSON(part.FunctionResponse.Response),
					isError,
				)))
			}
		}
	}

	return messages
}

// errorPayload detects the structured {error, details} tool failure shape.
func errorPayload(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := m["error"].(string)
	return msg, ok
}

// buildTools converts tool definitions to Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if params := tool.Function.Parameters; params != nil {
			if properties, exists := params["properties"]; exists {
				inputSchema.Properties = properties
			}
			switch required := params["required"].(type) {
			case []string:
				inputSchema.Required = required
			case []any:
				for _, r := range required {
					if s, ok := r.(string); ok {
						inputSchema.Required = append(inputSchema.Required, s)
					}
				}
			}
		}

		toolParam := anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
		if toolParam.OfTool != nil && tool.Function.Description != "" {
			toolParam.OfTool.Description = anthropic.String(tool.Function.Description)
		}
		anthropicTools[i] = toolParam
	}

	return anthropicTools
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
