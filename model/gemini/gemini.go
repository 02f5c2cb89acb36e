// Package gemini provides an implementation of model.Model using the Google
// Gen AI SDK (Gemini API). Context windows map almost one to one onto Gemini
// contents; the only adjustment is that function results travel with the
// user role, which is what the API expects.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/model"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Options configure the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string // empty: the SDK reads GOOGLE_API_KEY / GEMINI_API_KEY
}

// Model wraps the Gemini GenerateContent API behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a new Gemini model using the official client.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions(optFns...)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:           DefaultModel,
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	return opts
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.opts.Temperature),
		MaxOutputTokens: m.opts.MaxOutputTokens,
	}
	if req.Instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = buildTools(req.Tools)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, BuildContents(req.Contents), config)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	return convertResponse(resp), nil
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}

// BuildContents converts a context window into Gemini contents.
func BuildContents(contents []core.Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		role := string(genai.RoleUser)
		if c.Role == core.ProtocolRoleModel {
			role = string(genai.RoleModel)
		}

		gc := &genai.Content{Role: role}
		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				gc.Parts = append(gc.Parts, genai.NewPartFromText(part.Text))
			case core.FunctionCallPart:
				gc.Parts = append(gc.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}})
			case core.FunctionResponsePart:
				// Gemini expects tool results on the user side of the exchange.
				gc.Role = string(genai.RoleUser)
				gc.Parts = append(gc.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					Name:     part.FunctionResponse.Name,
					Response: responseMap(part.FunctionResponse.Response),
				}})
			}
		}

		if len(gc.Parts) > 0 {
			out = append(out, gc)
		}
	}
	return out
}

// responseMap wraps non-object results because Gemini requires an object.
func responseMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": v}
}

func buildTools(defs []model.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 d.Function.Name,
			Description:          d.Function.Description,
			ParametersJsonSchema: d.Function.Parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertResponse(resp *genai.GenerateContentResponse) *model.Response {
	out := &model.Response{}
	if resp == nil {
		return out
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		content := core.Content{Role: core.ProtocolRoleModel}
		for _, p := range cand.Content.Parts {
			switch {
			case p == nil:
			case p.FunctionCall != nil:
				content.Parts = append(content.Parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
					Name: p.FunctionCall.Name,
					Args: p.FunctionCall.Args,
				}})
			case p.Text != "":
				content.Parts = append(content.Parts, core.TextPart{Text: p.Text})
			}
		}
		out.Candidates = append(out.Candidates, model.Candidate{
			Content:      content,
			FinishReason: string(cand.FinishReason),
		})
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return out
}
