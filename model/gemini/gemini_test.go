package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/model"
)

func TestBuildContents(t *testing.T) {
	contents := []core.Content{
		core.NewTextContent(core.ProtocolRoleUser, "weather in Oslo?"),
		{Role: core.ProtocolRoleModel, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
			Name: "get_weather",
			Args: map[string]any{"latitude": 59.9},
		}}}},
		{Role: core.ProtocolRoleModel, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			Name:     "get_weather",
			Response: "Sunny",
		}}}},
		core.NewTextContent(core.ProtocolRoleModel, "It is sunny."),
		{Role: core.ProtocolRoleModel},
	}

	out := BuildContents(contents)
	require.Len(t, out, 4)

	assert.Equal(t, "user", out[0].Role)
	assert.Equal(t, "weather in Oslo?", out[0].Parts[0].Text)

	assert.Equal(t, "model", out[1].Role)
	require.NotNil(t, out[1].Parts[0].FunctionCall)
	assert.Equal(t, "get_weather", out[1].Parts[0].FunctionCall.Name)

	assert.Equal(t, "user", out[2].Role)
	require.NotNil(t, out[2].Parts[0].FunctionResponse)
	assert.Equal(t, map[string]any{"result": "Sunny"}, out[2].Parts[0].FunctionResponse.Response)

	assert.Equal(t, "model", out[3].Role)
}

func TestResponseMap(t *testing.T) {
	obj := map[string]any{"error": "boom"}
	assert.Equal(t, obj, responseMap(obj))
	assert.Equal(t, map[string]any{"result": 3.0}, responseMap(3.0))
}

func TestConvertResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: "add_marker", Args: map[string]any{"label": "x"}}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}

	out := convertResponse(resp)
	call, ok := out.FirstPart().(core.FunctionCallPart)
	require.True(t, ok)
	assert.Equal(t, "add_marker", call.FunctionCall.Name)
	assert.Equal(t, &model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, out.Usage)

	assert.Empty(t, convertResponse(nil).Candidates)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "get_weather",
			Description: "weather",
			Parameters:  map[string]any{"type": "object"},
		},
	}})
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "get_weather", tools[0].FunctionDeclarations[0].Name)
}
