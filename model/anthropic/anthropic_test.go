package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/model"
)

func callBlock(name string) core.Content {
	return core.Content{Role: core.ProtocolRoleModel, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{Name: name}}}}
}

func responseBlock(name string, response any) core.Content {
	return core.Content{Role: core.ProtocolRoleModel, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{Name: name, Response: response}}}}
}

func TestBuildMessages_PairsToolUseAndResult(t *testing.T) {
	msgs := BuildMessages([]core.Content{
		core.NewTextContent(core.ProtocolRoleUser, "find a cafe"),
		callBlock("find_place"),
		responseBlock("find_place", map[string]any{"error": "quota", "details": map[string]any{}}),
		core.NewTextContent(core.ProtocolRoleModel, "Sorry."),
	})
	require.Len(t, msgs, 4)

	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	use := msgs[1].Content[0].OfToolUse
	require.NotNil(t, use)
	assert.Equal(t, "find_place", use.Name)

	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	result := msgs[2].Content[0].OfToolResult
	require.NotNil(t, result)
	assert.Equal(t, use.ID, result.ToolUseID)
	assert.True(t, result.IsError.Value)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[3].Role)
}

func TestBuildMessages_SkipsOrphanResult(t *testing.T) {
	msgs := BuildMessages([]core.Content{
		responseBlock("find_place", "x"),
		core.NewTextContent(core.ProtocolRoleUser, "hi"),
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
}

func TestErrorPayload(t *testing.T) {
	msg, ok := errorPayload(map[string]any{"error": "boom"})
	assert.True(t, ok)
	assert.Equal(t, "boom", msg)

	_, ok = errorPayload("boom")
	assert.False(t, ok)
}

func TestBuildTools_RequiredShapes(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{
		{Function: model.FunctionDefinition{Name: "a", Description: "A", Parameters: map[string]any{"required": []string{"x"}}}},
		{Function: model.FunctionDefinition{Name: "b", Parameters: map[string]any{"required": []any{"y", 1}}}},
	})
	require.Len(t, tools, 2)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, []string{"x"}, tools[0].OfTool.InputSchema.Required)
	assert.Equal(t, []string{"y"}, tools[1].OfTool.InputSchema.Required)
}
