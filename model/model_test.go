package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/turnmesh/core"
)

func userRequest(text string) Request {
	return Request{Contents: []core.Content{core.NewTextContent(core.ProtocolRoleUser, text)}}
}

func TestMockModel_ScriptedResponses(t *testing.T) {
	m := NewMockModel("mock", "mock").
		Enqueue(FunctionCallResponse("get_weather", map[string]any{"city": "Oslo"})).
		Enqueue(TextResponse("done"))

	resp, err := m.Generate(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	call, ok := resp.FirstPart().(core.FunctionCallPart)
	require.True(t, ok)
	assert.Equal(t, "get_weather", call.FunctionCall.Name)
	assert.Equal(t, "Oslo", call.FunctionCall.Args["city"])

	resp, err = m.Generate(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	text, ok := resp.FirstPart().(core.TextPart)
	require.True(t, ok)
	assert.Equal(t, "done", text.Text)

	assert.Equal(t, 2, m.Calls())
	assert.Len(t, m.Requests(), 2)
}

func TestMockModel_EchoesWhenScriptExhausted(t *testing.T) {
	m := NewMockModel("mock", "mock")

	resp, err := m.Generate(context.Background(), userRequest("ping"))
	require.NoError(t, err)
	text, ok := resp.FirstPart().(core.TextPart)
	require.True(t, ok)
	assert.Equal(t, "Mock response to: ping", text.Text)

	_, err = m.Generate(context.Background(), Request{})
	assert.Error(t, err)
}

func TestMockModel_Strict(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.Strict = true

	_, err := m.Generate(context.Background(), userRequest("ping"))
	assert.ErrorIs(t, err, ErrNoScriptedResponse)
}

func TestMockModel_EnqueueError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel("mock", "mock").EnqueueError(boom)

	_, err := m.Generate(context.Background(), userRequest("ping"))
	assert.ErrorIs(t, err, boom)
}

func TestMockModel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMockModel("mock", "mock").Enqueue(TextResponse("never"))
	_, err := m.Generate(ctx, userRequest("ping"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
}

func TestMockModel_Info(t *testing.T) {
	info := NewMockModel("scripted", "mock").Info()
	assert.Equal(t, "scripted", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}

func TestResponse_FirstPart(t *testing.T) {
	var nilResp *Response
	assert.Nil(t, nilResp.FirstPart())
	assert.Nil(t, (&Response{}).FirstPart())

	resp := TextResponse("hello")
	text, ok := resp.FirstPart().(core.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)
}
