package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// TurnContent is the classified form of a stored message. Concrete variants
// are TextContent, FunctionCallContent and FunctionResponseContent.
type TurnContent interface {
	// Part converts the variant into the matching content part.
	Part() Part
}

// TextContent is a plain text message.
type TextContent struct{ Text string }

// Part implements TurnContent.
func (c TextContent) Part() Part { return TextPart{Text: c.Text} }

// FunctionCallContent is a persisted model request to run a tool.
type FunctionCallContent struct {
	Name string
	Args map[string]any
}

// Part implements TurnContent.
func (c FunctionCallContent) Part() Part {
	return FunctionCallPart{FunctionCall: FunctionCall{Name: c.Name, Args: c.Args}}
}

// FunctionResponseContent is a persisted tool result.
type FunctionResponseContent struct {
	Name     string
	Response any
}

// Part implements TurnContent.
func (c FunctionResponseContent) Part() Part {
	return FunctionResponsePart{FunctionResponse: FunctionResponse{Name: c.Name, Response: c.Response}}
}

type functionCallEnvelope struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type functionResponseEnvelope struct {
	FunctionResponse FunctionResponse `json:"function_response"`
}

// EncodeFunctionCall renders {"name": ..., "args": {...}}.
func EncodeFunctionCall(name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	b, err := json.Marshal(functionCallEnvelope{Name: name, Args: args})
	if err != nil {
		return "", fmt.Errorf("encode function call %s: %w", name, err)
	}
	return string(b), nil
}

// EncodeFunctionResponse renders {"function_response": {"name": ..., "response": ...}}.
func EncodeFunctionResponse(name string, response any) (string, error) {
	b, err := json.Marshal(functionResponseEnvelope{FunctionResponse: FunctionResponse{Name: name, Response: response}})
	if err != nil {
		return "", fmt.Errorf("encode function response %s: %w", name, err)
	}
	return string(b), nil
}

// Classify turns a raw stored message into its tagged variant. Anything that
// is not a JSON object with the expected keys, including malformed JSON, is
// text. Classify never fails.
func Classify(raw string) TurnContent {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return TextContent{Text: raw}
	}

	doc := gjson.Parse(trimmed)

	if fr := doc.Get("function_response"); fr.Exists() {
		var response any
		if r := fr.Get("response"); r.Exists() {
			response = r.Value()
		}
		return FunctionResponseContent{Name: fr.Get("name").String(), Response: response}
	}

	name, args := doc.Get("name"), doc.Get("args")
	if name.Exists() && args.Exists() {
		argMap, _ := args.Value().(map[string]any)
		if argMap == nil {
			argMap = map[string]any{}
		}
		return FunctionCallContent{Name: name.String(), Args: argMap}
	}

	return TextContent{Text: raw}
}
