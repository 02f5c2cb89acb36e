package core

// Protocol roles understood by model providers. Stored turns authored by the
// function role are folded into RoleModel when a context window is built.
const (
	ProtocolRoleUser  = "user"
	ProtocolRoleModel = "model"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// FunctionCall describes a tool/function invocation request.
type FunctionCall struct {
	Name string         `json:"name"` // Tool / function name
	Args map[string]any `json:"args"` // Decoded argument payload
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	Name     string `json:"name"`     // Function name
	Response any    `json:"response"` // Result or structured {error, details} payload
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts. One Content is one logical message
// sent to the model.
type Content struct {
	Role  string `json:"role"`  // Protocol role (user, model)
	Parts []Part `json:"parts"` // Ordered heterogeneous parts
}

// NewTextContent builds a single text part block.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// FirstPart returns the leading part or nil for an empty block.
func (c Content) FirstPart() Part {
	if len(c.Parts) == 0 {
		return nil
	}
	return c.Parts[0]
}

// IsFunctionCall reports whether the block leads with a function call.
func (c Content) IsFunctionCall() bool {
	_, ok := c.FirstPart().(FunctionCallPart)
	return ok
}

// IsFunctionResponse reports whether the block leads with a function response.
func (c Content) IsFunctionResponse() bool {
	_, ok := c.FirstPart().(FunctionResponsePart)
	return ok
}

// IsText reports whether the block leads with plain text.
func (c Content) IsText() bool {
	_, ok := c.FirstPart().(TextPart)
	return ok
}

// Text concatenates all text parts.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}
