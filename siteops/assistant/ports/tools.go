package assistantports

import (
	"context"
	"encoding/json"
)

// ToolKind separates side-effect-free queries from tools that write business data.
type ToolKind string

const (
	ReadOnly ToolKind = "read_only"
	Mutating ToolKind = "mutating"
)

// Parameter type tags.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Parameter describes one named tool argument.
type Parameter struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

// ParameterSchema is the declarative argument contract of a tool.
type ParameterSchema struct {
	Properties map[string]Parameter `json:"properties"`
	Required   []string             `json:"required"`
}

// JSONSchema renders the schema as a draft-07 object schema.
func (s ParameterSchema) JSONSchema() json.RawMessage {
	props := s.Properties
	if props == nil {
		props = map[string]Parameter{}
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	doc := struct {
		Schema     string               `json:"$schema"`
		Type       string               `json:"type"`
		Properties map[string]Parameter `json:"properties"`
		Required   []string             `json:"required"`
	}{
		Schema:     "http://json-schema.org/draft-07/schema#",
		Type:       TypeObject,
		Properties: props,
		Required:   required,
	}
	raw, _ := json.Marshal(doc)
	return raw
}

// Handler executes a tool. params are decoded JSON values: numbers arrive
// as float64.
type Handler func(ctx context.Context, params map[string]any, callerID string) (any, error)

// Tool is a named, schema-described capability over business data.
type Tool struct {
	Name        string
	Description string
	Kind        ToolKind
	Parameters  ParameterSchema
	Handler     Handler
}

// Descriptor returns the tool without its handler.
func (t Tool) Descriptor() ToolDescriptor {
	return ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		Kind:        t.Kind,
		Parameters:  t.Parameters,
	}
}

// ToolDescriptor is the public, handler-free view of a tool.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kind        ToolKind        `json:"kind"`
	Parameters  ParameterSchema `json:"parameterSchema"`
}

// InvocationResult is the envelope every dispatch returns. Error is set
// only when Success is false; Result only when it is true.
type InvocationResult struct {
	Success    bool           `json:"success"`
	ToolName   string         `json:"toolName"`
	Parameters map[string]any `json:"parameters"`
	Result     any            `json:"result"`
	Error      string         `json:"error,omitempty"`
}

// ToolCall is a tool invocation requested by a caller or suggested by the model.
type ToolCall struct {
	Name       string         `json:"toolName"`
	Parameters map[string]any `json:"parameters"`
}
