package assistant

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/xeipuuv/gojsonschema"
)

// Guardrails enforces the tool allowlist and parameter schemas before a
// handler runs.
type Guardrails struct {
	allowlist     map[string]bool // empty allows every tool
	validate      bool
	jsonValidator *JSONValidator
}

// NewGuardrails creates guardrails. validateParams turns schema checks on.
func NewGuardrails(allowed []string, validateParams bool) *Guardrails {
	g := &Guardrails{
		allowlist:     make(map[string]bool, len(allowed)),
		validate:      validateParams,
		jsonValidator: NewJSONValidator(),
	}
	for _, name := range allowed {
		g.allowlist[name] = true
	}
	return g
}

// Allowed reports whether name passes the allowlist.
func (g *Guardrails) Allowed(name string) bool {
	return len(g.allowlist) == 0 || g.allowlist[name]
}

// ValidateToolCall checks the allowlist and the tool's parameter schema.
func (g *Guardrails) ValidateToolCall(tool ports.Tool, params map[string]any) error {
	if !g.Allowed(tool.Name) {
		return fmt.Errorf("Tool not allowed: %s", tool.Name)
	}
	if !g.validate {
		return nil
	}
	if err := g.jsonValidator.Validate(tool.Name, tool.Parameters, params); err != nil {
		return fmt.Errorf("invalid parameters for %s: %w", tool.Name, err)
	}
	return nil
}

// JSONValidator validates decoded parameters against compiled tool schemas.
type JSONValidator struct {
	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

// NewJSONValidator creates a new JSON validator.
func NewJSONValidator() *JSONValidator {
	return &JSONValidator{schemas: make(map[string]*gojsonschema.Schema)}
}

func (v *JSONValidator) compiled(key string, schema ports.ParameterSchema) (*gojsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.schemas[key]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema.JSONSchema()))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	v.schemas[key] = s
	return s, nil
}

// Validate checks params against schema. key identifies the compiled schema.
func (v *JSONValidator) Validate(key string, schema ports.ParameterSchema, params map[string]any) error {
	s, err := v.compiled(key, schema)
	if err != nil {
		return err
	}
	if params == nil {
		params = map[string]any{}
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, e := range result.Errors() {
		if field := e.Field(); field != "" && field != "(root)" {
			problems = append(problems, field+": "+e.Description())
		} else {
			problems = append(problems, e.Description())
		}
	}
	return errors.New(strings.Join(problems, "; "))
}
