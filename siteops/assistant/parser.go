package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/inference"
)

// OutputParser extracts suggested tool calls from model output. Only names
// accepted by known are returned.
type OutputParser struct {
	known            func(name string) bool
	toolCallPatterns []*regexp.Regexp
	trailingComma    *regexp.Regexp
	unquotedKey      *regexp.Regexp
}

// NewOutputParser creates a parser with patterns for common tool call formats.
func NewOutputParser(known func(name string) bool) *OutputParser {
	if known == nil {
		known = func(string) bool { return true }
	}
	return &OutputParser{
		known: known,
		toolCallPatterns: []*regexp.Regexp{
			// {"toolName": "tool", "parameters": {...}}
			regexp.MustCompile(`\{\s*"toolName"\s*:\s*"([^"]+)"\s*,\s*"parameters"\s*:\s*(\{[^{}]*\})\s*\}`),
			// {"name": "tool", "arguments": {...}}
			regexp.MustCompile(`\{\s*"name"\s*:\s*"([^"]+)"\s*,\s*"arguments"\s*:\s*(\{[^{}]*\})\s*\}`),
			// tool_name({"arg": "value"})
			regexp.MustCompile(`(\w+)\s*\(\s*(\{[^{}]*\})\s*\)`),
		},
		trailingComma: regexp.MustCompile(`,\s*([}\]])`),
		unquotedKey:   regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`),
	}
}

// ParseToolCalls returns the tool calls suggested in text, first occurrence
// of each distinct call only.
func (p *OutputParser) ParseToolCalls(text string) []ports.ToolCall {
	var calls []ports.ToolCall
	seen := make(map[string]bool)

	for _, pattern := range p.toolCallPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if len(match) < 3 {
				continue
			}
			name := strings.TrimSpace(match[1])
			if !p.known(name) {
				continue
			}
			params, ok := p.decodeArgs(match[2])
			if !ok {
				continue
			}
			key := name + match[2]
			if seen[key] {
				continue
			}
			seen[key] = true
			calls = append(calls, ports.ToolCall{Name: name, Parameters: params})
		}
	}
	return calls
}

// FromNative converts runtime-reported tool calls.
func (p *OutputParser) FromNative(native []inference.ToolCall) []ports.ToolCall {
	var calls []ports.ToolCall
	for _, tc := range native {
		if !p.known(tc.Function.Name) {
			continue
		}
		params, ok := p.decodeArgs(string(tc.Function.Arguments))
		if !ok {
			// some runtimes send arguments as a JSON-encoded string
			var s string
			if json.Unmarshal(tc.Function.Arguments, &s) != nil {
				continue
			}
			if params, ok = p.decodeArgs(s); !ok {
				continue
			}
		}
		calls = append(calls, ports.ToolCall{Name: tc.Function.Name, Parameters: params})
	}
	return calls
}

func (p *OutputParser) decodeArgs(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, true
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err == nil {
		return params, true
	}
	if err := json.Unmarshal([]byte(p.fixJSON(raw)), &params); err == nil {
		return params, true
	}
	return nil, false
}

// fixJSON attempts to fix common JSON formatting issues.
func (p *OutputParser) fixJSON(s string) string {
	s = p.trailingComma.ReplaceAllString(s, "$1")
	s = p.unquotedKey.ReplaceAllString(s, `$1"$2":`)
	return strings.ReplaceAll(s, "'", "\"")
}
