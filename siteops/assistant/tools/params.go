// Package tools defines the built-in business tools: read-only queries over
// projects, materials, deliveries, quality tests and timesheets, and the
// mutating tools that record or adjust them.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Parameter access. JSON numbers decode as float64; Go callers may pass ints.

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func optionalString(params map[string]any, name string) (string, bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("parameter %s must be a string, got %s", name, typeName(v))
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

func requiredString(params map[string]any, name string) (string, error) {
	s, ok, err := optionalString(params, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

func optionalNumber(params map[string]any, name string) (float64, bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("parameter %s must be a number: %w", name, err)
		}
		f = parsed
	default:
		return 0, false, fmt.Errorf("parameter %s must be a number, got %s", name, typeName(v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("parameter %s must be a finite number", name)
	}
	return f, true, nil
}

func requiredNumber(params map[string]any, name string) (float64, error) {
	f, ok, err := optionalNumber(params, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	return f, nil
}

func optionalBool(params map[string]any, name string) (bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %s must be a boolean, got %s", name, typeName(v))
	}
	return b, nil
}

// limitParam reads "limit", defaulting to 10 and capping at 100.
func limitParam(params map[string]any) (int, error) {
	f, ok, err := optionalNumber(params, "limit")
	if err != nil {
		return 0, err
	}
	if !ok {
		return defaultLimit, nil
	}
	if f < 1 || f != math.Trunc(f) {
		return 0, fmt.Errorf("limit must be a positive whole number, got %v", f)
	}
	return int(min(f, maxLimit)), nil
}

func enumParam(params map[string]any, name string, allowed []string) (string, bool, error) {
	s, ok, err := optionalString(params, name)
	if err != nil || !ok {
		return "", false, err
	}
	for _, a := range allowed {
		if s == a {
			return s, true, nil
		}
	}
	return "", false, fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, ", "), s)
}

func parseDate(name, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format, got %q", name, value)
	}
	return t, nil
}

func parseClock(name, value string) (time.Time, error) {
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a time in HH:MM format, got %q", name, value)
	}
	return t, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
