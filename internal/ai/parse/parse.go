// Package parse turns free-form model output into structured data.
//
// Callers depend only on Object and the coercion helpers, so a stricter
// structured-output mode can replace the brace matching without touching them.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrNoObject is returned when the text holds no balanced JSON object.
var ErrNoObject = errors.New("no json object found in response")

// Object locates the first balanced top-level JSON object in raw and decodes it.
// Candidates that are balanced but not valid JSON are skipped.
func Object(raw string) (map[string]any, error) {
	text := stripFences(raw)

	var lastErr error
	for start := strings.IndexByte(text, '{'); start != -1; {
		end := matchBrace(text, start)
		if end == -1 {
			break
		}

		var data map[string]any
		err := json.Unmarshal([]byte(text[start:end+1]), &data)
		if err == nil {
			return data, nil
		}
		lastErr = err

		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoObject, lastErr)
	}
	return nil, ErrNoObject
}

// matchBrace returns the index of the brace closing the one at start, honouring
// string literals and escapes. It returns -1 when the object is never closed.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

// Decode maps a parsed object onto a typed struct using mapstructure tags,
// accepting numbers encoded as strings and similar model quirks.
func Decode(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Float returns NaN when v holds no number.
func Float(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func String(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// Strings accepts a JSON array or a single string and drops blank entries.
// The second result is false when v is absent or of another type.
func Strings(v any) ([]string, bool) {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []string:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}, true
		}
		return nil, true
	default:
		return nil, false
	}
}

func Bool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

// Map returns v as an object, or nil when it is not one.
func Map(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// Clamp bounds v to [lo, hi]; NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
