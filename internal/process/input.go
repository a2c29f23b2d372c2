package process

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Input holds resolved process options. It is cloned when resolved and must
// be treated as read-only for the duration of a run.
type Input map[string]any

// Has reports whether key carries a non-empty value.
func (in Input) Has(key string) bool {
	return !isEmpty(in[key])
}

// String returns a string option.
func (in Input) String(key string) string {
	switch v := in[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns a boolean option. String forms "true"/"false" are accepted so
// values set from the command line behave.
func (in Input) Bool(key string) bool {
	switch v := in[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

// Float returns a numeric option.
func (in Input) Float(key string) float64 {
	switch v := in[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// Int returns a numeric option truncated to int.
func (in Input) Int(key string) int {
	return int(math.Trunc(in.Float(key)))
}

// Strings returns a list option. A comma separated string is split.
func (in Input) Strings(key string) []string {
	switch v := in[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// List returns an array option with arbitrary element types.
func (in Input) List(key string) []any {
	switch v := in[key].(type) {
	case []any:
		return append([]any{}, v...)
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// Map returns a nested object option.
func (in Input) Map(key string) map[string]any {
	switch v := in[key].(type) {
	case map[string]any:
		return v
	case Input:
		return map[string]any(v)
	default:
		return nil
	}
}

// Value returns the raw option value.
func (in Input) Value(key string) any {
	return in[key]
}

// Clone deep-copies the input through JSON so later mutation of the caller's
// map cannot leak into a run.
func (in Input) Clone() Input {
	if in == nil {
		return Input{}
	}
	data, err := json.Marshal(in)
	if err != nil {
		out := make(Input, len(in))
		for k, v := range in {
			out[k] = v
		}
		return out
	}
	out := Input{}
	_ = json.Unmarshal(data, &out)
	return out
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
