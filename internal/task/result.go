package task

import (
	"encoding/json"
	"math"

	"github.com/kingrea/procflow/internal/artifact"
)

// Result is the loosely typed value returned by an executor. Accessors
// tolerate absent keys and mixed numeric types and return zero values.
type Result map[string]any

// Success reports the result's success flag and whether it was present.
func (r Result) Success() (value bool, present bool) {
	raw, ok := r["success"]
	if !ok {
		return false, false
	}
	b, ok := raw.(bool)
	return b, ok
}

// Failed reports whether the result explicitly signals failure.
func (r Result) Failed() bool {
	ok, present := r.Success()
	return present && !ok
}

// Artifacts decodes the artifacts array.
func (r Result) Artifacts() []artifact.Artifact {
	return artifact.Decode(r["artifacts"])
}

// Float returns a numeric field.
func (r Result) Float(key string) float64 {
	f, _ := toFloat(r[key])
	return f
}

// Int returns a numeric field truncated to an int.
func (r Result) Int(key string) int {
	f, _ := toFloat(r[key])
	return int(math.Trunc(f))
}

// Bool returns a boolean field.
func (r Result) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// String returns a string field.
func (r Result) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Strings returns a string array field.
func (r Result) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Slice returns an array field.
func (r Result) Slice(key string) []any {
	switch v := r[key].(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		var out []any
		if data, err := json.Marshal(v); err == nil {
			_ = json.Unmarshal(data, &out)
		}
		return out
	}
}

// Len returns the length of an array field.
func (r Result) Len(key string) int {
	return len(r.Slice(key))
}

// Map returns a nested object field, or an empty Result.
func (r Result) Map(key string) Result {
	switch v := r[key].(type) {
	case Result:
		return v
	case map[string]any:
		return Result(v)
	default:
		return Result{}
	}
}

// Value returns the raw field.
func (r Result) Value(key string) any {
	return r[key]
}

// Clone returns a deep copy via a JSON round trip.
func (r Result) Clone() Result {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		out := make(Result, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	var out Result
	_ = json.Unmarshal(data, &out)
	return out
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
