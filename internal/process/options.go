package process

import (
	"fmt"
	"strings"
)

// Option documents one configuration option of a process.
type Option struct {
	Name        string
	Description string
	// Default applies when the caller omits the option.
	Default any
	// DefaultFunc derives the default from other resolved options. It runs
	// after every static default has been applied.
	DefaultFunc func(Input) any
	Required    bool
	Enum        []string
}

// Options is the declared option set of a process.
type Options []Option

// Lookup returns the named option.
func (o Options) Lookup(name string) (Option, bool) {
	for _, opt := range o {
		if opt.Name == name {
			return opt, true
		}
	}
	return Option{}, false
}

// Resolve clones raw and applies defaults. Absent required options fail with
// *MissingInputError; enum violations fail with ErrInvalidInput. Keys that are
// not declared are passed through.
func (o Options) Resolve(raw map[string]any) (Input, error) {
	in := Input(raw).Clone()
	var missing []string
	for _, opt := range o {
		if in.Has(opt.Name) {
			continue
		}
		if opt.Required {
			missing = append(missing, opt.Name)
			continue
		}
		if opt.Default != nil {
			in[opt.Name] = cloneDefault(opt.Default)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingInputError{Fields: missing}
	}
	for _, opt := range o {
		if opt.DefaultFunc == nil {
			continue
		}
		if Input(raw).Has(opt.Name) {
			continue
		}
		in[opt.Name] = opt.DefaultFunc(in)
	}
	for _, opt := range o {
		if len(opt.Enum) == 0 || !in.Has(opt.Name) {
			continue
		}
		value := in.String(opt.Name)
		if !contains(opt.Enum, value) {
			return nil, fmt.Errorf("%w: %s must be one of %s, got %q", ErrInvalidInput, opt.Name, strings.Join(opt.Enum, "|"), value)
		}
	}
	return in, nil
}

func cloneDefault(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case map[string]any:
		return map[string]any(Input(val).Clone())
	default:
		return v
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
