// Package schema models the output contracts that delegated tasks must honor.
// A Field is a small sum type over JSON value kinds; it renders to JSON Schema
// for the external runtime and validates results returned by it.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Kind enumerates the JSON value kinds a Field may describe.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field describes one node of an output schema. Fields are built once when a
// task definition is declared and must not be mutated afterwards.
type Field struct {
	Kind        Kind
	Description string
	Enum        []string
	Minimum     *float64
	Maximum     *float64
	Items       *Field
	Properties  map[string]*Field
	Required    []string

	order    []string
	once     sync.Once
	resolved *jsonschema.Resolved
	err      error
}

// Property pairs a field with its name inside an object.
type Property struct {
	Name     string
	Field    *Field
	Required bool
}

// Req declares a required object property.
func Req(name string, f *Field) Property {
	return Property{Name: name, Field: f, Required: true}
}

// Opt declares an optional object property.
func Opt(name string, f *Field) Property {
	return Property{Name: name, Field: f}
}

// String returns a string field.
func String() *Field { return &Field{Kind: KindString} }

// Number returns a floating point field.
func Number() *Field { return &Field{Kind: KindNumber} }

// Integer returns an integral number field.
func Integer() *Field { return &Field{Kind: KindInteger} }

// Boolean returns a boolean field.
func Boolean() *Field { return &Field{Kind: KindBoolean} }

// Enum returns a string field restricted to values.
func Enum(values ...string) *Field {
	return &Field{Kind: KindString, Enum: append([]string{}, values...)}
}

// ArrayOf returns an array whose elements satisfy items.
func ArrayOf(items *Field) *Field {
	return &Field{Kind: KindArray, Items: items}
}

// Strings is shorthand for an array of strings.
func Strings() *Field {
	return ArrayOf(String())
}

// Object returns an object field composed of the given properties in
// declaration order.
func Object(props ...Property) *Field {
	f := &Field{Kind: KindObject, Properties: map[string]*Field{}}
	for _, p := range props {
		if p.Name == "" || p.Field == nil {
			continue
		}
		if _, dup := f.Properties[p.Name]; !dup {
			f.order = append(f.order, p.Name)
		}
		f.Properties[p.Name] = p.Field
		if p.Required {
			f.Required = append(f.Required, p.Name)
		}
	}
	return f
}

// Extend returns a new object containing the receiver's properties followed by
// props. It panics when called on a non-object field.
func (f *Field) Extend(props ...Property) *Field {
	if f.Kind != KindObject {
		panic(fmt.Sprintf("schema: cannot extend %s field", f.Kind))
	}
	base := make([]Property, 0, len(f.order)+len(props))
	required := map[string]bool{}
	for _, name := range f.Required {
		required[name] = true
	}
	for _, name := range f.order {
		base = append(base, Property{Name: name, Field: f.Properties[name], Required: required[name]})
	}
	out := Object(append(base, props...)...)
	out.Description = f.Description
	return out
}

// Describe sets the human readable description.
func (f *Field) Describe(text string) *Field {
	f.Description = text
	return f
}

// Range bounds a numeric field (inclusive).
func (f *Field) Range(min, max float64) *Field {
	f.Minimum = &min
	f.Maximum = &max
	return f
}

// Min sets an inclusive lower bound on a numeric field.
func (f *Field) Min(min float64) *Field {
	f.Minimum = &min
	return f
}

// Score is a 0-100 number, the common shape for scores and percentages.
func Score() *Field {
	return Number().Range(0, 100)
}

// Count is a non-negative integer.
func Count() *Field {
	return Integer().Min(0)
}

// PropertyNames returns object property names in declaration order.
func (f *Field) PropertyNames() []string {
	if f == nil || f.Kind != KindObject {
		return nil
	}
	if len(f.order) == len(f.Properties) {
		return append([]string{}, f.order...)
	}
	names := make([]string, 0, len(f.Properties))
	for name := range f.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether name is a required property of the object.
func (f *Field) IsRequired(name string) bool {
	if f == nil {
		return false
	}
	for _, r := range f.Required {
		if r == name {
			return true
		}
	}
	return false
}

// JSONSchema renders the field as a JSON Schema document.
func (f *Field) JSONSchema() *jsonschema.Schema {
	if f == nil {
		return &jsonschema.Schema{}
	}
	out := &jsonschema.Schema{
		Type:        string(f.Kind),
		Description: f.Description,
		Minimum:     cloneFloat(f.Minimum),
		Maximum:     cloneFloat(f.Maximum),
	}
	if len(f.Enum) > 0 {
		out.Enum = make([]any, len(f.Enum))
		for i, v := range f.Enum {
			out.Enum[i] = v
		}
	}
	if f.Items != nil {
		out.Items = f.Items.JSONSchema()
	}
	if f.Kind == KindObject {
		out.Properties = make(map[string]*jsonschema.Schema, len(f.Properties))
		for name, prop := range f.Properties {
			out.Properties[name] = prop.JSONSchema()
		}
		if len(f.Required) > 0 {
			out.Required = append([]string{}, f.Required...)
		}
	}
	return out
}

// MarshalJSON encodes the field as JSON Schema.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.JSONSchema())
}

// Validate checks value against the schema. The value is normalized through a
// JSON round trip first so Go structs and typed slices are accepted.
func (f *Field) Validate(value any) error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		f.resolved, f.err = f.JSONSchema().Resolve(nil)
	})
	if f.err != nil {
		return fmt.Errorf("schema: resolve: %w", f.err)
	}
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	if err := f.resolved.Validate(normalized); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

func normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("schema: encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("schema: decode value: %w", err)
	}
	return out, nil
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ZeroValue returns the smallest value satisfying the field: required object
// properties are populated recursively, enums take their first value and
// numbers their lower bound.
func (f *Field) ZeroValue() any {
	if f == nil {
		return nil
	}
	switch f.Kind {
	case KindString:
		if len(f.Enum) > 0 {
			return f.Enum[0]
		}
		return ""
	case KindNumber:
		if f.Minimum != nil {
			return *f.Minimum
		}
		return 0.0
	case KindInteger:
		if f.Minimum != nil {
			return int(*f.Minimum)
		}
		return 0
	case KindBoolean:
		return false
	case KindArray:
		return []any{}
	case KindObject:
		out := make(map[string]any, len(f.Required))
		for _, name := range f.Required {
			out[name] = f.Properties[name].ZeroValue()
		}
		return out
	default:
		return nil
	}
}
