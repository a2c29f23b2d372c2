package task

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kingrea/procflow/internal/schema"
)

// Args are the concrete arguments of one invocation.
type Args map[string]any

// With returns a copy of a overlaid with extra.
func (a Args) With(extra Args) Args {
	out := make(Args, len(a)+len(extra))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Definition is an immutable task kind. Build it with Define.
type Definition struct {
	name         string
	title        func(Args) string
	role         string
	objective    string
	instructions []string
	outputFormat string
	output       *schema.Field
	labels       []string
}

// Option configures a Definition.
type Option func(*Definition)

// Title sets a static title.
func Title(title string) Option {
	return func(d *Definition) {
		d.title = func(Args) string { return title }
	}
}

// TitleFunc derives the title from invocation arguments.
func TitleFunc(fn func(Args) string) Option {
	return func(d *Definition) {
		if fn != nil {
			d.title = fn
		}
	}
}

// Role sets the persona the worker should adopt.
func Role(role string) Option {
	return func(d *Definition) { d.role = role }
}

// Objective sets the prompt's task statement.
func Objective(text string) Option {
	return func(d *Definition) { d.objective = text }
}

// Instructions appends ordered instruction lines.
func Instructions(lines ...string) Option {
	return func(d *Definition) { d.instructions = append(d.instructions, lines...) }
}

// OutputFormat sets the desired output format description.
func OutputFormat(format string) Option {
	return func(d *Definition) { d.outputFormat = format }
}

// Labels sets observability tags.
func Labels(labels ...string) Option {
	return func(d *Definition) { d.labels = append(d.labels, labels...) }
}

// Output declares the result contract. Every result additionally carries an
// optional success flag and a required artifacts array.
func Output(props ...schema.Property) Option {
	return func(d *Definition) {
		base := []schema.Property{
			schema.Opt("success", schema.Boolean()),
			schema.Req("artifacts", ArtifactsField()),
		}
		d.output = schema.Object(append(base, props...)...)
	}
}

// ArtifactsField is the schema of an artifacts array.
func ArtifactsField() *schema.Field {
	return schema.ArrayOf(schema.Object(
		schema.Req("path", schema.String()),
		schema.Req("format", schema.String()),
		schema.Opt("label", schema.String()),
		schema.Opt("language", schema.String()),
	))
}

// Define declares a task kind. It panics on an empty name since definitions
// are package-level declarations.
func Define(name string, opts ...Option) *Definition {
	name = strings.TrimSpace(name)
	if name == "" {
		panic("task: name is required")
	}
	d := &Definition{name: name}
	for _, opt := range opts {
		opt(d)
	}
	if d.title == nil {
		d.title = func(Args) string { return name }
	}
	if d.output == nil {
		Output()(d)
	}
	if d.outputFormat == "" {
		d.outputFormat = "JSON object matching the output schema"
	}
	return d
}

// Name returns the task kind name.
func (d *Definition) Name() string { return d.name }

// Schema returns the output contract.
func (d *Definition) Schema() *schema.Field { return d.output }

// Labels returns a copy of the observability tags.
func (d *Definition) Labels() []string { return append([]string{}, d.labels...) }

// Describe builds the descriptor for one invocation. It has no side effects.
func (d *Definition) Describe(args Args, tc Context) Descriptor {
	return Descriptor{
		Name:  d.name,
		Title: d.title(args),
		Kind:  KindAgent,
		Prompt: Prompt{
			Role:         d.role,
			Task:         d.objective,
			Context:      renderContext(args),
			Instructions: append([]string{}, d.instructions...),
			OutputFormat: d.outputFormat,
		},
		OutputSchema: d.output,
		Labels:       d.Labels(),
		IO:           tc.IO(),
	}
}

func renderContext(args Args) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(args))
	}
	return string(data)
}
