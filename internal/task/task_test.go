package task

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kingrea/procflow/internal/schema"
)

var scanTask = Define("run-passive-scan",
	TitleFunc(func(a Args) string { return "Passive scan of " + stringArg(a, "url") }),
	Role("DAST engineer"),
	Objective("Run a passive scan"),
	Instructions("Spider the application", "Record findings"),
	Labels("dast", "passive"),
	Output(
		schema.Req("findingsCount", schema.Count()),
		schema.Opt("severity", schema.Enum("low", "medium", "high")),
	),
)

func stringArg(a Args, key string) string {
	s, _ := a[key].(string)
	return s
}

func TestDescribeIsPure(t *testing.T) {
	args := Args{"url": "https://app.example"}
	first := scanTask.Describe(args, Context{EffectID: "004-run-passive-scan"})
	second := scanTask.Describe(args, Context{EffectID: "004-run-passive-scan"})
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("describe not deterministic:\n%s\n%s", a, b)
	}
	if first.Title != "Passive scan of https://app.example" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Kind != KindAgent {
		t.Fatalf("expected agent kind, got %s", first.Kind)
	}
	if first.IO.Input != "tasks/004-run-passive-scan/input.json" || first.IO.Result != "tasks/004-run-passive-scan/result.json" {
		t.Fatalf("unexpected io paths: %+v", first.IO)
	}
	if !strings.Contains(first.Prompt.Context, "app.example") {
		t.Fatalf("expected args in prompt context, got %q", first.Prompt.Context)
	}
	first.Prompt.Instructions[0] = "mutated"
	if scanTask.Describe(args, Context{EffectID: "x"}).Prompt.Instructions[0] != "Spider the application" {
		t.Fatalf("descriptor shares instruction storage with the definition")
	}
}

func TestOutputRequiresArtifacts(t *testing.T) {
	out := scanTask.Schema()
	if !out.IsRequired("artifacts") || !out.IsRequired("findingsCount") {
		t.Fatalf("expected artifacts and findingsCount required, got %v", out.Required)
	}
	if err := out.Validate(map[string]any{"findingsCount": 2}); err == nil {
		t.Fatalf("expected missing artifacts to fail validation")
	}
	ok := map[string]any{
		"findingsCount": 2,
		"artifacts":     []any{map[string]any{"path": "scan.json", "format": "json"}},
	}
	if err := out.Validate(ok); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEffectID(t *testing.T) {
	if got := EffectID(7, "generate-aoc"); got != "007-generate-aoc" {
		t.Fatalf("unexpected effect id %s", got)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(scanTask, Define("generate-reports")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(Define("run-passive-scan")); err == nil {
		t.Fatalf("expected duplicate error")
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "generate-reports" {
		t.Fatalf("unexpected names %v", names)
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatalf("expected lookup miss")
	}
}

func TestResultAccessors(t *testing.T) {
	var r Result
	if err := json.Unmarshal([]byte(`{
		"success": false,
		"criticalCount": 2,
		"score": 71.5,
		"tools": ["zap", "nuclei"],
		"summary": {"high": 4},
		"artifacts": [{"path": "a.md", "format": "markdown"}]
	}`), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !r.Failed() {
		t.Fatalf("expected explicit failure")
	}
	if r.Int("criticalCount") != 2 || r.Float("score") != 71.5 {
		t.Fatalf("unexpected numbers: %v %v", r.Int("criticalCount"), r.Float("score"))
	}
	if got := r.Strings("tools"); len(got) != 2 || got[1] != "nuclei" {
		t.Fatalf("unexpected tools %v", got)
	}
	if r.Map("summary").Int("high") != 4 {
		t.Fatalf("unexpected nested access")
	}
	if r.Map("absent").Int("x") != 0 || r.Len("absent") != 0 {
		t.Fatalf("expected zero values for absent keys")
	}
	if arts := r.Artifacts(); len(arts) != 1 || arts[0].Path != "a.md" {
		t.Fatalf("unexpected artifacts %+v", arts)
	}
	if (Result{"criticalCount": 3}).Int("criticalCount") != 3 {
		t.Fatalf("expected int values to be accepted")
	}
	if (Result{}).Failed() {
		t.Fatalf("absent success flag must not count as failure")
	}
}

func TestArgsWithDoesNotMutate(t *testing.T) {
	base := Args{"a": 1}
	merged := base.With(Args{"b": 2, "a": 3})
	if base["a"] != 1 || len(base) != 1 {
		t.Fatalf("base mutated: %v", base)
	}
	if merged["a"] != 3 || merged["b"] != 2 {
		t.Fatalf("unexpected merge: %v", merged)
	}
}
