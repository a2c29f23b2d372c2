package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func scanSchema() *Field {
	return Object(
		Req("criticalCount", Count()),
		Req("securityScore", Score()),
		Req("status", Enum("passed", "failed")),
		Opt("findings", ArrayOf(Object(
			Req("id", String()),
			Opt("severity", Enum("low", "medium", "high", "critical")),
		))),
	)
}

func TestValidateAcceptsConformingResult(t *testing.T) {
	s := scanSchema()
	value := map[string]any{
		"criticalCount": 2,
		"securityScore": 64.5,
		"status":        "failed",
		"findings":      []map[string]any{{"id": "F-1", "severity": "high"}},
	}
	if err := s.Validate(value); err != nil {
		t.Fatalf("expected valid result, got %v", err)
	}
}

func TestValidateRejectsViolations(t *testing.T) {
	tests := []struct {
		name  string
		value map[string]any
	}{
		{name: "missing-required", value: map[string]any{"securityScore": 10, "status": "passed"}},
		{name: "enum", value: map[string]any{"criticalCount": 0, "securityScore": 10, "status": "unknown"}},
		{name: "range", value: map[string]any{"criticalCount": 0, "securityScore": 140, "status": "passed"}},
		{name: "negative-count", value: map[string]any{"criticalCount": -1, "securityScore": 10, "status": "passed"}},
		{name: "integer", value: map[string]any{"criticalCount": 1.5, "securityScore": 10, "status": "passed"}},
		{name: "nested-enum", value: map[string]any{
			"criticalCount": 0, "securityScore": 10, "status": "passed",
			"findings": []any{map[string]any{"id": "x", "severity": "urgent"}},
		}},
	}
	s := scanSchema()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := s.Validate(test.value); err == nil {
				t.Fatalf("expected validation error for %v", test.value)
			}
		})
	}
}

func TestExtendKeepsOrderAndRequired(t *testing.T) {
	base := Object(Req("a", String()), Opt("b", Integer()))
	ext := base.Extend(Req("c", Boolean()))
	names := ext.PropertyNames()
	if strings.Join(names, ",") != "a,b,c" {
		t.Fatalf("unexpected property order %v", names)
	}
	if !ext.IsRequired("a") || ext.IsRequired("b") || !ext.IsRequired("c") {
		t.Fatalf("unexpected required set %v", ext.Required)
	}
	if len(base.Properties) != 2 {
		t.Fatalf("extend mutated the base object")
	}
}

func TestMarshalJSONRendersSchema(t *testing.T) {
	data, err := json.Marshal(scanSchema())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["type"] != "object" {
		t.Fatalf("expected object type, got %v", doc["type"])
	}
	props, ok := doc["properties"].(map[string]any)
	if !ok || props["securityScore"] == nil {
		t.Fatalf("missing properties in %s", data)
	}
	score := props["securityScore"].(map[string]any)
	if score["maximum"] != float64(100) {
		t.Fatalf("expected maximum 100, got %v", score["maximum"])
	}
}

func TestZeroValueSatisfiesSchema(t *testing.T) {
	f := Object(
		Req("status", Enum("compliant", "non-compliant")),
		Req("score", Score()),
		Req("floor", Integer().Min(3)),
		Req("nested", Object(Req("flag", Boolean()), Opt("note", String()))),
		Req("items", Strings()),
		Opt("ignored", String()),
	)
	zero, ok := f.ZeroValue().(map[string]any)
	if !ok {
		t.Fatalf("expected object zero value")
	}
	if zero["status"] != "compliant" || zero["floor"] != 3 {
		t.Fatalf("unexpected zero value %+v", zero)
	}
	if _, present := zero["ignored"]; present {
		t.Fatalf("optional properties should be omitted")
	}
	if err := f.Validate(zero); err != nil {
		t.Fatalf("zero value should validate: %v", err)
	}
}
