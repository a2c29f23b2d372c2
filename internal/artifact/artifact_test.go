package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSinkAppendsInOrder(t *testing.T) {
	sink := NewSink()
	if n := sink.Add(Artifact{Path: "a.md", Format: "markdown"}, Artifact{Path: ""}, Artifact{Path: "b.json", Format: "json"}); n != 2 {
		t.Fatalf("expected 2 accepted artifacts, got %d", n)
	}
	before := sink.List()
	sink.Add(Artifact{Path: "c.yaml", Format: "yaml", Label: "policy"})
	after := sink.List()
	if len(after) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("prefix changed at %d: %+v vs %+v", i, before[i], after[i])
		}
	}
	files := sink.Files()
	if files[2].Label != "policy" || files[2].Path != "c.yaml" {
		t.Fatalf("unexpected projection: %+v", files[2])
	}
}

func TestDecodeHandlesLooseValues(t *testing.T) {
	raw := []any{
		map[string]any{"path": "report.md", "format": "markdown", "label": "report"},
		map[string]any{"format": "json"},
		"not-an-object",
	}
	got := Decode(raw)
	if len(got) != 1 || got[0].Path != "report.md" || got[0].Label != "report" {
		t.Fatalf("unexpected decode: %+v", got)
	}
	type typed struct {
		Path   string `json:"path"`
		Format string `json:"format"`
	}
	got = Decode([]typed{{Path: "x.tf", Format: "hcl"}})
	if len(got) != 1 || got[0].Format != "hcl" {
		t.Fatalf("expected json round trip decode, got %+v", got)
	}
	if Decode(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}

func TestStoreJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(dir, WithClock(func() time.Time { return now }))
	meta := Metadata{ProcessID: "dast-scanning", RunID: "run-1", Task: "run-passive-scan"}
	payload := map[string]any{"findings": 3}
	if err := store.WriteJSON(TaskResultPath("004-run-passive-scan"), payload, meta); err != nil {
		t.Fatalf("write json: %v", err)
	}
	got, stored, err := store.ReadJSON(TaskResultPath("004-run-passive-scan"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if _, ok := got[metadataKey]; ok {
		t.Fatalf("metadata block should be stripped from payload")
	}
	if got["findings"].(float64) != 3 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if stored == nil || stored.Task != "run-passive-scan" || !stored.CreatedAt.Equal(now) {
		t.Fatalf("unexpected metadata: %+v", stored)
	}
	if !strings.HasPrefix(stored.Checksum, "sha256:") {
		t.Fatalf("expected checksum, got %q", stored.Checksum)
	}
	check, err := store.Check(TaskResultPath("004-run-passive-scan"), KindJSON)
	if err != nil || check.State != StateReady {
		t.Fatalf("expected ready record, got %+v (%v)", check, err)
	}
}

func TestStoreReadJSONWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks", "001-x", "result.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"success": true}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, meta, err := NewStore(dir).ReadJSON(TaskResultPath("001-x"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if meta != nil || got["success"] != true {
		t.Fatalf("unexpected read: %+v %+v", got, meta)
	}
}

func TestStoreRejectsEscapingPaths(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.WriteJSON("../outside.json", map[string]any{}, Metadata{ProcessID: "p", RunID: "r"})
	if err == nil {
		t.Fatalf("expected escape to be rejected")
	}
}

func TestStoreDocumentFrontMatter(t *testing.T) {
	store := NewStore(t.TempDir())
	meta := Metadata{ProcessID: "sca-dependency-management", RunID: "run-9", Notes: map[string]string{"outcome": "success"}}
	if err := store.WriteDocument("result.md", []byte("# Result\n"), meta); err != nil {
		t.Fatalf("write document: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(store.Root(), "result.md"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	parsed, body, err := ParseFrontMatter(data)
	if err != nil {
		t.Fatalf("parse frontmatter: %v", err)
	}
	if parsed.RecordID != "result.md" || parsed.Notes["outcome"] != "success" {
		t.Fatalf("unexpected metadata: %+v", parsed)
	}
	if string(body) != "# Result\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestParseFrontMatterErrors(t *testing.T) {
	if _, _, err := ParseFrontMatter([]byte("# no fence")); !errors.Is(err, ErrMissingFrontMatter) {
		t.Fatalf("expected missing frontmatter, got %v", err)
	}
	if _, _, err := ParseFrontMatter([]byte("---\nprocflow:\n  record: x\n")); !errors.Is(err, ErrMalformedFrontMatter) {
		t.Fatalf("expected malformed frontmatter, got %v", err)
	}
}

func TestCheckMissingRecord(t *testing.T) {
	check, err := NewStore(t.TempDir()).Check("nope.json", KindJSON)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if check.State != StateMissing {
		t.Fatalf("expected missing, got %s", check.State)
	}
}
