// Package artifact holds the references that processes accumulate while they
// run and the on-disk store backing the per-task audit trail. An Artifact only
// points at a generated file; the orchestrator never reads its contents.
package artifact

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Artifact references a file produced by a phase.
type Artifact struct {
	Path     string `json:"path" yaml:"path"`
	Format   string `json:"format" yaml:"format"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Validate ensures the reference is usable.
func (a Artifact) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return fmt.Errorf("artifact: path is required")
	}
	if strings.TrimSpace(a.Format) == "" {
		return fmt.Errorf("artifact: format is required for %s", a.Path)
	}
	return nil
}

// File is the reviewer-facing projection of an artifact.
type File struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Label  string `json:"label,omitempty"`
}

// File projects the artifact onto path/format/label.
func (a Artifact) File() File {
	return File{Path: a.Path, Format: a.Format, Label: a.Label}
}

// Decode converts a loosely typed `artifacts` value (as found in task results)
// into Artifact records. Entries without a path are dropped.
func Decode(value any) []Artifact {
	switch v := value.(type) {
	case nil:
		return nil
	case []Artifact:
		return append([]Artifact{}, v...)
	case []any:
		out := make([]Artifact, 0, len(v))
		for _, item := range v {
			raw, ok := item.(map[string]any)
			if !ok {
				continue
			}
			a := Artifact{
				Path:     stringValue(raw["path"]),
				Format:   stringValue(raw["format"]),
				Label:    stringValue(raw["label"]),
				Language: stringValue(raw["language"]),
			}
			if a.Path == "" {
				continue
			}
			out = append(out, a)
		}
		return out
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var generic []any
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil
		}
		return Decode(generic)
	}
}

// Kind captures the serialization format of a stored record.
type Kind string

const (
	// KindDocument is a markdown document with YAML front matter.
	KindDocument Kind = "document"
	// KindJSON is a JSON object enriched with a _procflow metadata block.
	KindJSON Kind = "json"
)

// Metadata captures provenance stored alongside task records and reports.
// The same field names are used in JSON records and document front matter.
type Metadata struct {
	RecordID  string            `json:"record" yaml:"record"`
	ProcessID string            `json:"process" yaml:"process"`
	Version   string            `json:"version,omitempty" yaml:"version,omitempty"`
	RunID     string            `json:"run" yaml:"run"`
	Task      string            `json:"task,omitempty" yaml:"task,omitempty"`
	Inputs    []string          `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	CreatedAt time.Time         `json:"created" yaml:"created"`
	Checksum  string            `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	Notes     map[string]string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// WithDefaults fills the record id and timestamps.
func (m Metadata) WithDefaults(recordID string, now time.Time) Metadata {
	clone := m
	if clone.RecordID == "" {
		clone.RecordID = recordID
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now.UTC()
	} else {
		clone.CreatedAt = clone.CreatedAt.UTC()
	}
	return clone
}

// Validate ensures metadata carries the fields readers rely on.
func (m Metadata) Validate() error {
	if m.RecordID == "" {
		return fmt.Errorf("artifact: record id is required")
	}
	if m.ProcessID == "" {
		return fmt.Errorf("artifact: process id is required for %s", m.RecordID)
	}
	if m.RunID == "" {
		return fmt.Errorf("artifact: run id is required for %s", m.RecordID)
	}
	return nil
}

// checkStored is Validate plus the fields only a written record has.
func (m Metadata) checkStored() error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("artifact: %s has no created timestamp", m.RecordID)
	}
	return nil
}

// State captures the readiness of a stored record.
type State string

const (
	StateMissing State = "missing"
	StateReady   State = "ready"
	StateInvalid State = "invalid"
	StateError   State = "error"
)

// CheckResult captures Store.Check results.
type CheckResult struct {
	Path     string
	Kind     Kind
	State    State
	Metadata *Metadata
	Err      error
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
