package process

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/procflow/internal/artifact"
)

// ReportName is the run summary document written next to state.json.
const ReportName = "result.md"

func writeReport(dir string, info RunInfo, res Result) error {
	outcome := string(res.Status())
	meta := artifact.Metadata{
		ProcessID: info.ProcessID,
		Version:   info.Version,
		RunID:     info.RunID,
		CreatedAt: res.Metadata.Timestamp,
		Notes:     map[string]string{"outcome": outcome},
	}
	if res.Error != nil {
		meta.Notes["failure_kind"] = string(res.Error.Kind)
	}
	return artifact.NewStore(dir).WriteDocument(ReportName, renderReport(info, res, outcome), meta)
}

func renderReport(info RunInfo, res Result, outcome string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s run %s\n\n", info.ProcessID, info.RunID)
	fmt.Fprintf(&b, "Outcome: **%s** in %s\n\n", outcome, res.Duration)
	if res.Error != nil {
		fmt.Fprintf(&b, "Failure: %s\n\n", res.Error.Error())
	}
	if len(res.Outputs) > 0 {
		b.WriteString("## Outputs\n\n")
		keys := make([]string, 0, len(res.Outputs))
		for k := range res.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, renderValue(res.Outputs[k]))
		}
		b.WriteString("\n")
	}
	if len(res.Phases) > 0 {
		b.WriteString("## Phases\n\n| phase | status | effect | artifacts |\n|---|---|---|---|\n")
		for _, p := range res.Phases {
			status := string(p.Status)
			if p.Reason != "" {
				status += " (" + p.Reason + ")"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", p.Name, status, p.EffectID, p.Artifacts)
		}
		b.WriteString("\n")
	}
	if len(res.Artifacts) > 0 {
		b.WriteString("## Artifacts\n\n")
		for _, a := range res.Artifacts {
			label := a.Label
			if label == "" {
				label = a.Path
			}
			fmt.Fprintf(&b, "- [%s](%s) (%s)\n", label, a.Path, a.Format)
		}
	}
	return []byte(b.String())
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
