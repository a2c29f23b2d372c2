package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kingrea/procflow/internal/process"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	statusStyles = map[string]lipgloss.Style{
		"succeeded":    lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787")),
		"unsuccessful": lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C14E")),
		"failed":       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		"running":      lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
	}
)

func styleStatus(status string) string {
	if style, ok := statusStyles[status]; ok {
		return style.Render(status)
	}
	return mutedStyle.Render(status)
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		String()
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// printResult renders a run result for humans: status line, outputs, phases
// and artifacts.
func printResult(w io.Writer, res process.Result, runsDir string) {
	status := string(res.Status())
	fmt.Fprintf(w, "%s %s  %s  %s\n",
		headingStyle.Render(res.Metadata.ProcessID),
		mutedStyle.Render(res.Metadata.RunID),
		styleStatus(status),
		mutedStyle.Render(formatDuration(res.Duration)))
	if res.Error != nil {
		fmt.Fprintf(w, "\n%s %s\n", statusStyles["failed"].Render("error:"), res.Error.Error())
	}
	if len(res.Outputs) > 0 {
		keys := make([]string, 0, len(res.Outputs))
		for k := range res.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "\n%s\n", headingStyle.Render("Outputs"))
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, compact(res.Outputs[k]))
		}
	}
	if len(res.Phases) > 0 {
		rows := make([][]string, 0, len(res.Phases))
		for _, phase := range res.Phases {
			detail := phase.Group
			if phase.Error != "" {
				detail = phase.Error
			} else if phase.Reason != "" {
				detail = phase.Reason
			}
			rows = append(rows, []string{phase.Name, string(phase.Status), formatDuration(phase.Duration()), detail})
		}
		fmt.Fprintf(w, "\n%s\n%s\n", headingStyle.Render("Phases"), renderTable([]string{"PHASE", "STATUS", "DURATION", "DETAIL"}, rows))
	}
	if len(res.Artifacts) > 0 {
		fmt.Fprintf(w, "\n%s\n", headingStyle.Render("Artifacts"))
		for _, a := range res.Artifacts {
			label := a.Label
			if label == "" {
				label = a.Format
			}
			fmt.Fprintf(w, "  %s %s\n", a.Path, mutedStyle.Render(label))
		}
	}
	if runsDir != "" && res.Metadata.RunID != "" {
		fmt.Fprintf(w, "\n%s\n", mutedStyle.Render("run directory: "+runsDir+"/"+res.Metadata.RunID))
	}
}

func compact(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	text := string(data)
	if len(text) > 120 {
		text = text[:117] + "..."
	}
	return strings.TrimSpace(text)
}
