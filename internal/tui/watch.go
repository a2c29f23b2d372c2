// Package tui renders a live feed of checkpoints and breakpoints served by the
// gate bridge.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/gatebridge"
)

const (
	// DefaultPollInterval is how often the bridge is asked for new gates.
	DefaultPollInterval = time.Second
	maxEntries          = 200
	fetchTimeout        = 3 * time.Second
)

// GateSource lists journal entries newer than since.
type GateSource interface {
	Gates(ctx context.Context, since int64) (gatebridge.GatesResponse, error)
}

type gatesMsg struct {
	resp gatebridge.GatesResponse
	err  error
}

type pollMsg struct{}

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	checkpointStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	breakpointStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2C14E"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	selectedStyle   = lipgloss.NewStyle().Bold(true)
	boxStyle        = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Watch is the bubbletea model behind `procflow watch`.
type Watch struct {
	source   GateSource
	target   string
	interval time.Duration

	since    int64
	entries  []gate.Entry
	selected int
	follow   bool
	err      string
	spinner  spinner.Model
	width    int
}

// NewWatch creates a model that polls source every interval. target is only
// shown in the header.
func NewWatch(source GateSource, target string, interval time.Duration) *Watch {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle
	return &Watch{source: source, target: target, interval: interval, follow: true, spinner: sp}
}

// Init starts the spinner and the first fetch.
func (w *Watch) Init() tea.Cmd {
	return tea.Batch(w.spinner.Tick, w.fetch())
}

// Update handles bridge responses, polling ticks and key presses.
func (w *Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		return w, nil

	case gatesMsg:
		if msg.err != nil {
			w.err = msg.err.Error()
		} else {
			w.err = ""
			w.apply(msg.resp)
		}
		return w, w.schedule()

	case pollMsg:
		return w, w.fetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return w, tea.Quit
		case key.Matches(msg, keys.Up):
			if w.selected > 0 {
				w.selected--
			}
			w.follow = false
		case key.Matches(msg, keys.Down):
			if w.selected < len(w.entries)-1 {
				w.selected++
			}
			w.follow = w.selected == len(w.entries)-1
		}
		return w, nil
	}
	return w, nil
}

func (w *Watch) apply(resp gatebridge.GatesResponse) {
	// A journal restart resets sequence numbers.
	if resp.Last < w.since {
		w.entries = nil
		w.selected = 0
	}
	w.entries = append(w.entries, resp.Entries...)
	if over := len(w.entries) - maxEntries; over > 0 {
		w.entries = append([]gate.Entry(nil), w.entries[over:]...)
		w.selected = max(0, w.selected-over)
	}
	w.since = resp.Last
	if w.follow && len(w.entries) > 0 {
		w.selected = len(w.entries) - 1
	}
}

func (w *Watch) fetch() tea.Cmd {
	source := w.source
	since := w.since
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		resp, err := source.Gates(ctx, since)
		return gatesMsg{resp: resp, err: err}
	}
}

func (w *Watch) schedule() tea.Cmd {
	return tea.Tick(w.interval, func(time.Time) tea.Msg { return pollMsg{} })
}

// View renders the feed and the selected gate.
func (w *Watch) View() string {
	header := titleStyle.Render("PROCFLOW GATES") + " " + mutedStyle.Render(w.target)
	status := w.spinner.View() + mutedStyle.Render(fmt.Sprintf(" watching · %d gate(s)", len(w.entries)))
	if w.err != "" {
		status = errorStyle.Render("bridge unreachable: " + w.err)
	}
	sections := []string{header, status, ""}
	if len(w.entries) == 0 {
		sections = append(sections, mutedStyle.Render("No gates yet. Start a run with --bridge to stream checkpoints here."))
	} else {
		sections = append(sections, w.renderList(), w.renderDetail(w.entries[w.selected]))
	}
	sections = append(sections, mutedStyle.Render(fmt.Sprintf("%s · %s · %s",
		keys.Up.Help().Key+" "+keys.Up.Help().Desc,
		keys.Down.Help().Key+" "+keys.Down.Help().Desc,
		keys.Quit.Help().Key+" "+keys.Quit.Help().Desc)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (w *Watch) renderList() string {
	lines := make([]string, 0, len(w.entries))
	for i, entry := range w.entries {
		req := entry.Request
		line := fmt.Sprintf("%s %s  %-10s %s  %s",
			cursor(i == w.selected),
			entry.At.Local().Format("15:04:05"),
			kindLabel(req.Kind),
			req.Title,
			mutedStyle.Render(req.Context.ProcessID+" "+shortID(req.Context.RunID)))
		if i == w.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (w *Watch) renderDetail(entry gate.Entry) string {
	req := entry.Request
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", kindLabel(req.Kind), req.Title)
	if text := strings.TrimSpace(req.Text()); text != "" {
		fmt.Fprintf(&b, "%s\n", text)
	}
	if req.Context.Phase != "" {
		fmt.Fprintf(&b, "phase: %s\n", req.Context.Phase)
	}
	if len(req.Context.Summary) > 0 {
		fields := make([]string, 0, len(req.Context.Summary))
		for k := range req.Context.Summary {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		for _, k := range fields {
			fmt.Fprintf(&b, "  %s: %v\n", k, req.Context.Summary[k])
		}
	}
	for _, f := range req.Context.Files {
		fmt.Fprintf(&b, "  file: %s\n", f.Path)
	}
	names := make([]string, 0, len(req.Context.Inline))
	for name := range req.Context.Inline {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  inline %s:\n%s\n", name, mutedStyle.Render(indent(req.Context.Inline[name])))
	}
	style := boxStyle
	if w.width > 4 {
		style = style.Width(w.width - 4)
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

func kindLabel(kind gate.Kind) string {
	if kind == gate.KindBreakpoint {
		return breakpointStyle.Render("BREAKPOINT")
	}
	return checkpointStyle.Render("checkpoint")
}

func cursor(selected bool) string {
	if selected {
		return "›"
	}
	return " "
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
