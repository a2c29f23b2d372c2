// Package gate carries checkpoint and breakpoint notifications to external
// reviewers. Gates are advisory: delivering one never blocks a run and a
// delivery failure never changes its outcome.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/procflow/internal/artifact"
	"github.com/kingrea/procflow/internal/logbook"
)

// Kind distinguishes informational checkpoints from approval breakpoints.
type Kind string

const (
	KindCheckpoint Kind = "checkpoint"
	KindBreakpoint Kind = "breakpoint"
)

// Context is the reviewer-facing snapshot attached to a request.
type Context struct {
	RunID     string            `json:"runId"`
	ProcessID string            `json:"processId"`
	Phase     string            `json:"phase,omitempty"`
	Summary   map[string]any    `json:"summary,omitempty"`
	Files     []artifact.File   `json:"files"`
	Inline    map[string]string `json:"inline,omitempty"`
}

// Request is one checkpoint or breakpoint.
type Request struct {
	Kind     Kind    `json:"kind"`
	Title    string  `json:"title"`
	Question string  `json:"question,omitempty"`
	Message  string  `json:"message,omitempty"`
	Context  Context `json:"context"`
}

// Text returns the question, falling back to the message.
func (r Request) Text() string {
	if strings.TrimSpace(r.Question) != "" {
		return r.Question
	}
	return r.Message
}

// Notifier delivers gate requests.
type Notifier interface {
	Notify(ctx context.Context, req Request) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, req Request) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Discard drops every request.
var Discard Notifier = NotifierFunc(func(context.Context, Request) error { return nil })

// Multi fans a request out to every notifier and joins their errors.
func Multi(notifiers ...Notifier) Notifier {
	list := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}
	return NotifierFunc(func(ctx context.Context, req Request) error {
		var errs []error
		for _, n := range list {
			if err := n.Notify(ctx, req); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// LogbookNotifier records gates in a run logbook.
type LogbookNotifier struct {
	Book *logbook.Logbook
}

// Notify implements Notifier.
func (n LogbookNotifier) Notify(_ context.Context, req Request) error {
	if n.Book == nil {
		return nil
	}
	line := fmt.Sprintf("%s %q", req.Kind, req.Title)
	if text := req.Text(); text != "" {
		line += ": " + text
	}
	if summary := formatSummary(req.Context.Summary); summary != "" {
		line += " [" + summary + "]"
	}
	if len(req.Context.Files) > 0 {
		line += fmt.Sprintf(" (%d files)", len(req.Context.Files))
	}
	n.Book.Info("%s", line)
	return nil
}

func formatSummary(summary map[string]any) string {
	if len(summary) == 0 {
		return ""
	}
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, summary[k]))
	}
	return strings.Join(parts, " ")
}
