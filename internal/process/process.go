// Package process sequences the phases of a workflow over an injected
// executor. A Process declares its options and task kinds and drives a Run;
// the Runner resolves input, owns the run state and shapes the Result.
package process

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kingrea/procflow/internal/task"
)

// Info describes a process's identity.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
	Category    string
	Aliases     []string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("process: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("process: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("process: version is required for %s", i.ID)
	}
	return nil
}

// Outcome is what a process reports when every phase succeeded. Outputs is the
// workflow-specific public projection.
type Outcome struct {
	Success bool
	Outputs map[string]any
}

// Process is one workflow.
type Process interface {
	Info() Info
	Options() Options
	Tasks() []*task.Definition
	// Run drives the phases. Returned errors become the run's Failure.
	Run(ctx context.Context, run *Run) (Outcome, error)
}

// Registry maintains known processes by id and alias.
type Registry struct {
	mu      sync.RWMutex
	procs   map[string]Process
	aliases map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: map[string]Process{}, aliases: map[string]string{}}
}

// Register installs a process. Returns an error if the id or an alias is taken.
func (r *Registry) Register(p Process) error {
	if p == nil {
		return fmt.Errorf("process: process is required")
	}
	info := p.Info()
	if err := info.Validate(); err != nil {
		return err
	}
	names := task.NewRegistry()
	if err := names.Register(p.Tasks()...); err != nil {
		return fmt.Errorf("process: %s: %w", info.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[info.ID]; exists {
		return fmt.Errorf("process: %s already registered", info.ID)
	}
	if _, exists := r.aliases[info.ID]; exists {
		return fmt.Errorf("process: %s already registered as an alias", info.ID)
	}
	for _, alias := range info.Aliases {
		if _, exists := r.procs[alias]; exists {
			return fmt.Errorf("process: alias %s collides with a process id", alias)
		}
		if _, exists := r.aliases[alias]; exists {
			return fmt.Errorf("process: alias %s already registered", alias)
		}
	}
	r.procs[info.ID] = p
	for _, alias := range info.Aliases {
		r.aliases[alias] = info.ID
	}
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(p Process) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Lookup resolves an id or alias.
func (r *Registry) Lookup(id string) (Process, error) {
	id = strings.TrimSpace(id)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[id]; ok {
		id = target
	}
	p, ok := r.procs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcess, id)
	}
	return p, nil
}

// IDs returns a sorted list of registered process identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.procs))
	for id := range r.procs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Infos returns process info sorted by id.
func (r *Registry) Infos() []Info {
	ids := r.IDs()
	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		p, err := r.Lookup(id)
		if err != nil {
			continue
		}
		out = append(out, p.Info())
	}
	return out
}
