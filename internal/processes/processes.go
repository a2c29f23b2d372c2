// Package processes wires the built-in compliance and security workflows.
package processes

import (
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/processes/dast"
	"github.com/kingrea/procflow/internal/processes/dataclass"
	"github.com/kingrea/procflow/internal/processes/iacsecurity"
	"github.com/kingrea/procflow/internal/processes/iso27001"
	"github.com/kingrea/procflow/internal/processes/pcidss"
	"github.com/kingrea/procflow/internal/processes/sca"
	"github.com/kingrea/procflow/internal/processes/secpolicy"
)

// Builtins returns a fresh instance of every built-in process.
func Builtins() []process.Process {
	return []process.Process{
		dast.New(),
		pcidss.New(),
		iso27001.New(),
		dataclass.New(),
		iacsecurity.New(),
		sca.New(),
		secpolicy.New(),
	}
}

// RegisterBuiltins installs all of the built-in processes into the provided
// registry.
func RegisterBuiltins(reg *process.Registry) error {
	if reg == nil {
		return nil
	}
	for _, p := range Builtins() {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in processes.
func NewRegistry() *process.Registry {
	reg := process.NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		panic(err)
	}
	return reg
}
