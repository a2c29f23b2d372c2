package processes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/procflow/internal/executor/executortest"
	"github.com/kingrea/procflow/internal/process"
)

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{
		"dast-scanning",
		"data-classification",
		"iac-security-review",
		"iso27001-implementation",
		"pci-dss-assessment",
		"sca-dependency-management",
		"security-policy-authoring",
	}, reg.IDs())

	for _, alias := range []string{"dast", "pcidss", "iso27001", "dataclass", "iac", "sca", "secpolicy"} {
		_, err := reg.Lookup(alias)
		assert.NoError(t, err, alias)
	}
}

func TestRegisterBuiltinsTwiceFails(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, RegisterBuiltins(reg))
	assert.NoError(t, RegisterBuiltins(nil))
}

func TestTaskSchemasAreValid(t *testing.T) {
	for _, p := range Builtins() {
		for _, def := range p.Tasks() {
			_, err := def.Schema().JSONSchema().Resolve(nil)
			assert.NoError(t, err, "%s/%s", p.Info().ID, def.Name())
		}
	}
}

// Every built-in process completes against executor defaults once its
// required inputs are present.
func TestBuiltinsRunWithDefaults(t *testing.T) {
	inputs := map[string]map[string]any{
		"dast-scanning":             {"applicationUrl": "https://staging.example.com"},
		"pci-dss-assessment":        {"organizationName": "Acme"},
		"iso27001-implementation":   {"organizationName": "Acme"},
		"data-classification":       {"organizationName": "Acme", "dataSources": []any{"crm"}},
		"iac-security-review":       {"repositoryPath": "./infra"},
		"sca-dependency-management": {"projectPath": "./app"},
		"security-policy-authoring": {"organizationName": "Acme"},
	}
	reg := NewRegistry()
	for _, id := range reg.IDs() {
		t.Run(id, func(t *testing.T) {
			input, ok := inputs[id]
			require.True(t, ok, "no sample input for %s", id)
			fake := executortest.New()
			res := process.NewRunner(reg, process.WithExecutor(fake)).Execute(context.Background(), id, input)
			require.Nil(t, res.Error, "%+v", res.Error)
			assert.NotEmpty(t, res.Artifacts)
			assert.Equal(t, id, res.Metadata.ProcessID)
		})
	}
}
