package dataclass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/procflow/internal/executor/executortest"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

func execute(t *testing.T, fake *executortest.Fake, input map[string]any) process.Result {
	t.Helper()
	reg := process.NewRegistry()
	require.NoError(t, reg.Register(New()))
	return process.NewRunner(reg, process.WithExecutor(fake)).Execute(context.Background(), ID, input)
}

func validInput() map[string]any {
	return map[string]any{
		"organizationName": "Contoso",
		"dataSources":      []any{"postgres", "s3"},
	}
}

func TestFullPipeline(t *testing.T) {
	fake := executortest.New().
		Respond("inventory-data-assets", task.Result{"assetsInventoried": 40}).
		Respond("discover-structured-data", task.Result{"sensitiveFields": 12}).
		Respond("discover-unstructured-data", task.Result{"sensitiveDocuments": 7}).
		Respond("classify-data-assets", task.Result{"assetsClassified": 38, "sensitiveAssets": 9, "coveragePercent": 95}).
		Respond("create-dlp-policies", task.Result{"policiesCreated": 4})
	res := execute(t, fake, validInput())

	require.Nil(t, res.Error)
	assert.Equal(t, []string{
		"define-classification-scheme",
		"inventory-data-assets",
		"discover-structured-data",
		"discover-unstructured-data",
		"classify-data-assets",
		"map-regulatory-requirements",
		"define-handling-controls",
		"create-dlp-policies",
		"generate-classification-report",
	}, fake.Names())
	assert.True(t, res.Success)
	assert.Equal(t, 40, res.Outputs["assetsInventoried"])
	assert.Equal(t, map[string]any{"enabled": true, "policiesCreated": 4}, res.Outputs["dlpPolicies"])
	assert.Equal(t, map[string]any{"enabled": true, "sensitiveFields": 12, "sensitiveDocuments": 7}, res.Outputs["discovery"])

	scheme, ok := fake.CallFor("define-classification-scheme")
	require.True(t, ok)
	assert.Equal(t, []string{"public", "internal", "confidential", "restricted"}, scheme.Args["classificationLevels"])

	var group []string
	for _, p := range res.Phases {
		if p.Group == "automated-discovery" {
			group = append(group, p.Name)
		}
	}
	assert.Equal(t, []string{"discover-structured-data", "discover-unstructured-data"}, group)
}

func TestLowCoverageIsUnsuccessful(t *testing.T) {
	fake := executortest.New().Respond("classify-data-assets", task.Result{"coveragePercent": 89.5})
	res := execute(t, fake, validInput())
	require.Nil(t, res.Error)
	assert.False(t, res.Success)
	assert.Equal(t, process.RunStatusUnsuccessful, res.Status())
}

func TestDiscoveryAndDlpDisabled(t *testing.T) {
	fake := executortest.New().Respond("classify-data-assets", task.Result{"coveragePercent": 100})
	input := validInput()
	input["enableAutomatedDiscovery"] = false
	input["includeDlpPolicies"] = false
	res := execute(t, fake, input)

	require.Nil(t, res.Error)
	assert.False(t, fake.Called("discover-structured-data"))
	assert.False(t, fake.Called("create-dlp-policies"))
	assert.Equal(t, map[string]any{"enabled": false}, res.Outputs["dlpPolicies"])

	var skipped []string
	for _, p := range res.Phases {
		if p.Status == process.PhaseSkipped {
			skipped = append(skipped, p.Name)
		}
	}
	assert.Equal(t, []string{"automated-discovery", "create-dlp-policies"}, skipped)
}

func TestDiscoveryFailureStopsRun(t *testing.T) {
	fake := executortest.New().Fail("discover-unstructured-data", errors.New("bucket access denied"))
	res := execute(t, fake, validInput())

	require.NotNil(t, res.Error)
	assert.Equal(t, process.KindParallelFailed, res.Error.Kind)
	assert.Equal(t, "automated-discovery", res.Error.Phase)
	assert.False(t, fake.Called("classify-data-assets"))
	assert.Empty(t, res.Artifacts)
}

func TestEmptyDataSourcesRejected(t *testing.T) {
	fake := executortest.New()
	res := execute(t, fake, map[string]any{"organizationName": "Contoso", "dataSources": []any{}})
	require.NotNil(t, res.Error)
	assert.Equal(t, process.KindMissingInput, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "dataSources")
	assert.Empty(t, fake.Calls())
}
