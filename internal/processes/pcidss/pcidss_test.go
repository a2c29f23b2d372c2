package pcidss

import (
	"context"
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

func TestLevelOneDefaultsToPenetrationTestAndRoc(t *testing.T) {
	fake := executortest.New()
	res := execute(t, fake, map[string]any{"organizationName": "Acme Payments", "merchantLevel": "level-1"})

	require.Nil(t, res.Error)
	assert.Equal(t, []string{
		"define-cde-scope",
		"assess-network-segmentation",
		"evaluate-requirements",
		"assess-vulnerability-management",
		"perform-penetration-test",
		"perform-gap-analysis",
		"create-remediation-plan",
		"generate-roc",
		"generate-aoc",
	}, fake.Names())
	assert.Equal(t, "roc", res.Outputs["reportType"])
	assert.Equal(t, true, res.Outputs["penetrationTest"].(map[string]any)["performed"])
}

func TestLevelFourDefaultsToSaqWithoutPenetrationTest(t *testing.T) {
	fake := executortest.New().Respond("complete-saq", task.Result{"saqType": "A-EP", "questionsAnswered": 139})
	res := execute(t, fake, map[string]any{"organizationName": "Corner Shop"})

	require.Nil(t, res.Error)
	assert.False(t, fake.Called("perform-penetration-test"))
	assert.False(t, fake.Called("generate-roc"))
	assert.True(t, fake.Called("complete-saq"))
	assert.Equal(t, "saq", res.Outputs["reportType"])
	assert.Equal(t, "A-EP", res.Outputs["saqType"])
	assert.Equal(t, "level-4", res.Outputs["merchantLevel"])
}

func TestExplicitOverridesBeatMerchantLevelDefaults(t *testing.T) {
	fake := executortest.New()
	res := execute(t, fake, map[string]any{
		"organizationName": "Corner Shop",
		"merchantLevel":    "level-4",
		"penetrationTest":  true,
	})
	require.Nil(t, res.Error)
	assert.True(t, fake.Called("perform-penetration-test"))
	assert.False(t, fake.Called("generate-roc"))

	fake = executortest.New()
	res = execute(t, fake, map[string]any{
		"organizationName": "Acme Payments",
		"merchantLevel":    "level-2",
		"generateRoc":      false,
	})
	require.Nil(t, res.Error)
	assert.True(t, fake.Called("perform-penetration-test"))
	assert.True(t, fake.Called("complete-saq"))
}

func TestOptionalReportsSkippable(t *testing.T) {
	fake := executortest.New()
	res := execute(t, fake, map[string]any{
		"organizationName":   "Corner Shop",
		"generateAoc":        false,
		"includeGapAnalysis": false,
	})
	require.Nil(t, res.Error)
	assert.False(t, fake.Called("generate-aoc"))
	assert.False(t, fake.Called("perform-gap-analysis"))
	assert.Equal(t, false, res.Outputs["aocGenerated"])
}

func TestComplianceStatus(t *testing.T) {
	cases := []struct {
		name     string
		reqs     task.Result
		gaps     task.Result
		pentest  task.Result
		expected string
	}{
		{"all met", task.Result{"requirementsNotMet": 0, "complianceScore": 100}, nil, nil, StatusCompliant},
		{"critical pentest finding", task.Result{"requirementsNotMet": 0, "complianceScore": 95}, nil, task.Result{"criticalFindings": 1}, StatusPartiallyCompliant},
		{"unmet requirements", task.Result{"requirementsNotMet": 2, "complianceScore": 82}, task.Result{"criticalGaps": 0}, nil, StatusPartiallyCompliant},
		{"low score", task.Result{"requirementsNotMet": 5, "complianceScore": 55}, task.Result{"criticalGaps": 3}, nil, StatusNonCompliant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, complianceStatus(tc.reqs, tc.gaps, tc.pentest))
		})
	}
}

func TestNonCompliantRunIsUnsuccessful(t *testing.T) {
	fake := executortest.New().Respond("evaluate-requirements", task.Result{
		"requirementsMet":    6,
		"requirementsNotMet": 6,
		"complianceScore":    48,
	})
	res := execute(t, fake, map[string]any{"organizationName": "Acme"})
	require.Nil(t, res.Error)
	assert.Equal(t, StatusNonCompliant, res.Outputs["complianceStatus"])
	assert.False(t, res.Success)
}

func TestMissingOrganizationFailsFast(t *testing.T) {
	fake := executortest.New()
	res := execute(t, fake, map[string]any{"merchantLevel": "level-1"})
	require.NotNil(t, res.Error)
	assert.Equal(t, process.KindMissingInput, res.Error.Kind)
	assert.Empty(t, fake.Calls())
}

func TestInvalidMerchantLevelRejected(t *testing.T) {
	res := execute(t, executortest.New(), map[string]any{"organizationName": "Acme", "merchantLevel": "level-9"})
	require.NotNil(t, res.Error)
	assert.Equal(t, process.KindInvalidInput, res.Error.Kind)
}
