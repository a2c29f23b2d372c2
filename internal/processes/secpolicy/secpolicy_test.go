package secpolicy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/procflow/internal/executor/executortest"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

func execute(t *testing.T, fake *executortest.Fake, input map[string]any) process.Result {
	t.Helper()
	reg := process.NewRegistry()
	require.NoError(t, reg.Register(New()))
	return process.NewRunner(reg, process.WithExecutor(fake)).Execute(context.Background(), ID, input)
}

func TestApprovalWorkflowEmitsBreakpoint(t *testing.T) {
	fake := executortest.New().
		Respond("map-framework-controls", task.Result{"frameworkCoverage": 86}).
		Respond("conduct-stakeholder-review", task.Result{"commentsReceived": 12, "openComments": 2}).
		Respond("prepare-approval-package", task.Result{"approvers": []any{"CISO", "CEO"}})
	res := execute(t, fake, map[string]any{"organizationName": "Initech"})

	require.Nil(t, res.Error)
	assert.Equal(t, []string{
		"assess-policy-landscape",
		"define-policy-framework",
		"draft-policies",
		"develop-procedures",
		"map-framework-controls",
		"conduct-stakeholder-review",
		"prepare-approval-package",
		"create-communication-plan",
		"define-policy-maintenance",
	}, fake.Names())
	assert.Equal(t, StatusPendingApproval, res.Outputs["approvalStatus"])
	assert.Equal(t, 2, res.Outputs["openReviewComments"])
	assert.True(t, res.Success)

	var breakpoints []gate.Request
	for _, g := range fake.Gates() {
		if g.Kind == gate.KindBreakpoint {
			breakpoints = append(breakpoints, g)
		}
	}
	require.Len(t, breakpoints, 1)
	assert.Equal(t, "prepare-approval-package", breakpoints[0].Context.Phase)
	assert.Equal(t, []string{"CISO", "CEO"}, breakpoints[0].Context.Summary["approvers"])
}

func TestApprovalNotRequired(t *testing.T) {
	fake := executortest.New().Respond("map-framework-controls", task.Result{"frameworkCoverage": 80})
	res := execute(t, fake, map[string]any{"organizationName": "Initech", "approvalWorkflow": false, "includeProcedures": false})

	require.Nil(t, res.Error)
	assert.False(t, fake.Called("prepare-approval-package"))
	assert.False(t, fake.Called("develop-procedures"))
	assert.Equal(t, StatusNotRequired, res.Outputs["approvalStatus"])
	assert.Equal(t, 0, res.Outputs["proceduresCreated"])
	assert.True(t, res.Success)
	for _, g := range fake.Gates() {
		assert.NotEqual(t, gate.KindBreakpoint, g.Kind)
	}
}

func TestLowCoverageIsUnsuccessful(t *testing.T) {
	fake := executortest.New().Respond("map-framework-controls", task.Result{"frameworkCoverage": 64})
	res := execute(t, fake, map[string]any{"organizationName": "Initech"})
	require.Nil(t, res.Error)
	assert.False(t, res.Success)
}

func TestPolicyTypesDefault(t *testing.T) {
	fake := executortest.New()
	execute(t, fake, map[string]any{"organizationName": "Initech"})
	call, ok := fake.CallFor("define-policy-framework")
	require.True(t, ok)
	assert.Len(t, call.Args["policyTypes"], 5)
}
