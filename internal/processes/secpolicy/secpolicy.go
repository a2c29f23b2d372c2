// Package secpolicy implements the security policy authoring workflow.
package secpolicy

import (
	"context"

	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

// ID is the registered process id.
const ID = "security-policy-authoring"

const (
	StatusPendingApproval = "pending-approval"
	StatusNotRequired     = "not-required"
)

const coverageTarget = 80

// Process authors an organization's security policy set.
type Process struct{}

// New returns the policy authoring process.
func New() *Process { return &Process{} }

// Info implements process.Process.
func (*Process) Info() process.Info {
	return process.Info{
		ID:          ID,
		Name:        "Security Policy Authoring",
		Description: "Draft, map, review and prepare approval of an organization's security policies",
		Version:     "1.0.0",
		Category:    "governance",
		Aliases:     []string{"secpolicy"},
	}
}

// Options implements process.Process.
func (*Process) Options() process.Options {
	return process.Options{
		{Name: "organizationName", Required: true},
		{Name: "policyTypes", Default: []any{
			"information-security", "acceptable-use", "access-control", "incident-response", "data-protection",
		}},
		{Name: "frameworks", Default: []any{"iso27001", "nist-csf"}},
		{Name: "industry", Default: "technology"},
		{Name: "includeProcedures", Default: true},
		{Name: "approvalWorkflow", Default: true},
		{Name: "outputDir", Default: "security-policies"},
	}
}

// Tasks implements process.Process.
func (*Process) Tasks() []*task.Definition { return Tasks }

// Run implements process.Process.
func (*Process) Run(ctx context.Context, run *process.Run) (process.Outcome, error) {
	in := run.Input()
	base := task.Args{
		"organizationName": in.String("organizationName"),
		"outputDir":        in.String("outputDir"),
	}

	landscape, err := run.Task(ctx, assessLandscape, base.With(task.Args{
		"industry":   in.String("industry"),
		"frameworks": in.Strings("frameworks"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	framework, err := run.Task(ctx, defineFramework, base.With(task.Args{
		"policyTypes":    in.Strings("policyTypes"),
		"gapsIdentified": landscape.Int("gapsIdentified"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Policy framework defined", "Approve the policy hierarchy?", map[string]any{
		"policyTypes": framework.Strings("policyTypes"),
	})

	drafts, err := run.Task(ctx, draftPolicies, base.With(task.Args{
		"policyTypes": framework.Strings("policyTypes"),
		"industry":    in.String("industry"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	procedures := 0
	if in.Bool("includeProcedures") {
		res, err := run.Task(ctx, developProcedures, base.With(task.Args{"policiesCreated": drafts.Int("policiesCreated")}))
		if err != nil {
			return process.Outcome{}, err
		}
		procedures = res.Int("proceduresCreated")
	} else {
		run.Skip(developProcedures.Name(), "includeProcedures disabled")
	}

	mapping, err := run.Task(ctx, mapControls, base.With(task.Args{"frameworks": in.Strings("frameworks")}))
	if err != nil {
		return process.Outcome{}, err
	}
	coverage := mapping.Float("frameworkCoverage")
	run.Checkpoint(ctx, "Framework mapping complete", "Proceed to stakeholder review?", map[string]any{
		"frameworkCoverage": coverage,
		"unmappedControls":  mapping.Strings("unmappedControls"),
	})

	review, err := run.Task(ctx, stakeholderReview, base.With(task.Args{"policiesCreated": drafts.Int("policiesCreated")}))
	if err != nil {
		return process.Outcome{}, err
	}

	status := StatusNotRequired
	if in.Bool("approvalWorkflow") {
		pkg, err := run.Task(ctx, approvalPackage, base.With(task.Args{"openComments": review.Int("openComments")}))
		if err != nil {
			return process.Outcome{}, err
		}
		status = StatusPendingApproval
		run.Breakpoint(ctx, "Policy approval required", "Approve the policy package for publication", map[string]any{
			"approvers":     pkg.Strings("approvers"),
			"effectiveDate": pkg.String("effectiveDate"),
			"openComments":  review.Int("openComments"),
		})
	} else {
		run.Skip(approvalPackage.Name(), "approvalWorkflow disabled")
	}

	comms, err := run.Task(ctx, communicationPlan, base.With(task.Args{"approvalStatus": status}))
	if err != nil {
		return process.Outcome{}, err
	}

	upkeep, err := run.Task(ctx, maintenance, base.With(task.Args{"policyTypes": framework.Strings("policyTypes")}))
	if err != nil {
		return process.Outcome{}, err
	}

	return process.Outcome{
		Success: coverage >= coverageTarget,
		Outputs: map[string]any{
			"organizationName":   in.String("organizationName"),
			"policiesCreated":    drafts.Int("policiesCreated"),
			"proceduresCreated":  procedures,
			"frameworkCoverage":  coverage,
			"approvalStatus":     status,
			"openReviewComments": review.Int("openComments"),
			"audiences":          comms.Strings("audiences"),
			"reviewCycleMonths":  upkeep.Int("reviewCycleMonths"),
		},
	}, nil
}
