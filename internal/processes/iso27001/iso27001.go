// Package iso27001 implements the ISO/IEC 27001 ISMS implementation workflow.
package iso27001

import (
	"context"

	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

// ID is the registered process id.
const ID = "iso27001-implementation"

const readinessThreshold = 80

// Process implements an ISMS ready for certification.
type Process struct{}

// New returns the ISO 27001 process.
func New() *Process { return &Process{} }

// Info implements process.Process.
func (*Process) Info() process.Info {
	return process.Info{
		ID:          ID,
		Name:        "ISO 27001 Implementation",
		Description: "ISMS scoping, risk assessment, Statement of Applicability, audit and certification readiness",
		Version:     "1.0.0",
		Category:    "compliance",
		Aliases:     []string{"iso27001"},
	}
}

// Options implements process.Process.
func (*Process) Options() process.Options {
	return process.Options{
		{Name: "organizationName", Required: true},
		{Name: "ismsScope", Description: "Initial scope statement"},
		{Name: "riskMethodology", Default: "asset-based", Enum: []string{"asset-based", "scenario-based"}},
		{Name: "includeGapAnalysis", Default: true},
		{Name: "includeAnnexAControls", Default: true},
		{Name: "internalAuditEnabled", Default: true},
		{Name: "targetCertificationDate"},
		{Name: "outputDir", Default: "iso27001-output"},
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

	scope, err := run.Task(ctx, defineScope, base.With(task.Args{"ismsScope": in.String("ismsScope")}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "ISMS scope defined", "Approve the ISMS scope?", map[string]any{
		"assetsInScope": scope.Int("assetsInScope"),
	})

	var gaps task.Result
	if in.Bool("includeGapAnalysis") {
		gaps, err = run.Task(ctx, gapAnalysis, base.With(task.Args{"scopeStatement": scope.String("scopeStatement")}))
		if err != nil {
			return process.Outcome{}, err
		}
		run.Checkpoint(ctx, "Gap analysis complete", "Proceed to risk assessment?", map[string]any{
			"gapsIdentified": gaps.Int("gapsIdentified"),
			"maturityScore":  gaps.Float("maturityScore"),
		})
	} else {
		run.Skip(gapAnalysis.Name(), "includeGapAnalysis disabled")
	}

	risks, err := run.Task(ctx, riskAssessment, base.With(task.Args{
		"riskMethodology": in.String("riskMethodology"),
		"assetsInScope":   scope.Int("assetsInScope"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Risk assessment complete", "Review the risk register?", map[string]any{
		"risksIdentified": risks.Int("risksIdentified"),
		"highRisks":       risks.Int("highRisks"),
	})

	soa, err := run.Task(ctx, statementOfApplicability, base.With(task.Args{
		"includeAnnexAControls": in.Bool("includeAnnexAControls"),
		"risksIdentified":       risks.Int("risksIdentified"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	if _, err := run.Task(ctx, treatmentPlan, base.With(task.Args{
		"highRisks":          risks.Int("highRisks"),
		"controlsApplicable": soa.Int("controlsApplicable"),
	})); err != nil {
		return process.Outcome{}, err
	}

	policies, err := run.Task(ctx, developPolicies, base.With(task.Args{"controlsApplicable": soa.Int("controlsApplicable")}))
	if err != nil {
		return process.Outcome{}, err
	}

	controls, err := run.Task(ctx, implementControls, base.With(task.Args{"controlsApplicable": soa.Int("controlsApplicable")}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Controls implemented", "Continue to awareness training?", map[string]any{
		"controlsImplemented":   controls.Int("controlsImplemented"),
		"implementationPercent": controls.Float("implementationPercent"),
	})

	if _, err := run.Task(ctx, awarenessTraining, base.With(task.Args{"policiesCreated": policies.Int("policiesCreated")})); err != nil {
		return process.Outcome{}, err
	}

	var audit task.Result
	if in.Bool("internalAuditEnabled") {
		audit, err = run.Task(ctx, internalAudit, base)
		if err != nil {
			return process.Outcome{}, err
		}
		run.Checkpoint(ctx, "Internal audit complete", "Review audit nonconformities?", map[string]any{
			"majorNonconformities": audit.Int("majorNonconformities"),
			"minorNonconformities": audit.Int("minorNonconformities"),
		})
	} else {
		run.Skip(internalAudit.Name(), "internalAuditEnabled disabled")
	}

	if _, err := run.Task(ctx, managementReview, base.With(task.Args{
		"majorNonconformities": audit.Int("majorNonconformities"),
	})); err != nil {
		return process.Outcome{}, err
	}

	readiness, err := run.Task(ctx, certificationReadiness, base.With(task.Args{
		"targetCertificationDate": in.String("targetCertificationDate"),
		"implementationPercent":   controls.Float("implementationPercent"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	score := readiness.Float("readinessScore")
	major := audit.Int("majorNonconformities")
	ready := score >= readinessThreshold && major == 0
	run.Breakpoint(ctx, "Certification readiness assessed", "Review readiness before booking the certification audit", map[string]any{
		"readinessScore":       score,
		"majorNonconformities": major,
		"certificationReady":   ready,
	})

	return process.Outcome{
		Success: ready,
		Outputs: map[string]any{
			"organizationName":     in.String("organizationName"),
			"readinessScore":       score,
			"risksIdentified":      risks.Int("risksIdentified"),
			"controlsApplicable":   soa.Int("controlsApplicable"),
			"controlsImplemented":  controls.Int("controlsImplemented"),
			"policiesCreated":      policies.Int("policiesCreated"),
			"majorNonconformities": major,
			"certificationReady":   ready,
			"blockers":             readiness.Strings("blockers"),
			"gapAnalysis":          map[string]any{"performed": gaps != nil, "gapsIdentified": gaps.Int("gapsIdentified")},
			"internalAudit":        map[string]any{"performed": audit != nil, "minorNonconformities": audit.Int("minorNonconformities")},
		},
	}, nil
}
