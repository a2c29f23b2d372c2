// Package pcidss implements the PCI DSS assessment workflow.
package pcidss

import (
	"context"

	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

// ID is the registered process id.
const ID = "pci-dss-assessment"

// Compliance statuses reported by the assessment.
const (
	StatusCompliant          = "compliant"
	StatusPartiallyCompliant = "partially-compliant"
	StatusNonCompliant       = "non-compliant"
)

// Scores below this are non-compliant regardless of individual requirements.
const partialComplianceFloor = 70

// Process assesses a merchant against PCI DSS.
type Process struct{}

// New returns the PCI DSS process.
func New() *Process { return &Process{} }

// Info implements process.Process.
func (*Process) Info() process.Info {
	return process.Info{
		ID:          ID,
		Name:        "PCI DSS Assessment",
		Description: "PCI DSS v4.0 scoping, requirement evaluation and ROC or SAQ reporting",
		Version:     "1.0.0",
		Category:    "compliance",
		Aliases:     []string{"pcidss", "pci-dss"},
	}
}

// largeMerchant reports whether the merchant level requires a QSA-led
// assessment.
func largeMerchant(in process.Input) bool {
	level := in.String("merchantLevel")
	return level == "level-1" || level == "level-2"
}

// Options implements process.Process.
func (*Process) Options() process.Options {
	return process.Options{
		{Name: "organizationName", Required: true},
		{Name: "merchantLevel", Default: "level-4", Enum: []string{"level-1", "level-2", "level-3", "level-4"}},
		{Name: "cdeDescription", Description: "Free-text description of the cardholder data environment"},
		{Name: "penetrationTest", DefaultFunc: func(in process.Input) any { return largeMerchant(in) },
			Description: "Defaults to true for level-1 and level-2 merchants"},
		{Name: "generateRoc", DefaultFunc: func(in process.Input) any { return largeMerchant(in) },
			Description: "Report on Compliance instead of a SAQ; defaults to true for level-1 and level-2 merchants"},
		{Name: "generateAoc", Default: true},
		{Name: "includeGapAnalysis", Default: true},
		{Name: "outputDir", Default: "pci-dss-output"},
	}
}

// Tasks implements process.Process.
func (*Process) Tasks() []*task.Definition { return Tasks }

// Run implements process.Process.
func (*Process) Run(ctx context.Context, run *process.Run) (process.Outcome, error) {
	in := run.Input()
	base := task.Args{
		"organizationName": in.String("organizationName"),
		"merchantLevel":    in.String("merchantLevel"),
		"outputDir":        in.String("outputDir"),
	}

	scope, err := run.Task(ctx, defineScope, base.With(task.Args{"cdeDescription": in.String("cdeDescription")}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "CDE scope defined", "Is the cardholder data environment scope accurate?", map[string]any{
		"systemsInScope":      scope.Int("systemsInScope"),
		"cardholderDataFlows": scope.Int("cardholderDataFlows"),
	})

	segmentation, err := run.Task(ctx, assessSegmentation, base.With(task.Args{"systemsInScope": scope.Int("systemsInScope")}))
	if err != nil {
		return process.Outcome{}, err
	}

	requirements, err := run.Task(ctx, evaluateRequirements, base.With(task.Args{
		"segmentationEffective": segmentation.Bool("segmentationEffective"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Requirements evaluated", "Review requirement results?", map[string]any{
		"requirementsMet":    requirements.Int("requirementsMet"),
		"requirementsNotMet": requirements.Int("requirementsNotMet"),
		"complianceScore":    requirements.Float("complianceScore"),
	})

	vulns, err := run.Task(ctx, assessVulnerabilities, base)
	if err != nil {
		return process.Outcome{}, err
	}

	var pentest task.Result
	if in.Bool("penetrationTest") {
		pentest, err = run.Task(ctx, penetrationTest, base.With(task.Args{
			"segmentationEffective": segmentation.Bool("segmentationEffective"),
		}))
		if err != nil {
			return process.Outcome{}, err
		}
		run.Checkpoint(ctx, "Penetration test complete", "Review penetration test findings?", map[string]any{
			"criticalFindings":       pentest.Int("criticalFindings"),
			"segmentationTestPassed": pentest.Bool("segmentationTestPassed"),
		})
	} else {
		run.Skip(penetrationTest.Name(), "penetration test not required for "+in.String("merchantLevel"))
	}

	var gaps task.Result
	if in.Bool("includeGapAnalysis") {
		gaps, err = run.Task(ctx, gapAnalysis, base.With(task.Args{
			"requirementsNotMet": requirements.Int("requirementsNotMet"),
		}))
		if err != nil {
			return process.Outcome{}, err
		}
	} else {
		run.Skip(gapAnalysis.Name(), "includeGapAnalysis disabled")
	}

	remediation, err := run.Task(ctx, remediationPlan, base.With(task.Args{
		"totalGaps":               gaps.Int("totalGaps"),
		"criticalVulnerabilities": vulns.Int("criticalVulnerabilities"),
		"pentestCritical":         pentest.Int("criticalFindings"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	status := complianceStatus(requirements, gaps, pentest)
	reportType := "saq"
	saqType := ""
	if in.Bool("generateRoc") {
		reportType = "roc"
		if _, err := run.Task(ctx, generateRoc, base.With(task.Args{"complianceStatus": status})); err != nil {
			return process.Outcome{}, err
		}
		run.Skip(completeSaq.Name(), "report on compliance generated")
	} else {
		saq, err := run.Task(ctx, completeSaq, base.With(task.Args{"complianceStatus": status}))
		if err != nil {
			return process.Outcome{}, err
		}
		saqType = saq.String("saqType")
		run.Skip(generateRoc.Name(), "self-assessment questionnaire completed")
	}

	aocGenerated := false
	if in.Bool("generateAoc") {
		if _, err := run.Task(ctx, generateAoc, base.With(task.Args{
			"complianceStatus": status,
			"reportType":       reportType,
		})); err != nil {
			return process.Outcome{}, err
		}
		aocGenerated = true
	} else {
		run.Skip(generateAoc.Name(), "generateAoc disabled")
	}

	run.Breakpoint(ctx, "PCI DSS assessment complete", "Review the compliance status and reports", map[string]any{
		"complianceStatus": status,
		"complianceScore":  requirements.Float("complianceScore"),
		"reportType":       reportType,
	})

	outputs := map[string]any{
		"organizationName":   in.String("organizationName"),
		"merchantLevel":      in.String("merchantLevel"),
		"complianceScore":    requirements.Float("complianceScore"),
		"requirementsMet":    requirements.Int("requirementsMet"),
		"requirementsNotMet": requirements.Int("requirementsNotMet"),
		"criticalGaps":       gaps.Int("criticalGaps"),
		"complianceStatus":   status,
		"reportType":         reportType,
		"remediationItems":   remediation.Int("remediationItems"),
		"aocGenerated":       aocGenerated,
		"penetrationTest": map[string]any{
			"performed":        in.Bool("penetrationTest"),
			"criticalFindings": pentest.Int("criticalFindings"),
		},
	}
	if saqType != "" {
		outputs["saqType"] = saqType
	}
	return process.Outcome{Success: status != StatusNonCompliant, Outputs: outputs}, nil
}

// complianceStatus is compliant when every requirement is met with no critical
// gap or exploitable finding, non-compliant below the partial floor, and
// partially compliant otherwise. Skipped phases contribute zero.
func complianceStatus(requirements, gaps, pentest task.Result) string {
	critical := gaps.Int("criticalGaps") + pentest.Int("criticalFindings")
	switch {
	case requirements.Int("requirementsNotMet") == 0 && critical == 0:
		return StatusCompliant
	case requirements.Float("complianceScore") < partialComplianceFloor:
		return StatusNonCompliant
	default:
		return StatusPartiallyCompliant
	}
}
