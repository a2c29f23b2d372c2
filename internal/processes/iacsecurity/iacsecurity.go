// Package iacsecurity implements the infrastructure-as-code security review.
package iacsecurity

import (
	"context"
	"encoding/json"

	"github.com/kingrea/procflow/internal/logbook"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

// ID is the registered process id.
const ID = "iac-security-review"

// ScanGroup names the parallel scanner group.
const ScanGroup = "security-scans"

// Process reviews Terraform, CloudFormation and Kubernetes sources.
type Process struct{}

// New returns the IaC security process.
func New() *Process { return &Process{} }

// Info implements process.Process.
func (*Process) Info() process.Info {
	return process.Info{
		ID:          ID,
		Name:        "IaC Security Review",
		Description: "Scan infrastructure-as-code for misconfiguration, exposure, IAM and secret issues",
		Version:     "1.0.0",
		Category:    "security",
		Aliases:     []string{"iac"},
	}
}

// Options implements process.Process.
func (*Process) Options() process.Options {
	return process.Options{
		{Name: "repositoryPath", Required: true},
		{Name: "iacFrameworks", Default: []any{"terraform"}},
		{Name: "cloudProviders", Default: []any{"aws"}},
		{Name: "complianceFrameworks", Default: []any{"cis"}},
		{Name: "severityThreshold", Default: "high", Enum: []string{"critical", "high", "medium", "low"}},
		{Name: "failOnCritical", Default: true},
		{Name: "generateFixes", Default: true},
		{Name: "outputDir", Default: "iac-security-output"},
	}
}

// Tasks implements process.Process.
func (*Process) Tasks() []*task.Definition { return Tasks }

// Run implements process.Process.
func (*Process) Run(ctx context.Context, run *process.Run) (process.Outcome, error) {
	in := run.Input()
	base := task.Args{
		"repositoryPath": in.String("repositoryPath"),
		"outputDir":      in.String("outputDir"),
	}

	files, err := run.Task(ctx, discoverFiles, base.With(task.Args{
		"iacFrameworks":  in.Strings("iacFrameworks"),
		"cloudProviders": in.Strings("cloudProviders"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	scanArgs := base.With(task.Args{
		"filesFound":     files.Int("filesFound"),
		"cloudProviders": in.Strings("cloudProviders"),
	})
	scans, err := run.Parallel(ctx, ScanGroup,
		process.Call{Def: scanMisconfigurations, Args: scanArgs},
		process.Call{Def: scanNetwork, Args: scanArgs},
		process.Call{Def: scanIAM, Args: scanArgs},
	)
	if err != nil {
		return process.Outcome{}, err
	}

	total, critical := 0, 0
	for _, s := range scans {
		total += s.Len("findings")
		critical += s.Int("criticalCount")
	}
	run.Checkpoint(ctx, "Security scans complete", "Continue with the secrets scan?", map[string]any{
		"totalFindings":    total,
		"criticalFindings": critical,
	})

	secrets, err := run.Task(ctx, scanSecrets, scanArgs)
	if err != nil {
		return process.Outcome{}, err
	}
	total += secrets.Len("findings")
	critical += secrets.Int("criticalCount")
	snippet, err := json.MarshalIndent(secrets.Slice("findings"), "", "  ")
	if err != nil {
		run.Log(logbook.LevelWarn, "secrets findings not embedded: %v", err)
		snippet = nil
	}
	run.Checkpoint(ctx, "Secrets scan complete", "Review the secrets found before remediation?", map[string]any{
		"secretsFound": secrets.Int("secretsFound"),
	}, process.Inline("secrets-scan", string(snippet)))

	compliance, err := run.Task(ctx, mapCompliance, base.With(task.Args{
		"complianceFrameworks": in.Strings("complianceFrameworks"),
		"totalFindings":        total,
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	priority, err := run.Task(ctx, prioritizeFindings, base.With(task.Args{
		"severityThreshold": in.String("severityThreshold"),
		"totalFindings":     total,
		"criticalFindings":  critical,
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Findings prioritized", "Proceed to remediation?", map[string]any{
		"riskScore":         priority.Float("riskScore"),
		"compliancePercent": compliance.Float("compliancePercent"),
	})

	fixes := map[string]any{"enabled": false}
	if in.Bool("generateFixes") {
		res, err := run.Task(ctx, generateFixes, base.With(task.Args{"severityThreshold": in.String("severityThreshold")}))
		if err != nil {
			return process.Outcome{}, err
		}
		fixes = map[string]any{"enabled": true, "fixesGenerated": res.Int("fixesGenerated")}
	} else {
		run.Skip(generateFixes.Name(), "generateFixes disabled")
	}

	guardrails, err := run.Task(ctx, policyGuardrails, base)
	if err != nil {
		return process.Outcome{}, err
	}

	if _, err := run.Task(ctx, securityReport, base.With(task.Args{
		"totalFindings":     total,
		"criticalFindings":  critical,
		"compliancePercent": compliance.Float("compliancePercent"),
	})); err != nil {
		return process.Outcome{}, err
	}

	passed := !(in.Bool("failOnCritical") && critical > 0)
	run.Breakpoint(ctx, "IaC security review complete", "Review the security report", map[string]any{
		"totalFindings":    total,
		"criticalFindings": critical,
		"passed":           passed,
	})

	return process.Outcome{
		Success: passed,
		Outputs: map[string]any{
			"repositoryPath":    in.String("repositoryPath"),
			"filesScanned":      files.Int("filesFound"),
			"totalFindings":     total,
			"criticalFindings":  critical,
			"secretsFound":      secrets.Int("secretsFound"),
			"riskScore":         priority.Float("riskScore"),
			"compliancePercent": compliance.Float("compliancePercent"),
			"guardrails":        guardrails.Int("policiesCreated"),
			"fixes":             fixes,
			"passed":            passed,
		},
	}, nil
}
