// Package dast implements the dynamic application security testing workflow.
package dast

import (
	"context"

	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

// ID is the registered process id.
const ID = "dast-scanning"

// Minimum security score for a passing run.
const passingScore = 70

// Process scans a running application.
type Process struct{}

// New returns the DAST process.
func New() *Process { return &Process{} }

// Info implements process.Process.
func (*Process) Info() process.Info {
	return process.Info{
		ID:          ID,
		Name:        "DAST Scanning",
		Description: "Dynamic application security testing with passive, active and API scans",
		Version:     "1.0.0",
		Category:    "security-testing",
		Aliases:     []string{"dast"},
	}
}

// Options implements process.Process.
func (*Process) Options() process.Options {
	return process.Options{
		{Name: "applicationUrl", Required: true, Description: "Base URL of the application under test"},
		{Name: "applicationName", Default: "Application"},
		{Name: "scanDepth", Default: "standard", Enum: []string{"quick", "standard", "deep"}},
		{Name: "severityThreshold", Default: "medium", Enum: []string{"low", "medium", "high", "critical"}},
		{Name: "authentication", Description: "Authentication configuration for authenticated scanning"},
		{Name: "apiSpecUrl", Description: "OpenAPI or GraphQL specification location"},
		{Name: "includeApiScan", Default: true},
		{Name: "continuousScanningEnabled", Default: false},
		{Name: "outputDir", Default: "dast-output"},
	}
}

// Tasks implements process.Process.
func (*Process) Tasks() []*task.Definition { return Tasks }

// Run implements process.Process.
func (*Process) Run(ctx context.Context, run *process.Run) (process.Outcome, error) {
	in := run.Input()
	base := task.Args{
		"applicationUrl":  in.String("applicationUrl"),
		"applicationName": in.String("applicationName"),
		"outputDir":       in.String("outputDir"),
	}

	env, err := run.Task(ctx, assessEnvironment, base.With(task.Args{"authentication": in.Value("authentication")}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Environment assessed", "Proceed with DAST tool setup?", map[string]any{
		"environmentType":        env.String("environmentType"),
		"riskLevel":              env.String("riskLevel"),
		"authenticationRequired": env.Bool("authenticationRequired"),
	})

	tools, err := run.Task(ctx, setupTools, base.With(task.Args{
		"scanDepth":      in.String("scanDepth"),
		"technologies":   env.Strings("technologies"),
		"authentication": in.Value("authentication"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	scope, err := run.Task(ctx, defineScope, base.With(task.Args{
		"scanDepth":         in.String("scanDepth"),
		"severityThreshold": in.String("severityThreshold"),
		"tools":             tools.Strings("tools"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Scan scope defined", "Start scanning the defined scope?", map[string]any{
		"tools":       tools.Strings("tools"),
		"urlsInScope": scope.Int("urlsInScope"),
		"excluded":    len(scope.Strings("excludedPaths")),
	})

	passive, err := run.Task(ctx, passiveScan, base.With(task.Args{"urlsInScope": scope.Int("urlsInScope")}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Passive scan complete", "Proceed with active scanning?", scanSummary(passive))

	active, err := run.Task(ctx, activeScan, base.With(task.Args{
		"scanDepth":     in.String("scanDepth"),
		"excludedPaths": scope.Strings("excludedPaths"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Active scan complete", "Review active scan findings?", scanSummary(active))

	var api task.Result
	if in.Bool("includeApiScan") {
		api, err = run.Task(ctx, apiScan, base.With(task.Args{"apiSpecUrl": in.String("apiSpecUrl")}))
		if err != nil {
			return process.Outcome{}, err
		}
		run.Checkpoint(ctx, "API scan complete", "Continue to vulnerability analysis?", scanSummary(api))
	} else {
		run.Skip(apiScan.Name(), "includeApiScan disabled")
	}

	analysis, err := run.Task(ctx, analyzeVulnerabilities, base.With(task.Args{
		"severityThreshold": in.String("severityThreshold"),
		"passiveFindings":   passive.Int("findingsCount"),
		"activeFindings":    active.Int("findingsCount"),
		"apiFindings":       api.Int("findingsCount"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	criticalIssues := active.Int("criticalCount") + api.Int("criticalCount")
	highIssues := active.Int("highCount") + api.Int("highCount")
	score := analysis.Float("securityScore")
	run.Checkpoint(ctx, "Vulnerability analysis complete", "Generate reports?", map[string]any{
		"totalVulnerabilities": analysis.Int("totalVulnerabilities"),
		"criticalIssues":       criticalIssues,
		"securityScore":        score,
	})

	if _, err := run.Task(ctx, generateReports, base.With(task.Args{
		"securityScore":        score,
		"totalVulnerabilities": analysis.Int("totalVulnerabilities"),
		"criticalIssues":       criticalIssues,
	})); err != nil {
		return process.Outcome{}, err
	}

	continuous := map[string]any{"enabled": false}
	if in.Bool("continuousScanningEnabled") {
		ci, err := run.Task(ctx, setupContinuous, base.With(task.Args{"tools": tools.Strings("tools")}))
		if err != nil {
			return process.Outcome{}, err
		}
		continuous = map[string]any{
			"enabled":            true,
			"pipelineIntegrated": ci.Bool("pipelineIntegrated"),
			"schedule":           ci.String("schedule"),
		}
	} else {
		run.Skip(setupContinuous.Name(), "continuousScanningEnabled disabled")
	}

	success := criticalIssues == 0 && score >= passingScore
	run.Breakpoint(ctx, "DAST scan complete", "Review the DAST results and reports", map[string]any{
		"vulnerabilitiesFound": analysis.Int("totalVulnerabilities"),
		"criticalIssues":       criticalIssues,
		"securityScore":        score,
		"success":              success,
	})

	return process.Outcome{
		Success: success,
		Outputs: map[string]any{
			"applicationUrl":       in.String("applicationUrl"),
			"scanDepth":            in.String("scanDepth"),
			"vulnerabilitiesFound": analysis.Int("totalVulnerabilities"),
			"criticalIssues":       criticalIssues,
			"highIssues":           highIssues,
			"securityScore":        score,
			"apiScan":              map[string]any{"enabled": in.Bool("includeApiScan"), "endpointsTested": api.Int("endpointsTested")},
			"continuousScanning":   continuous,
		},
	}, nil
}

func scanSummary(r task.Result) map[string]any {
	return map[string]any{
		"findings": r.Int("findingsCount"),
		"critical": r.Int("criticalCount"),
		"high":     r.Int("highCount"),
	}
}
