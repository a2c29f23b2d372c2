// Package sca implements software composition analysis and dependency
// management.
package sca

import (
	"context"

	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

// ID is the registered process id.
const ID = "sca-dependency-management"

// ScanGroup names the parallel vulnerability scan group.
const ScanGroup = "vulnerability-scans"

// Process inventories and scans project dependencies.
type Process struct{}

// New returns the SCA process.
func New() *Process { return &Process{} }

// Info implements process.Process.
func (*Process) Info() process.Info {
	return process.Info{
		ID:          ID,
		Name:        "SCA Dependency Management",
		Description: "Dependency inventory, SBOM, vulnerability and license analysis with update planning",
		Version:     "1.0.0",
		Category:    "security",
		Aliases:     []string{"sca"},
	}
}

// Options implements process.Process.
func (*Process) Options() process.Options {
	return process.Options{
		{Name: "projectPath", Required: true},
		{Name: "packageManagers", Default: []any{"npm"}},
		{Name: "severityThreshold", Default: "high", Enum: []string{"critical", "high", "medium", "low"}},
		{Name: "licensePolicy", Default: map[string]any{
			"allowed": []any{"MIT", "Apache-2.0", "BSD-2-Clause", "BSD-3-Clause", "ISC"},
			"denied":  []any{"GPL-3.0", "AGPL-3.0"},
		}},
		{Name: "generateSbom", Default: true},
		{Name: "sbomFormat", Default: "cyclonedx", Enum: []string{"cyclonedx", "spdx"}},
		{Name: "autoUpdate", Default: false},
		{Name: "continuousMonitoring", Default: false},
		{Name: "outputDir", Default: "sca-output"},
	}
}

// Tasks implements process.Process.
func (*Process) Tasks() []*task.Definition { return Tasks }

// Run implements process.Process.
func (*Process) Run(ctx context.Context, run *process.Run) (process.Outcome, error) {
	in := run.Input()
	base := task.Args{
		"projectPath": in.String("projectPath"),
		"outputDir":   in.String("outputDir"),
	}

	inventory, err := run.Task(ctx, inventoryDependencies, base.With(task.Args{
		"packageManagers": in.Strings("packageManagers"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	total := inventory.Int("totalDependencies")

	sbom := map[string]any{"generated": false}
	if in.Bool("generateSbom") {
		res, err := run.Task(ctx, generateSbom, base.With(task.Args{
			"format":            in.String("sbomFormat"),
			"totalDependencies": total,
		}))
		if err != nil {
			return process.Outcome{}, err
		}
		sbom = map[string]any{"generated": true, "format": res.String("format"), "components": res.Int("components")}
	} else {
		run.Skip(generateSbom.Name(), "generateSbom disabled")
	}

	scanArgs := base.With(task.Args{
		"packageManagers":   in.Strings("packageManagers"),
		"totalDependencies": total,
	})
	scans, err := run.Parallel(ctx, ScanGroup,
		process.Call{Def: scanVulnerabilityDatabases, Args: scanArgs},
		process.Call{Def: scanSecurityAdvisories, Args: scanArgs},
	)
	if err != nil {
		return process.Outcome{}, err
	}
	// both tools see the same tree, so the larger count approximates the union
	vulnerable, critical := 0, 0
	for _, s := range scans {
		vulnerable = max(vulnerable, s.Int("vulnerableDependencies"))
		critical += s.Int("criticalVulnerabilities")
	}
	run.Checkpoint(ctx, "Vulnerability scans complete", "Continue with license analysis?", map[string]any{
		"vulnerableDependencies":  vulnerable,
		"criticalVulnerabilities": critical,
	})

	licenses, err := run.Task(ctx, analyzeLicenses, base.With(task.Args{
		"licensePolicy": in.Map("licensePolicy"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	violations := licenses.Int("licenseViolations")
	if violations > 0 {
		run.Checkpoint(ctx, "License violations found", "Review the dependencies that violate the license policy?", map[string]any{
			"licenseViolations": violations,
			"violations":        licenses.Strings("violations"),
		})
	}

	reach, err := run.Task(ctx, assessReachability, base.With(task.Args{"vulnerableDependencies": vulnerable}))
	if err != nil {
		return process.Outcome{}, err
	}

	priority, err := run.Task(ctx, prioritizeRemediation, base.With(task.Args{
		"severityThreshold":        in.String("severityThreshold"),
		"criticalVulnerabilities":  critical,
		"reachableVulnerabilities": reach.Int("reachableVulnerabilities"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	plan, err := run.Task(ctx, planUpdates, base.With(task.Args{"prioritized": priority.Int("prioritized")}))
	if err != nil {
		return process.Outcome{}, err
	}

	updates := map[string]any{"planned": plan.Int("updatesPlanned"), "applied": 0}
	if in.Bool("autoUpdate") {
		res, err := run.Task(ctx, applyUpdates, base.With(task.Args{"updatesPlanned": plan.Int("updatesPlanned")}))
		if err != nil {
			return process.Outcome{}, err
		}
		updates["applied"] = res.Int("updatesApplied")
	} else {
		run.Skip(applyUpdates.Name(), "autoUpdate disabled")
	}

	monitoring := map[string]any{"enabled": false}
	if in.Bool("continuousMonitoring") {
		res, err := run.Task(ctx, setupMonitoring, base.With(task.Args{"packageManagers": in.Strings("packageManagers")}))
		if err != nil {
			return process.Outcome{}, err
		}
		monitoring = map[string]any{"enabled": res.Bool("configured"), "schedule": res.String("schedule")}
	} else {
		run.Skip(setupMonitoring.Name(), "continuousMonitoring disabled")
	}

	if _, err := run.Task(ctx, scaReport, base.With(task.Args{
		"vulnerableDependencies": vulnerable,
		"licenseViolations":      violations,
		"riskScore":              priority.Float("riskScore"),
	})); err != nil {
		return process.Outcome{}, err
	}

	run.Breakpoint(ctx, "SCA complete", "Review the dependency report", map[string]any{
		"criticalVulnerabilities": critical,
		"licenseViolations":       violations,
	})

	return process.Outcome{
		Success: critical == 0 && violations == 0,
		Outputs: map[string]any{
			"projectPath":             in.String("projectPath"),
			"totalDependencies":       total,
			"vulnerableDependencies":  vulnerable,
			"criticalVulnerabilities": critical,
			"licenseViolations":       violations,
			"riskScore":               priority.Float("riskScore"),
			"sbom":                    sbom,
			"updates":                 updates,
			"monitoring":              monitoring,
		},
	}, nil
}
