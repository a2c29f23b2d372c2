// Package dataclass implements the data classification workflow.
package dataclass

import (
	"context"

	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/task"
)

// ID is the registered process id.
const ID = "data-classification"

const coverageTarget = 90

// Process classifies an organization's data assets.
type Process struct{}

// New returns the data classification process.
func New() *Process { return &Process{} }

// Info implements process.Process.
func (*Process) Info() process.Info {
	return process.Info{
		ID:          ID,
		Name:        "Data Classification",
		Description: "Inventory, discover and classify data assets, then define handling and DLP controls",
		Version:     "1.0.0",
		Category:    "compliance",
		Aliases:     []string{"dataclass"},
	}
}

// Options implements process.Process.
func (*Process) Options() process.Options {
	return process.Options{
		{Name: "organizationName", Required: true},
		{Name: "dataSources", Required: true, Description: "Systems to inventory"},
		{Name: "classificationLevels", Default: []any{"public", "internal", "confidential", "restricted"}},
		{Name: "regulatoryFrameworks", Default: []any{"gdpr"}},
		{Name: "enableAutomatedDiscovery", Default: true},
		{Name: "includeDlpPolicies", Default: true},
		{Name: "outputDir", Default: "data-classification-output"},
	}
}

// Tasks implements process.Process.
func (*Process) Tasks() []*task.Definition { return Tasks }

// Run implements process.Process.
func (*Process) Run(ctx context.Context, run *process.Run) (process.Outcome, error) {
	in := run.Input()
	sources := in.Strings("dataSources")
	base := task.Args{
		"organizationName": in.String("organizationName"),
		"outputDir":        in.String("outputDir"),
	}

	scheme, err := run.Task(ctx, defineScheme, base.With(task.Args{
		"classificationLevels": in.Strings("classificationLevels"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}
	run.Checkpoint(ctx, "Classification scheme defined", "Approve the classification levels?", map[string]any{
		"levels": scheme.Strings("levels"),
	})

	inventory, err := run.Task(ctx, inventoryAssets, base.With(task.Args{"dataSources": sources}))
	if err != nil {
		return process.Outcome{}, err
	}

	discovery := map[string]any{"enabled": false}
	classifyArgs := base.With(task.Args{
		"levels":            scheme.Strings("levels"),
		"assetsInventoried": inventory.Int("assetsInventoried"),
	})
	if in.Bool("enableAutomatedDiscovery") {
		results, err := run.Parallel(ctx, "automated-discovery",
			process.Call{Def: discoverStructured, Args: base.With(task.Args{"dataSources": sources})},
			process.Call{Def: discoverUnstructured, Args: base.With(task.Args{"dataSources": sources})},
		)
		if err != nil {
			return process.Outcome{}, err
		}
		structured, unstructured := results[0], results[1]
		discovery = map[string]any{
			"enabled":            true,
			"sensitiveFields":    structured.Int("sensitiveFields"),
			"sensitiveDocuments": unstructured.Int("sensitiveDocuments"),
		}
		classifyArgs = classifyArgs.With(task.Args{"discovery": discovery})
		run.Checkpoint(ctx, "Automated discovery complete", "Review discovered sensitive data?", discovery)
	} else {
		run.Skip("automated-discovery", "enableAutomatedDiscovery disabled")
	}

	classified, err := run.Task(ctx, classifyAssets, classifyArgs)
	if err != nil {
		return process.Outcome{}, err
	}
	coverage := classified.Float("coveragePercent")
	run.Checkpoint(ctx, "Data assets classified", "Accept the classification results?", map[string]any{
		"assetsClassified": classified.Int("assetsClassified"),
		"sensitiveAssets":  classified.Int("sensitiveAssets"),
		"coveragePercent":  coverage,
	})

	regulatory, err := run.Task(ctx, mapRegulatory, base.With(task.Args{
		"regulatoryFrameworks": in.Strings("regulatoryFrameworks"),
		"sensitiveAssets":      classified.Int("sensitiveAssets"),
	}))
	if err != nil {
		return process.Outcome{}, err
	}

	controls, err := run.Task(ctx, handlingControls, base.With(task.Args{"levels": scheme.Strings("levels")}))
	if err != nil {
		return process.Outcome{}, err
	}

	dlp := map[string]any{"enabled": false}
	if in.Bool("includeDlpPolicies") {
		res, err := run.Task(ctx, dlpPolicies, base.With(task.Args{"sensitiveAssets": classified.Int("sensitiveAssets")}))
		if err != nil {
			return process.Outcome{}, err
		}
		dlp = map[string]any{"enabled": true, "policiesCreated": res.Int("policiesCreated")}
	} else {
		run.Skip(dlpPolicies.Name(), "includeDlpPolicies disabled")
	}

	if _, err := run.Task(ctx, classificationReport, base.With(task.Args{
		"coveragePercent":    coverage,
		"requirementsMapped": regulatory.Int("requirementsMapped"),
	})); err != nil {
		return process.Outcome{}, err
	}

	run.Breakpoint(ctx, "Data classification complete", "Review the classification report", map[string]any{
		"coveragePercent": coverage,
		"sensitiveAssets": classified.Int("sensitiveAssets"),
	})

	return process.Outcome{
		Success: coverage >= coverageTarget,
		Outputs: map[string]any{
			"organizationName":   in.String("organizationName"),
			"dataSources":        sources,
			"assetsInventoried":  inventory.Int("assetsInventoried"),
			"assetsClassified":   classified.Int("assetsClassified"),
			"sensitiveAssets":    classified.Int("sensitiveAssets"),
			"coveragePercent":    coverage,
			"requirementsMapped": regulatory.Int("requirementsMapped"),
			"controlsDefined":    controls.Int("controlsDefined"),
			"discovery":          discovery,
			"dlpPolicies":        dlp,
		},
	}, nil
}
