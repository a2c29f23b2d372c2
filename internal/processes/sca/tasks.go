package sca

import (
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

func vulnerabilityScan(name, title, source string) *task.Definition {
	return task.Define(name,
		task.Title(title),
		task.Role("Application security engineer"),
		task.Objective("Match the dependency inventory against "+source),
		task.Instructions(
			"Match every direct and transitive dependency version",
			"Record CVE or advisory ids with severity and fixed versions",
		),
		task.Labels("sca", "vulnerabilities"),
		task.Output(
			schema.Req("vulnerableDependencies", schema.Count()),
			schema.Req("criticalVulnerabilities", schema.Count()),
			schema.Opt("highVulnerabilities", schema.Count()),
			schema.Opt("advisories", schema.Strings()),
		),
	)
}

var inventoryDependencies = task.Define("inventory-dependencies",
	task.TitleFunc(func(a task.Args) string {
		path, _ := a["projectPath"].(string)
		return "Inventory dependencies of " + path
	}),
	task.Role("Software supply chain engineer"),
	task.Objective("Resolve the full dependency tree for each package manager"),
	task.Instructions(
		"Read manifests and lock files for each package manager",
		"Separate direct, transitive and development dependencies",
	),
	task.Labels("sca", "inventory"),
	task.Output(
		schema.Req("totalDependencies", schema.Count()),
		schema.Opt("directDependencies", schema.Count()),
		schema.Opt("transitiveDependencies", schema.Count()),
	),
)

var generateSbom = task.Define("generate-sbom",
	task.Title("Generate SBOM"),
	task.Role("Software supply chain engineer"),
	task.Objective("Produce a software bill of materials for the project"),
	task.Instructions(
		"Emit the SBOM in the requested format",
		"Include package URLs, versions, hashes and licenses",
	),
	task.Labels("sca", "sbom"),
	task.Output(
		schema.Req("format", schema.Enum("cyclonedx", "spdx")),
		schema.Req("components", schema.Count()),
	),
)

var scanVulnerabilityDatabases = vulnerabilityScan("scan-vulnerability-databases",
	"Scan vulnerability databases", "NVD and OSV")

var scanSecurityAdvisories = vulnerabilityScan("scan-security-advisories",
	"Scan security advisories", "GitHub and ecosystem security advisories")

var analyzeLicenses = task.Define("analyze-licenses",
	task.Title("Analyze dependency licenses"),
	task.Role("Open source compliance analyst"),
	task.Objective("Check every dependency license against the license policy"),
	task.Instructions(
		"Identify the license of each dependency",
		"Flag denied licenses and licenses missing from the allow list",
	),
	task.Labels("sca", "licenses"),
	task.Output(
		schema.Req("licenseViolations", schema.Count()),
		schema.Opt("unknownLicenses", schema.Count()),
		schema.Opt("violations", schema.Strings()),
	),
)

var assessReachability = task.Define("assess-reachability",
	task.Title("Assess vulnerability reachability"),
	task.Role("Application security engineer"),
	task.Objective("Determine whether vulnerable code paths are reachable from the application"),
	task.Instructions(
		"Trace call paths from application code to vulnerable functions",
		"Mark each vulnerability reachable, unreachable or unknown",
	),
	task.Labels("sca", "reachability"),
	task.Output(
		schema.Req("reachableVulnerabilities", schema.Count()),
	),
)

var prioritizeRemediation = task.Define("prioritize-remediation",
	task.Title("Prioritize remediation"),
	task.Role("Security lead"),
	task.Objective("Rank vulnerabilities by severity, reachability and exploit maturity"),
	task.Instructions(
		"Apply the severity threshold",
		"Compute an overall dependency risk score from 0 to 100",
	),
	task.Labels("sca", "triage"),
	task.Output(
		schema.Req("riskScore", schema.Score()),
		schema.Opt("prioritized", schema.Count()),
	),
)

var planUpdates = task.Define("plan-dependency-updates",
	task.Title("Plan dependency updates"),
	task.Role("Software engineer"),
	task.Objective("Plan version upgrades that remove prioritized vulnerabilities"),
	task.Instructions(
		"Choose the smallest safe version for each upgrade",
		"Flag upgrades with breaking changes",
	),
	task.Labels("sca", "updates"),
	task.Output(
		schema.Req("updatesPlanned", schema.Count()),
		schema.Opt("breakingUpdates", schema.Count()),
	),
)

var applyUpdates = task.Define("apply-dependency-updates",
	task.Title("Apply dependency updates"),
	task.Role("Software engineer"),
	task.Objective("Apply the non-breaking planned upgrades and run the test suite"),
	task.Instructions(
		"Update manifests and lock files",
		"Run tests and revert upgrades that fail",
	),
	task.Labels("sca", "updates"),
	task.Output(
		schema.Req("updatesApplied", schema.Count()),
		schema.Opt("updatesReverted", schema.Count()),
	),
)

var setupMonitoring = task.Define("setup-dependency-monitoring",
	task.Title("Set up dependency monitoring"),
	task.Role("DevSecOps engineer"),
	task.Objective("Configure continuous dependency scanning and alerting"),
	task.Instructions(
		"Configure scheduled scans and pull request checks",
		"Route alerts to the owning team",
	),
	task.Labels("sca", "monitoring"),
	task.Output(
		schema.Req("configured", schema.Boolean()),
		schema.Opt("schedule", schema.String()),
	),
)

var scaReport = task.Define("generate-sca-report",
	task.Title("Generate SCA report"),
	task.Role("Security lead"),
	task.Objective("Summarize dependency risk for engineering leadership"),
	task.Instructions(
		"Summarize vulnerabilities, license violations and planned updates",
	),
	task.Labels("sca", "report"),
	task.Output(schema.Opt("summary", schema.String())),
)

// Tasks lists every task kind the SCA process invokes.
var Tasks = []*task.Definition{
	inventoryDependencies,
	generateSbom,
	scanVulnerabilityDatabases,
	scanSecurityAdvisories,
	analyzeLicenses,
	assessReachability,
	prioritizeRemediation,
	planUpdates,
	applyUpdates,
	setupMonitoring,
	scaReport,
}
