package dast

import (
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

func findings() *schema.Field {
	return schema.ArrayOf(schema.Object(
		schema.Req("id", schema.String()),
		schema.Req("title", schema.String()),
		schema.Req("severity", schema.Enum("critical", "high", "medium", "low", "info")),
		schema.Opt("url", schema.String()),
		schema.Opt("cwe", schema.String()),
		schema.Opt("evidence", schema.String()),
	))
}

func scanOutput(extra ...schema.Property) task.Option {
	props := []schema.Property{
		schema.Req("findingsCount", schema.Count()),
		schema.Req("criticalCount", schema.Count()),
		schema.Req("highCount", schema.Count()),
		schema.Opt("mediumCount", schema.Count()),
		schema.Opt("lowCount", schema.Count()),
		schema.Opt("findings", findings()),
	}
	return task.Output(append(props, extra...)...)
}

func appTitle(prefix string) task.Option {
	return task.TitleFunc(func(a task.Args) string {
		name, _ := a["applicationName"].(string)
		if name == "" {
			return prefix
		}
		return prefix + ": " + name
	})
}

var assessEnvironment = task.Define("assess-environment",
	appTitle("Assess DAST target environment"),
	task.Role("Application security engineer"),
	task.Objective("Assess the target application and hosting environment before dynamic testing"),
	task.Instructions(
		"Confirm the application URL is reachable and identify the environment type",
		"Fingerprint the technology stack, frameworks and web server",
		"Determine whether authentication is required and how sessions are managed",
		"Flag production targets and any rate limiting or WAF that affects scanning",
		"Recommend scan restrictions that keep testing safe for this environment",
	),
	task.Labels("dast", "environment"),
	task.Output(
		schema.Req("environmentType", schema.Enum("development", "staging", "production")),
		schema.Req("technologies", schema.Strings()),
		schema.Req("authenticationRequired", schema.Boolean()),
		schema.Req("riskLevel", schema.Enum("low", "medium", "high")),
		schema.Opt("wafDetected", schema.Boolean()),
		schema.Opt("recommendations", schema.Strings()),
	),
)

var setupTools = task.Define("setup-dast-tools",
	task.Title("Set up DAST tooling"),
	task.Role("Security tooling engineer"),
	task.Objective("Install and configure dynamic scanners for the assessed environment"),
	task.Instructions(
		"Select scanners suited to the detected stack (for example OWASP ZAP, Nuclei, Burp Suite)",
		"Configure authentication contexts and session handling",
		"Apply the requested scan depth and throttling limits",
		"Write scanner configuration files as artifacts",
	),
	task.Labels("dast", "setup"),
	task.Output(
		schema.Req("tools", schema.Strings()),
		schema.Req("configured", schema.Boolean()),
		schema.Opt("authenticationConfigured", schema.Boolean()),
	),
)

var defineScope = task.Define("define-scan-scope",
	task.Title("Define scan scope"),
	task.Role("Application security engineer"),
	task.Objective("Define the URLs, endpoints and policies in scope for dynamic testing"),
	task.Instructions(
		"Crawl the application to enumerate reachable URLs",
		"Exclude logout, destructive and third-party endpoints",
		"Map scan policies to the requested depth and severity threshold",
	),
	task.Labels("dast", "scope"),
	task.Output(
		schema.Req("urlsInScope", schema.Count()),
		schema.Req("excludedPaths", schema.Strings()),
		schema.Opt("scanPolicies", schema.Strings()),
	),
)

var passiveScan = task.Define("run-passive-scan",
	task.Title("Run passive scan"),
	task.Role("DAST operator"),
	task.Objective("Observe traffic passively and report issues without sending attack payloads"),
	task.Instructions(
		"Spider in-scope URLs and record responses",
		"Check security headers, cookie flags, TLS configuration and information disclosure",
		"Classify each finding by severity",
	),
	task.Labels("dast", "scan", "passive"),
	scanOutput(),
)

var activeScan = task.Define("run-active-scan",
	task.Title("Run active scan"),
	task.Role("DAST operator"),
	task.Objective("Actively probe in-scope endpoints for exploitable vulnerabilities"),
	task.Instructions(
		"Test for injection, XSS, SSRF, path traversal and authentication flaws",
		"Respect the exclusions and throttling defined in the scan scope",
		"Capture request and response evidence for every confirmed finding",
		"Classify each finding by severity and map it to a CWE",
	),
	task.Labels("dast", "scan", "active"),
	scanOutput(schema.Opt("requestsSent", schema.Count())),
)

var apiScan = task.Define("run-api-scan",
	task.Title("Run API scan"),
	task.Role("API security tester"),
	task.Objective("Test the application's API surface described by its specification"),
	task.Instructions(
		"Import the API specification or discover endpoints when none is provided",
		"Test authorization (BOLA, BFLA), mass assignment and input validation",
		"Check rate limiting and error handling on every endpoint",
	),
	task.Labels("dast", "scan", "api"),
	scanOutput(schema.Req("endpointsTested", schema.Count())),
)

var analyzeVulnerabilities = task.Define("analyze-vulnerabilities",
	task.Title("Analyze vulnerabilities"),
	task.Role("Vulnerability analyst"),
	task.Objective("Deduplicate, validate and score findings from every scan"),
	task.Instructions(
		"Merge findings across passive, active and API scans",
		"Remove false positives and duplicates",
		"Compute a 0-100 security score for the application",
	),
	task.Labels("dast", "analysis"),
	task.Output(
		schema.Req("totalVulnerabilities", schema.Count()),
		schema.Req("securityScore", schema.Score()),
		schema.Opt("uniqueVulnerabilities", schema.Count()),
		schema.Opt("falsePositives", schema.Count()),
		schema.Opt("bySeverity", schema.Object(
			schema.Opt("critical", schema.Count()),
			schema.Opt("high", schema.Count()),
			schema.Opt("medium", schema.Count()),
			schema.Opt("low", schema.Count()),
		)),
	),
)

var generateReports = task.Define("generate-reports",
	task.Title("Generate DAST reports"),
	task.Role("Security report writer"),
	task.Objective("Produce executive and technical reports of the DAST results"),
	task.Instructions(
		"Write an executive summary with the security score and key risks",
		"Write a technical report with reproduction steps and remediation guidance",
		"Export findings in SARIF for downstream tooling",
	),
	task.Labels("dast", "report"),
	task.Output(schema.Opt("executiveSummary", schema.String())),
)

var setupContinuous = task.Define("setup-continuous-scanning",
	task.Title("Set up continuous scanning"),
	task.Role("DevSecOps engineer"),
	task.Objective("Integrate DAST into the delivery pipeline"),
	task.Instructions(
		"Add a pipeline stage that runs a baseline scan on every deployment",
		"Schedule full scans and configure failure thresholds",
		"Document how results are triaged",
	),
	task.Labels("dast", "ci"),
	task.Output(
		schema.Req("pipelineIntegrated", schema.Boolean()),
		schema.Opt("schedule", schema.String()),
		schema.Opt("configurationPath", schema.String()),
	),
)

// Tasks lists every task kind the DAST process invokes.
var Tasks = []*task.Definition{
	assessEnvironment,
	setupTools,
	defineScope,
	passiveScan,
	activeScan,
	apiScan,
	analyzeVulnerabilities,
	generateReports,
	setupContinuous,
}
