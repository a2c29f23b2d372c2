package iacsecurity

import (
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

// scanOutput is the common shape of every scanner result.
func scanOutput(extra ...schema.Property) task.Option {
	props := []schema.Property{
		schema.Req("findings", schema.ArrayOf(schema.Object(
			schema.Req("id", schema.String()),
			schema.Req("severity", schema.Enum("critical", "high", "medium", "low", "info")),
			schema.Opt("resource", schema.String()),
			schema.Opt("file", schema.String()),
			schema.Opt("description", schema.String()),
		))),
		schema.Req("criticalCount", schema.Count()),
		schema.Opt("highCount", schema.Count()),
	}
	return task.Output(append(props, extra...)...)
}

var discoverFiles = task.Define("discover-iac-files",
	task.TitleFunc(func(a task.Args) string {
		repo, _ := a["repositoryPath"].(string)
		return "Discover IaC files in " + repo
	}),
	task.Role("Cloud security engineer"),
	task.Objective("Locate every infrastructure-as-code file and classify it by framework"),
	task.Instructions(
		"Walk the repository and detect Terraform, CloudFormation, Kubernetes, Helm and Pulumi sources",
		"Record the cloud provider each file targets",
		"Skip vendored modules and generated plans",
	),
	task.Labels("iac", "discovery"),
	task.Output(
		schema.Req("filesFound", schema.Count()),
		schema.Opt("frameworks", schema.Strings()),
		schema.Opt("modules", schema.Count()),
	),
)

var scanMisconfigurations = task.Define("scan-misconfigurations",
	task.Title("Scan for misconfigurations"),
	task.Role("Cloud security engineer"),
	task.Objective("Detect insecure resource configuration such as unencrypted storage or disabled logging"),
	task.Instructions(
		"Run checkov and tfsec style rules for every framework",
		"Report each finding with its resource and file",
	),
	task.Labels("iac", "scan"),
	scanOutput(),
)

var scanNetwork = task.Define("scan-network-exposure",
	task.Title("Scan network exposure"),
	task.Role("Network security engineer"),
	task.Objective("Find security groups, load balancers and endpoints exposed to the internet"),
	task.Instructions(
		"Flag ingress from 0.0.0.0/0 on administrative ports",
		"Flag public buckets, databases and endpoints",
	),
	task.Labels("iac", "scan"),
	scanOutput(schema.Opt("publicEndpoints", schema.Count())),
)

var scanIAM = task.Define("scan-iam-policies",
	task.Title("Scan IAM policies"),
	task.Role("Identity security engineer"),
	task.Objective("Detect wildcard permissions and privilege escalation paths"),
	task.Instructions(
		"Flag Action or Resource wildcards on sensitive services",
		"Flag roles assumable by any principal",
	),
	task.Labels("iac", "scan"),
	scanOutput(schema.Opt("overprivilegedRoles", schema.Count())),
)

var scanSecrets = task.Define("scan-secrets",
	task.Title("Scan for hardcoded secrets"),
	task.Role("Secrets detection engineer"),
	task.Objective("Find credentials, keys and tokens committed in IaC sources and variables"),
	task.Instructions(
		"Scan tfvars, templates and values files for secret patterns",
		"Report the location and type of each secret",
	),
	task.Labels("iac", "scan", "secrets"),
	scanOutput(schema.Req("secretsFound", schema.Count())),
)

var mapCompliance = task.Define("map-compliance",
	task.Title("Map findings to compliance frameworks"),
	task.Role("Compliance analyst"),
	task.Objective("Map findings to controls in the selected compliance frameworks"),
	task.Instructions(
		"Map each finding to CIS, NIST, SOC 2 or PCI-DSS controls as requested",
		"Compute the share of controls without findings",
	),
	task.Labels("iac", "compliance"),
	task.Output(
		schema.Req("compliancePercent", schema.Score()),
		schema.Opt("controlsFailed", schema.Count()),
	),
)

var prioritizeFindings = task.Define("prioritize-findings",
	task.Title("Prioritize findings"),
	task.Role("Security lead"),
	task.Objective("Rank findings by exploitability, exposure and blast radius"),
	task.Instructions(
		"Drop findings below the severity threshold from the fix queue",
		"Compute an overall risk score from 0 to 100",
	),
	task.Labels("iac", "triage"),
	task.Output(
		schema.Req("riskScore", schema.Score()),
		schema.Opt("prioritized", schema.Count()),
	),
)

var generateFixes = task.Define("generate-fixes",
	task.Title("Generate remediation patches"),
	task.Role("Infrastructure engineer"),
	task.Objective("Write code fixes for prioritized findings"),
	task.Instructions(
		"Produce a minimal patch per finding",
		"Note any fix that changes runtime behavior",
	),
	task.Labels("iac", "remediation"),
	task.Output(schema.Req("fixesGenerated", schema.Count())),
)

var policyGuardrails = task.Define("create-policy-guardrails",
	task.Title("Create policy guardrails"),
	task.Role("Platform engineer"),
	task.Objective("Write policy-as-code rules that block the found classes of issue in CI"),
	task.Instructions(
		"Write OPA or Sentinel rules per finding class",
		"Describe where the rules run in the pipeline",
	),
	task.Labels("iac", "guardrails"),
	task.Output(schema.Req("policiesCreated", schema.Count())),
)

var securityReport = task.Define("generate-security-report",
	task.Title("Generate IaC security report"),
	task.Role("Security lead"),
	task.Objective("Summarize the review for engineering and compliance audiences"),
	task.Instructions(
		"Summarize findings by severity and category",
		"Include compliance mapping, fixes and guardrails",
	),
	task.Labels("iac", "report"),
	task.Output(schema.Opt("summary", schema.String())),
)

// Tasks lists every task kind the IaC review invokes.
var Tasks = []*task.Definition{
	discoverFiles,
	scanMisconfigurations,
	scanNetwork,
	scanIAM,
	scanSecrets,
	mapCompliance,
	prioritizeFindings,
	generateFixes,
	policyGuardrails,
	securityReport,
}
