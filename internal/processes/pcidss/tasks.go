package pcidss

import (
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

func orgTitle(prefix string) task.Option {
	return task.TitleFunc(func(a task.Args) string {
		if org, _ := a["organizationName"].(string); org != "" {
			return prefix + " for " + org
		}
		return prefix
	})
}

var defineScope = task.Define("define-cde-scope",
	orgTitle("Define cardholder data environment scope"),
	task.Role("PCI DSS QSA"),
	task.Objective("Identify every system, network and process that stores, processes or transmits cardholder data"),
	task.Instructions(
		"Map cardholder data flows from acquisition to disposal",
		"Inventory systems in the CDE and connected-to systems",
		"Identify scope reduction opportunities such as tokenization or segmentation",
	),
	task.Labels("pci-dss", "scope"),
	task.Output(
		schema.Req("systemsInScope", schema.Count()),
		schema.Req("cardholderDataFlows", schema.Count()),
		schema.Opt("networkSegments", schema.Count()),
		schema.Opt("scopeReductionOpportunities", schema.Strings()),
	),
)

var assessSegmentation = task.Define("assess-network-segmentation",
	task.Title("Assess network segmentation"),
	task.Role("Network security assessor"),
	task.Objective("Verify that segmentation controls isolate the CDE from out-of-scope networks"),
	task.Instructions(
		"Review firewall and router rule sets for CDE boundaries",
		"Identify paths from untrusted networks into the CDE",
		"Record segmentation weaknesses with evidence",
	),
	task.Labels("pci-dss", "network"),
	task.Output(
		schema.Req("segmentationEffective", schema.Boolean()),
		schema.Req("issues", schema.Count()),
	),
)

var evaluateRequirements = task.Define("evaluate-requirements",
	task.Title("Evaluate PCI DSS requirements"),
	task.Role("PCI DSS QSA"),
	task.Objective("Evaluate the twelve PCI DSS v4.0 requirements against collected evidence"),
	task.Instructions(
		"Assess each requirement and its sub-requirements",
		"Mark each requirement met, partially met, not met or not applicable",
		"Compute an overall compliance score from 0 to 100",
	),
	task.Labels("pci-dss", "requirements"),
	task.Output(
		schema.Req("requirementsMet", schema.Integer().Range(0, 12)),
		schema.Req("requirementsNotMet", schema.Integer().Range(0, 12)),
		schema.Req("complianceScore", schema.Score()),
		schema.Opt("requirements", schema.ArrayOf(schema.Object(
			schema.Req("id", schema.String()),
			schema.Req("status", schema.Enum("met", "partial", "not-met", "not-applicable")),
			schema.Opt("notes", schema.String()),
		))),
	),
)

var assessVulnerabilities = task.Define("assess-vulnerability-management",
	task.Title("Assess vulnerability management"),
	task.Role("Vulnerability management assessor"),
	task.Objective("Review ASV scans, internal scanning and patching against requirements 6 and 11"),
	task.Instructions(
		"Confirm quarterly external ASV scans passed",
		"Review internal vulnerability scan results and remediation timelines",
		"Check patch management and secure development practices",
	),
	task.Labels("pci-dss", "vulnerability"),
	task.Output(
		schema.Req("externalScanPassed", schema.Boolean()),
		schema.Req("criticalVulnerabilities", schema.Count()),
		schema.Opt("internalVulnerabilities", schema.Count()),
	),
)

var penetrationTest = task.Define("perform-penetration-test",
	task.Title("Perform penetration test"),
	task.Role("Penetration tester"),
	task.Objective("Perform internal, external and segmentation penetration testing per requirement 11.4"),
	task.Instructions(
		"Test the CDE perimeter and critical systems",
		"Validate segmentation controls from every out-of-scope network",
		"Report exploitable findings with severity",
	),
	task.Labels("pci-dss", "pentest"),
	task.Output(
		schema.Req("criticalFindings", schema.Count()),
		schema.Req("highFindings", schema.Count()),
		schema.Req("segmentationTestPassed", schema.Boolean()),
	),
)

var gapAnalysis = task.Define("perform-gap-analysis",
	task.Title("Perform PCI DSS gap analysis"),
	task.Role("Compliance analyst"),
	task.Objective("Identify gaps between current controls and PCI DSS requirements"),
	task.Instructions(
		"List every requirement not fully met with the missing control",
		"Rate each gap by risk to cardholder data",
	),
	task.Labels("pci-dss", "gap-analysis"),
	task.Output(
		schema.Req("totalGaps", schema.Count()),
		schema.Req("criticalGaps", schema.Count()),
		schema.Opt("gaps", schema.ArrayOf(schema.Object(
			schema.Req("requirement", schema.String()),
			schema.Req("severity", schema.Enum("critical", "high", "medium", "low")),
			schema.Opt("description", schema.String()),
		))),
	),
)

var remediationPlan = task.Define("create-remediation-plan",
	task.Title("Create remediation plan"),
	task.Role("Compliance program manager"),
	task.Objective("Plan remediation for every unmet requirement and finding"),
	task.Instructions(
		"Prioritize remediation by risk and assessment deadlines",
		"Assign owners and target dates",
		"Identify compensating controls where remediation is not feasible",
	),
	task.Labels("pci-dss", "remediation"),
	task.Output(
		schema.Req("remediationItems", schema.Count()),
		schema.Opt("estimatedEffortDays", schema.Count()),
	),
)

var generateRoc = task.Define("generate-roc",
	task.Title("Generate Report on Compliance"),
	task.Role("PCI DSS QSA"),
	task.Objective("Prepare the Report on Compliance for a level 1 or level 2 merchant"),
	task.Instructions(
		"Follow the PCI SSC ROC reporting template",
		"Document testing procedures and evidence for every requirement",
	),
	task.Labels("pci-dss", "report", "roc"),
	task.Output(
		schema.Req("sections", schema.Count()),
		schema.Opt("qsaReviewRequired", schema.Boolean()),
	),
)

var completeSaq = task.Define("complete-saq",
	task.Title("Complete Self-Assessment Questionnaire"),
	task.Role("PCI DSS compliance analyst"),
	task.Objective("Select and complete the applicable Self-Assessment Questionnaire"),
	task.Instructions(
		"Determine the SAQ type from payment channels and CDE scope",
		"Answer every applicable question with supporting evidence",
	),
	task.Labels("pci-dss", "report", "saq"),
	task.Output(
		schema.Req("saqType", schema.Enum("A", "A-EP", "B", "B-IP", "C", "C-VT", "D", "P2PE")),
		schema.Req("questionsAnswered", schema.Count()),
	),
)

var generateAoc = task.Define("generate-aoc",
	task.Title("Generate Attestation of Compliance"),
	task.Role("PCI DSS QSA"),
	task.Objective("Prepare the Attestation of Compliance from the assessment results"),
	task.Instructions(
		"Use the AOC template matching the report type",
		"Summarize compliance status and any remediation commitments",
	),
	task.Labels("pci-dss", "report", "aoc"),
	task.Output(
		schema.Req("attestationReady", schema.Boolean()),
		schema.Opt("aocType", schema.Enum("merchant", "service-provider")),
	),
)

// Tasks lists every task kind the PCI DSS process invokes.
var Tasks = []*task.Definition{
	defineScope,
	assessSegmentation,
	evaluateRequirements,
	assessVulnerabilities,
	penetrationTest,
	gapAnalysis,
	remediationPlan,
	generateRoc,
	completeSaq,
	generateAoc,
}
