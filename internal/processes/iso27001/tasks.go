package iso27001

import (
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

var defineScope = task.Define("define-isms-scope",
	task.TitleFunc(func(a task.Args) string {
		org, _ := a["organizationName"].(string)
		return "Define ISMS scope for " + org
	}),
	task.Role("ISO 27001 lead implementer"),
	task.Objective("Define the scope and boundaries of the information security management system (clause 4)"),
	task.Instructions(
		"Identify internal and external issues and interested parties",
		"Define organizational, physical and technological boundaries",
		"Inventory the information assets within scope",
		"Write the scope statement",
	),
	task.Labels("iso27001", "scope"),
	task.Output(
		schema.Req("scopeStatement", schema.String()),
		schema.Req("assetsInScope", schema.Count()),
		schema.Opt("interestedParties", schema.Count()),
	),
)

var gapAnalysis = task.Define("perform-gap-analysis",
	task.Title("Perform ISO 27001 gap analysis"),
	task.Role("ISO 27001 auditor"),
	task.Objective("Assess current practices against clauses 4-10 and Annex A"),
	task.Instructions(
		"Rate the maturity of each clause",
		"List the gaps that block certification",
	),
	task.Labels("iso27001", "gap-analysis"),
	task.Output(
		schema.Req("gapsIdentified", schema.Count()),
		schema.Req("maturityScore", schema.Score()),
		schema.Opt("clausesAssessed", schema.Count()),
	),
)

var riskAssessment = task.Define("conduct-risk-assessment",
	task.Title("Conduct information security risk assessment"),
	task.Role("Risk manager"),
	task.Objective("Identify, analyse and evaluate information security risks (clause 6.1.2)"),
	task.Instructions(
		"Apply the selected risk methodology consistently",
		"Identify threats and vulnerabilities for assets in scope",
		"Rate likelihood and impact and record risk owners in the risk register",
	),
	task.Labels("iso27001", "risk"),
	task.Output(
		schema.Req("risksIdentified", schema.Count()),
		schema.Req("highRisks", schema.Count()),
		schema.Opt("riskAppetite", schema.String()),
	),
)

var statementOfApplicability = task.Define("create-statement-of-applicability",
	task.Title("Create Statement of Applicability"),
	task.Role("ISO 27001 lead implementer"),
	task.Objective("Determine applicable Annex A controls and justify exclusions"),
	task.Instructions(
		"Evaluate each of the 93 Annex A controls against the risk assessment",
		"Record the justification for every inclusion and exclusion",
	),
	task.Labels("iso27001", "soa"),
	task.Output(
		schema.Req("controlsApplicable", schema.Integer().Range(0, 93)),
		schema.Req("controlsExcluded", schema.Integer().Range(0, 93)),
	),
)

var treatmentPlan = task.Define("develop-risk-treatment-plan",
	task.Title("Develop risk treatment plan"),
	task.Role("Risk manager"),
	task.Objective("Select treatment options for every risk above appetite (clause 6.1.3)"),
	task.Instructions(
		"Choose to mitigate, transfer, avoid or accept each risk",
		"Map treatments to controls in the Statement of Applicability",
		"Obtain risk owner acceptance of residual risk",
	),
	task.Labels("iso27001", "risk"),
	task.Output(
		schema.Req("treatmentsPlanned", schema.Count()),
		schema.Opt("residualHighRisks", schema.Count()),
	),
)

var developPolicies = task.Define("develop-policies",
	task.Title("Develop ISMS policies"),
	task.Role("Security policy author"),
	task.Objective("Write the information security policy and topic-specific policies"),
	task.Instructions(
		"Draft the top-level information security policy",
		"Draft topic-specific policies required by applicable controls",
	),
	task.Labels("iso27001", "policy"),
	task.Output(schema.Req("policiesCreated", schema.Count())),
)

var implementControls = task.Define("implement-controls",
	task.Title("Implement controls"),
	task.Role("Security engineer"),
	task.Objective("Implement the applicable controls and collect evidence"),
	task.Instructions(
		"Plan implementation for each applicable control",
		"Collect evidence of operation for every implemented control",
	),
	task.Labels("iso27001", "controls"),
	task.Output(
		schema.Req("controlsImplemented", schema.Count()),
		schema.Req("implementationPercent", schema.Score()),
	),
)

var awarenessTraining = task.Define("plan-awareness-training",
	task.Title("Plan awareness training"),
	task.Role("Security awareness lead"),
	task.Objective("Plan competence and awareness activities (clause 7.2 and 7.3)"),
	task.Instructions(
		"Identify audiences and required competences",
		"Design the training modules and schedule",
	),
	task.Labels("iso27001", "training"),
	task.Output(
		schema.Req("trainingModules", schema.Count()),
		schema.Opt("audiences", schema.Strings()),
	),
)

var internalAudit = task.Define("conduct-internal-audit",
	task.Title("Conduct internal audit"),
	task.Role("Internal auditor"),
	task.Objective("Audit the ISMS against the standard (clause 9.2)"),
	task.Instructions(
		"Audit every clause and a sample of applicable controls",
		"Classify nonconformities as major or minor",
	),
	task.Labels("iso27001", "audit"),
	task.Output(
		schema.Req("majorNonconformities", schema.Count()),
		schema.Req("minorNonconformities", schema.Count()),
		schema.Opt("observations", schema.Count()),
	),
)

var managementReview = task.Define("conduct-management-review",
	task.Title("Conduct management review"),
	task.Role("ISMS manager"),
	task.Objective("Prepare and record the management review (clause 9.3)"),
	task.Instructions(
		"Summarize audit results, risk status and objectives",
		"Record decisions and improvement actions",
	),
	task.Labels("iso27001", "review"),
	task.Output(
		schema.Req("actionItems", schema.Count()),
		schema.Opt("decisions", schema.Count()),
	),
)

var certificationReadiness = task.Define("assess-certification-readiness",
	task.Title("Assess certification readiness"),
	task.Role("ISO 27001 lead auditor"),
	task.Objective("Judge readiness for the stage 1 and stage 2 certification audits"),
	task.Instructions(
		"Check that mandatory documents and records exist",
		"List blockers for certification",
		"Score overall readiness from 0 to 100",
	),
	task.Labels("iso27001", "certification"),
	task.Output(
		schema.Req("readinessScore", schema.Score()),
		schema.Opt("blockers", schema.Strings()),
		schema.Opt("recommendedAuditDate", schema.String()),
	),
)

// Tasks lists every task kind the ISO 27001 process invokes.
var Tasks = []*task.Definition{
	defineScope,
	gapAnalysis,
	riskAssessment,
	statementOfApplicability,
	treatmentPlan,
	developPolicies,
	implementControls,
	awarenessTraining,
	internalAudit,
	managementReview,
	certificationReadiness,
}
