package secpolicy

import (
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

var assessLandscape = task.Define("assess-policy-landscape",
	task.TitleFunc(func(a task.Args) string {
		org, _ := a["organizationName"].(string)
		return "Assess policy landscape for " + org
	}),
	task.Role("Security governance lead"),
	task.Objective("Review existing policies, regulatory drivers and industry expectations"),
	task.Instructions(
		"Inventory existing policies and their review dates",
		"Identify regulatory and contractual drivers for the industry",
		"List missing or outdated policies",
	),
	task.Labels("policy", "assessment"),
	task.Output(
		schema.Req("existingPolicies", schema.Count()),
		schema.Req("gapsIdentified", schema.Count()),
	),
)

var defineFramework = task.Define("define-policy-framework",
	task.Title("Define policy framework"),
	task.Role("Security governance lead"),
	task.Objective("Define the policy hierarchy, ownership and document standards"),
	task.Instructions(
		"Define the policy, standard, procedure and guideline tiers",
		"Assign an owner and review cycle to each policy type",
	),
	task.Labels("policy", "framework"),
	task.Output(
		schema.Req("policyTypes", schema.Strings()),
		schema.Opt("owners", schema.Count()),
	),
)

var draftPolicies = task.Define("draft-policies",
	task.Title("Draft security policies"),
	task.Role("Security policy author"),
	task.Objective("Write each requested policy in plain, enforceable language"),
	task.Instructions(
		"Use the same structure for every policy: purpose, scope, statements, roles, exceptions and enforcement",
		"Avoid naming specific products",
	),
	task.Labels("policy", "drafting"),
	task.Output(schema.Req("policiesCreated", schema.Count())),
)

var developProcedures = task.Define("develop-procedures",
	task.Title("Develop supporting procedures"),
	task.Role("Security operations lead"),
	task.Objective("Write step-by-step procedures that implement the policies"),
	task.Instructions(
		"Write at least one procedure per policy that needs operational steps",
	),
	task.Labels("policy", "procedures"),
	task.Output(schema.Req("proceduresCreated", schema.Count())),
)

var mapControls = task.Define("map-framework-controls",
	task.Title("Map policies to framework controls"),
	task.Role("Compliance analyst"),
	task.Objective("Map policy statements to the controls of each framework"),
	task.Instructions(
		"Map each statement to ISO 27001, NIST CSF, SOC 2 or other requested controls",
		"Compute the share of framework controls covered",
	),
	task.Labels("policy", "mapping"),
	task.Output(
		schema.Req("frameworkCoverage", schema.Score()),
		schema.Opt("unmappedControls", schema.Strings()),
	),
)

var stakeholderReview = task.Define("conduct-stakeholder-review",
	task.Title("Conduct stakeholder review"),
	task.Role("Security governance lead"),
	task.Objective("Collect and resolve comments from legal, HR, IT and business owners"),
	task.Instructions(
		"Record every comment with its resolution",
		"List comments that remain open",
	),
	task.Labels("policy", "review"),
	task.Output(
		schema.Req("commentsReceived", schema.Count()),
		schema.Req("openComments", schema.Count()),
	),
)

var approvalPackage = task.Define("prepare-approval-package",
	task.Title("Prepare approval package"),
	task.Role("Security governance lead"),
	task.Objective("Assemble policies, mapping and review record for executive approval"),
	task.Instructions(
		"Summarize each policy and its main obligations",
		"Include the open comments and the proposed effective date",
	),
	task.Labels("policy", "approval"),
	task.Output(
		schema.Req("approvers", schema.Strings()),
		schema.Opt("effectiveDate", schema.String()),
	),
)

var communicationPlan = task.Define("create-communication-plan",
	task.Title("Create communication plan"),
	task.Role("Internal communications lead"),
	task.Objective("Plan the rollout and acknowledgement of the policies"),
	task.Instructions(
		"Define the audiences, channels and acknowledgement tracking",
	),
	task.Labels("policy", "communication"),
	task.Output(schema.Req("audiences", schema.Strings())),
)

var maintenance = task.Define("define-policy-maintenance",
	task.Title("Define policy maintenance"),
	task.Role("Security governance lead"),
	task.Objective("Define the review cycle, exception process and metrics"),
	task.Instructions(
		"Set the review interval for each policy type",
		"Define how exceptions are requested, approved and expired",
	),
	task.Labels("policy", "maintenance"),
	task.Output(
		schema.Req("reviewCycleMonths", schema.Integer().Range(1, 36)),
	),
)

// Tasks lists every task kind the policy authoring process invokes.
var Tasks = []*task.Definition{
	assessLandscape,
	defineFramework,
	draftPolicies,
	developProcedures,
	mapControls,
	stakeholderReview,
	approvalPackage,
	communicationPlan,
	maintenance,
}
