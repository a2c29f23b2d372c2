package dataclass

import (
	"github.com/kingrea/procflow/internal/schema"
	"github.com/kingrea/procflow/internal/task"
)

func orgTitle(prefix string) task.Option {
	return task.TitleFunc(func(a task.Args) string {
		org, _ := a["organizationName"].(string)
		if org == "" {
			return prefix
		}
		return prefix + " for " + org
	})
}

var defineScheme = task.Define("define-classification-scheme",
	orgTitle("Define classification scheme"),
	task.Role("Data governance lead"),
	task.Objective("Define classification levels, criteria and labelling rules"),
	task.Instructions(
		"Describe each classification level with examples",
		"Define criteria that decide the level of a data asset",
		"Define labelling rules for documents and systems",
	),
	task.Labels("data-classification", "scheme"),
	task.Output(
		schema.Req("levels", schema.Strings()),
		schema.Opt("criteria", schema.Count()),
	),
)

var inventoryAssets = task.Define("inventory-data-assets",
	orgTitle("Inventory data assets"),
	task.Role("Data steward"),
	task.Objective("Build an inventory of data assets across the listed data sources"),
	task.Instructions(
		"Enumerate databases, file shares, SaaS stores and buckets in each source",
		"Record owner, location and volume for each asset",
	),
	task.Labels("data-classification", "inventory"),
	task.Output(
		schema.Req("assetsInventoried", schema.Count()),
		schema.Opt("owners", schema.Count()),
	),
)

var discoverStructured = task.Define("discover-structured-data",
	task.Title("Discover sensitive structured data"),
	task.Role("Data discovery engineer"),
	task.Objective("Scan databases and warehouses for sensitive columns"),
	task.Instructions(
		"Sample tables and match columns against PII, PCI and PHI patterns",
		"Report confidence for every match",
	),
	task.Labels("data-classification", "discovery"),
	task.Output(
		schema.Req("sensitiveFields", schema.Count()),
		schema.Opt("tablesScanned", schema.Count()),
	),
)

var discoverUnstructured = task.Define("discover-unstructured-data",
	task.Title("Discover sensitive unstructured data"),
	task.Role("Data discovery engineer"),
	task.Objective("Scan documents and object stores for sensitive content"),
	task.Instructions(
		"Scan documents, spreadsheets and exports for sensitive patterns",
		"Report the locations of matches without copying the values",
	),
	task.Labels("data-classification", "discovery"),
	task.Output(
		schema.Req("sensitiveDocuments", schema.Count()),
		schema.Opt("filesScanned", schema.Count()),
	),
)

var classifyAssets = task.Define("classify-data-assets",
	orgTitle("Classify data assets"),
	task.Role("Data steward"),
	task.Objective("Assign a classification level to every inventoried asset"),
	task.Instructions(
		"Apply the scheme criteria to each asset",
		"Use discovery results as evidence where available",
		"Flag assets that could not be classified",
	),
	task.Labels("data-classification", "classification"),
	task.Output(
		schema.Req("assetsClassified", schema.Count()),
		schema.Req("sensitiveAssets", schema.Count()),
		schema.Req("coveragePercent", schema.Score()),
		schema.Opt("unclassified", schema.Strings()),
	),
)

var mapRegulatory = task.Define("map-regulatory-requirements",
	task.Title("Map regulatory requirements"),
	task.Role("Privacy counsel"),
	task.Objective("Map classified data to the obligations of each regulatory framework"),
	task.Instructions(
		"List the obligations each framework places on each level",
		"Record the gaps between current handling and obligations",
	),
	task.Labels("data-classification", "regulatory"),
	task.Output(
		schema.Req("requirementsMapped", schema.Count()),
		schema.Opt("gaps", schema.Count()),
	),
)

var handlingControls = task.Define("define-handling-controls",
	task.Title("Define handling controls"),
	task.Role("Security architect"),
	task.Objective("Define storage, transmission, access and retention controls per level"),
	task.Instructions(
		"Define encryption and access requirements for each level",
		"Define retention and disposal rules",
	),
	task.Labels("data-classification", "controls"),
	task.Output(schema.Req("controlsDefined", schema.Count())),
)

var dlpPolicies = task.Define("create-dlp-policies",
	task.Title("Create DLP policies"),
	task.Role("DLP engineer"),
	task.Objective("Create data loss prevention policies for sensitive levels"),
	task.Instructions(
		"Write detection rules for each sensitive level",
		"Define the response action for each rule",
	),
	task.Labels("data-classification", "dlp"),
	task.Output(schema.Req("policiesCreated", schema.Count())),
)

var classificationReport = task.Define("generate-classification-report",
	orgTitle("Generate data classification report"),
	task.Role("Data governance lead"),
	task.Objective("Summarize the classification program for leadership"),
	task.Instructions(
		"Summarize the inventory, classification coverage and sensitive assets",
		"List regulatory gaps and next steps",
	),
	task.Labels("data-classification", "report"),
	task.Output(schema.Opt("summary", schema.String())),
)

// Tasks lists every task kind the data classification process invokes.
var Tasks = []*task.Definition{
	defineScheme,
	inventoryAssets,
	discoverStructured,
	discoverUnstructured,
	classifyAssets,
	mapRegulatory,
	handlingControls,
	dlpPolicies,
	classificationReport,
}
