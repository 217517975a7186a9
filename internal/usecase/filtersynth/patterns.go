package filtersynth

import "regexp"

// caseStudyPattern marks queries about customer stories. Those documents are tagged
// product "all", so narrowing by product would hide them.
var caseStudyPattern = regexp.MustCompile(
	`\b(case\s+stud(y|ies)|success\s+stor(y|ies)|customer\s+(story|stories|references?)|testimonials?)\b`,
)

type productPattern struct {
	re      *regexp.Regexp
	product string
}

// productPatterns are tested in order; the first match wins.
var productPatterns = []productPattern{
	{regexp.MustCompile(`\bgreen\s*lake\b`), "GreenLake"},
	{regexp.MustCompile(`\bone\s*view\b`), "OneView"},
	{regexp.MustCompile(`\balletra(\s*(mp|storage))?\b`), "Alletra"},
	{regexp.MustCompile(`\baruba\s*central\b`), "Aruba Central"},
	{regexp.MustCompile(`\bops\s*ramp\b`), "OpsRamp"},
	{regexp.MustCompile(`\bmorpheus\b`), "Morpheus"},
	{regexp.MustCompile(`\bi\.?lo\s*\d*\b`), "iLO"},
}

type categoryPattern struct {
	re       *regexp.Regexp
	category string
}

// categoryPatterns are tested in order; the first match wins.
var categoryPatterns = []categoryPattern{
	{regexp.MustCompile(`\b(specs?|specifications?|data\s*sheets?|quick\s*specs)\b`), "specifications"},
	{regexp.MustCompile(`\b(benchmarks?|performance)\b`), "performance"},
	{regexp.MustCompile(`\b(pric(e|es|ing)|costs?|quotes?)\b`), "pricing"},
	{regexp.MustCompile(`\b(warranty|warranties|care\s*packs?)\b`), "support"},
	{regexp.MustCompile(`\b(security|secure\s+boot|root\s+of\s+trust)\b`), "security"},
}

type categorySynonyms struct {
	category string
	synonyms []string
}

// synonymTable is scanned in order when no category pattern matched.
var synonymTable = []categorySynonyms{
	{"specifications", []string{"spec sheet", "technical specifications", "hardware details", "configuration", "dimensions"}},
	{"performance", []string{"benchmark", "speed", "throughput", "latency", "fast"}},
	{"pricing", []string{"price", "cost", "budget", "expensive", "cheap", "licensing"}},
	{"support", []string{"warranty", "service", "maintenance", "repair", "troubleshooting"}},
	{"security", []string{"secure", "encryption", "firmware protection", "compliance", "zero trust"}},
	{"ai", []string{"gpu", "accelerator", "machine learning", "deep learning", "llm", "inference"}},
	{"storage", []string{"nvme", "ssd", "raid", "disk", "drives", "capacity"}},
	{"networking", []string{"network", "ethernet", "nic", "bandwidth", "switch"}},
	{"sustainability", []string{"energy", "power efficiency", "carbon", "green computing"}},
}

// Metadata fields the flexible category builder targets.
var (
	equalityFields   = []string{"category", "document_type", "document_id"}
	membershipFields = []string{
		"topics", "referenced_products", "key_features", "use_cases", "search_keywords", "tags",
	}
)
