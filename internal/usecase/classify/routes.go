package classify

import (
	"regexp"

	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
)

// RouteDef binds keyword phrases to a predefined filter.
type RouteDef struct {
	Name     string
	Keywords []string
	Filter   filter.Filter
}

// DefaultRoutes returns the built-in keyword routes of the product catalog.
func DefaultRoutes() []RouteDef {
	return []RouteDef{
		{
			Name:     "specifications",
			Keywords: []string{"specs", "specifications", "spec sheet", "quickspecs", "technical details", "datasheet"},
			Filter: filter.NewOr(
				filter.NewEquals("category", "specifications"),
				filter.NewEquals("document_type", "spec_sheet"),
				filter.NewIn("topics", "specifications"),
			),
		},
		{
			Name:     "performance_benchmark",
			Keywords: []string{"performance benchmark", "benchmark results", "benchmarks", "spec cpu"},
			Filter: filter.NewOr(
				filter.NewEquals("category", "benchmarks"),
				filter.NewIn("topics", "benchmarks", "performance benchmark"),
			),
		},
		{
			Name:     "performance",
			Keywords: []string{"performance", "throughput", "latency"},
			Filter: filter.NewOr(
				filter.NewEquals("category", "performance"),
				filter.NewIn("topics", "performance"),
			),
		},
		{
			Name:     "case_studies",
			Keywords: []string{"case study", "case studies", "success story", "customer story"},
			Filter: filter.NewOr(
				filter.NewEquals("document_type", "case_study"),
				filter.NewIn("tags", "case study", "success story"),
			),
		},
		{
			Name:     "pricing",
			Keywords: []string{"pricing", "price", "how much does", "cost of"},
			Filter: filter.NewOr(
				filter.NewEquals("category", "pricing"),
				filter.NewIn("topics", "pricing"),
			),
		},
		{
			Name:     "warranty_support",
			Keywords: []string{"warranty", "support contract", "care pack"},
			Filter: filter.NewOr(
				filter.NewEquals("category", "support"),
				filter.NewIn("topics", "warranty", "support"),
			),
		},
		{
			Name:     "comparison",
			Keywords: []string{"compare", "comparison", "difference between", "versus"},
			Filter: filter.NewOr(
				filter.NewEquals("document_type", "comparison"),
				filter.NewIn("topics", "comparison"),
			),
		},
	}
}

// greetings are whole-query small-talk tokens.
var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "hiya": {}, "yo": {},
	"ok": {}, "okay": {}, "k": {}, "sure": {}, "yes": {}, "no": {}, "yep": {}, "nope": {},
	"thanks": {}, "thank you": {}, "thx": {}, "ty": {}, "cheers": {},
	"bye": {}, "goodbye": {}, "see you": {},
	"good morning": {}, "good afternoon": {}, "good evening": {},
	"cool": {}, "great": {}, "nice": {}, "got it": {},
}

// technicalVocabulary are single catalog words that mark a knowledge-base query.
var technicalVocabulary = map[string]struct{}{
	"server": {}, "servers": {}, "proliant": {}, "synergy": {}, "apollo": {}, "alletra": {},
	"greenlake": {}, "dl20": {}, "dl325": {}, "dl345": {}, "dl360": {}, "dl365": {}, "dl380": {},
	"dl385": {}, "ml30": {}, "ml110": {}, "ml350": {}, "gen10": {}, "gen11": {}, "gen12": {},
	"cpu": {}, "cpus": {}, "processor": {}, "processors": {}, "xeon": {}, "epyc": {},
	"dimm": {}, "dimms": {}, "memory": {}, "ram": {}, "ddr5": {},
	"storage": {}, "nvme": {}, "ssd": {}, "hdd": {}, "raid": {}, "drive": {}, "drives": {},
	"gpu": {}, "gpus": {}, "accelerator": {}, "ilo": {}, "firmware": {}, "bios": {},
	"rack": {}, "chassis": {}, "psu": {}, "networking": {}, "nic": {}, "ethernet": {},
}

// questionPatterns are interrogative starters (confidence 0.8).
var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(what|what's|whats|how|which|why|where|when)\b`),
	regexp.MustCompile(`^tell me\b`),
	regexp.MustCompile(`^(can|could|does|do|is|are|will)\b`),
}

// requestPatterns are broader help/explain phrasings (confidence 0.75).
var requestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(explain|describe|elaborate)\b`),
	regexp.MustCompile(`\b(help|assist)\b`),
	regexp.MustCompile(`\b(problem|issue|trouble|error)s? with\b`),
	regexp.MustCompile(`\b(i need|i want|looking for)\b`),
}

// MergeRoutes returns base with extra applied on top: an extra route replaces
// the base route of the same name, new names are appended in order.
func MergeRoutes(base, extra []RouteDef) []RouteDef {
	out := make([]RouteDef, 0, len(base)+len(extra))
	pos := make(map[string]int, len(base))
	for _, r := range base {
		pos[r.Name] = len(out)
		out = append(out, r)
	}
	for _, r := range extra {
		if i, ok := pos[r.Name]; ok {
			out[i] = r
			continue
		}
		pos[r.Name] = len(out)
		out = append(out, r)
	}
	return out
}
