// Package planner produces a SearchPlan from query fields: surname-variant
// expansion, region inference, source ranking, and per-source budget
// allocation.
package planner

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kinlink/lineage/model"
)

// Router is the subset of the registry the planner depends on.
type Router interface {
	RankSourcesForQuery(query model.SearchQuery, region model.Region) []model.RankedSource
}

// substitution is one entry of the fixed symmetric surname substitution
// table. Both directions of each pair are applied.
type substitution struct {
	a, b string
}

var substitutions = []substitution{
	{"son", "sen"},
	{"ck", "k"},
	{"ph", "f"},
	{"ie", "y"},
	{"mann", "man"},
	{"berg", "burg"},
}

// defaultRecordTypes are used when the query does not specify any.
var defaultRecordTypes = []string{"birth", "death", "marriage", "census"}

// regionKeywords maps a substring found in a birth place to an inferred
// region. Checked in order; first match wins.
var regionKeywords = []struct {
	keyword string
	region  model.Region
}{
	{"united states", model.RegionUSA},
	{"usa", model.RegionUSA},
	{"england", model.RegionUK},
	{"scotland", model.RegionUK},
	{"wales", model.RegionUK},
	{"united kingdom", model.RegionUK},
	{"ireland", model.RegionIreland},
	{"germany", model.RegionGermany},
	{"deutschland", model.RegionGermany},
	{"france", model.RegionFrance},
	{"italy", model.RegionItaly},
	{"poland", model.RegionPoland},
	{"sweden", model.RegionSweden},
	{"norway", model.RegionNorway},
}

// canonicalRegions maps an explicit region string (case-insensitive) to the
// canonical Region enum value.
var canonicalRegions = map[string]model.Region{
	"usa":     model.RegionUSA,
	"us":      model.RegionUSA,
	"uk":      model.RegionUK,
	"ireland": model.RegionIreland,
	"germany": model.RegionGermany,
	"france":  model.RegionFrance,
	"italy":   model.RegionItaly,
	"poland":  model.RegionPoland,
	"sweden":  model.RegionSweden,
	"norway":  model.RegionNorway,
}

const (
	firstPassSourceLimit = 5
	secondPassThreshold  = 0.7
	maxTotalResultsCap   = 200
)

// Planner creates deterministic SearchPlans for a query. IDGen is
// overridable for tests that need stable plan ids.
type Planner struct {
	router Router
	idGen  func() string
}

// New returns a Planner backed by router.
func New(router Router) *Planner {
	return &Planner{router: router, idGen: func() string { return uuid.NewString() }}
}

// SetIDGen overrides the plan-id generator. Exposed for deterministic tests.
func (p *Planner) SetIDGen(fn func() string) {
	p.idGen = fn
}

// CreatePlan produces a SearchPlan for query, ranking at most maxSources
// sources (0 means no limit) and allocating a total budget of
// totalBudgetSeconds across them.
func (p *Planner) CreatePlan(query model.SearchQuery, maxSources int, totalBudgetSeconds float64) model.SearchPlan {
	variants := expandSurnameVariants(query.Surname)
	region := inferRegion(query)

	recordTypes := query.RecordTypes
	if len(recordTypes) == 0 {
		recordTypes = append([]string(nil), defaultRecordTypes...)
	}
	rankQuery := query
	rankQuery.RecordTypes = recordTypes

	ranked := p.router.RankSourcesForQuery(rankQuery, region)
	if maxSources > 0 && len(ranked) > maxSources {
		ranked = ranked[:maxSources]
	}

	budgets := allocateBudgets(ranked, totalBudgetSeconds)

	return model.SearchPlan{
		PlanID:               p.idGen(),
		Surname:              query.Surname,
		GivenName:            query.GivenName,
		BirthYear:            query.BirthYear,
		DeathYear:            query.DeathYear,
		Places:               query.Places,
		RecordTypes:          recordTypes,
		SurnameVariants:      variants,
		Region:               region,
		SourceBudgets:        budgets,
		TotalBudgetSeconds:   totalBudgetSeconds,
		FirstPassSourceLimit: firstPassSourceLimit,
		SecondPassThreshold:  secondPassThreshold,
		MaxTotalResults:      maxTotalResultsCap,
	}
}

// expandSurnameVariants applies each substitution once to the original
// surname (never recursively), emitting the original plus any variant that
// differs from it, title-cased and deduplicated.
func expandSurnameVariants(surname string) []string {
	if surname == "" {
		return nil
	}
	lower := strings.ToLower(surname)
	seen := map[string]bool{}
	var out []string

	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, titleCase(s))
	}
	add(lower)

	for _, sub := range substitutions {
		if strings.Contains(lower, sub.a) {
			add(strings.Replace(lower, sub.a, sub.b, 1))
		}
		if strings.Contains(lower, sub.b) {
			add(strings.Replace(lower, sub.b, sub.a, 1))
		}
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// inferRegion maps an explicit query region through the canonical table, or
// falls back to a substring match on the birth place.
func inferRegion(query model.SearchQuery) model.Region {
	if query.Region != "" {
		if canonical, ok := canonicalRegions[strings.ToLower(string(query.Region))]; ok {
			return canonical
		}
		return query.Region
	}
	place := strings.ToLower(query.BirthPlace())
	if place == "" {
		return ""
	}
	for _, kw := range regionKeywords {
		if strings.Contains(place, kw.keyword) {
			return kw.region
		}
	}
	return ""
}

// allocateBudgets computes per-source timeout, max_results, and retry_count
// from each source's ranked priority.
func allocateBudgets(ranked []model.RankedSource, totalBudgetSeconds float64) []model.SourceBudget {
	if len(ranked) == 0 {
		return nil
	}
	perSourceTimeout := totalBudgetSeconds / float64(max(1, len(ranked)))
	if perSourceTimeout > 30.0 {
		perSourceTimeout = 30.0
	}

	budgets := make([]model.SourceBudget, 0, len(ranked))
	for _, rs := range ranked {
		maxResults := 30
		retryCount := 1
		if rs.Priority >= 2 {
			maxResults = 50
			retryCount = 2
		}
		timeout := perSourceTimeout * (1 + 0.2*float64(rs.Priority))
		if timeout > 45.0 {
			timeout = 45.0
		}
		budgets = append(budgets, model.SourceBudget{
			SourceName:     rs.Name,
			Priority:       rs.Priority,
			MaxResults:     maxResults,
			TimeoutSeconds: timeout,
			RetryCount:     retryCount,
		})
	}
	return budgets
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
