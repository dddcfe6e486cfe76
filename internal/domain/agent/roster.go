package agent

import "github.com/rahulnsecc/AI-4-all/internal/domain/task"

// Specialist agent names. The roster is a closed set: routing selects from
// these definitions by capability tags, never by untyped lookup.
const (
	NameWebSearch = "Web Search Agent"
	NameFinance   = "Finance Agent"
	NameWriter    = "Writer"
	NameCritic    = "Critic"
	NameCostScan  = "Cost Scan Agent"
	NameSQLRunner = "SQL Runner"
)

// Reviewer agent names. Reviewers judge artifacts independently.
const (
	NameSEOReviewer    = "SEO Reviewer"
	NameLegalReviewer  = "Legal Reviewer"
	NameEthicsReviewer = "Ethics Reviewer"
	NameSQLValidator   = "SQL Validator"
	NamePlanAnalyzer   = "Plan Analyzer"
	NameDataProfiler   = "Data Profiler"
	NameErrorAnalyzer  = "Error Analyzer"
)

// DefaultRoster returns the built-in specialist definitions in routing
// priority order. Ties in the router score resolve to the earlier entry, so
// the order here is part of routing determinism.
func DefaultRoster() []Definition {
	return []Definition{
		{
			Name:       NameFinance,
			Role:       "financial data specialist",
			Capability: CapabilityFetch,
			Kinds:      []task.Kind{task.KindFinance},
			Tools:      []string{"finance_quote"},
			Keywords:   []string{"stock", "price", "ticker", "market", "fundamentals", "analyst"},
		},
		{
			Name:       NameWriter,
			Role:       "content writer",
			Capability: CapabilityGenerate,
			Kinds:      []task.Kind{task.KindContent},
			Keywords:   []string{"write", "blog", "article", "post", "content", "brief"},
		},
		{
			Name:       NameCritic,
			Role:       "content critic",
			Capability: CapabilityGenerate,
			Kinds:      []task.Kind{task.KindContent},
			Keywords:   []string{"review", "critique", "feedback"},
		},
		{
			Name:       NameSQLRunner,
			Role:       "sql execution specialist",
			Capability: CapabilityAct,
			Kinds:      []task.Kind{task.KindSQL},
			Keywords:   []string{"select", "query", "sql", "table", "join"},
		},
		{
			Name:       NameCostScan,
			Role:       "cloud cost optimizer",
			Capability: CapabilityAct,
			Kinds:      []task.Kind{task.KindCostScan},
			Keywords:   []string{"cost", "utilization", "scale", "deallocate", "savings", "vm"},
		},
		{
			Name:       NameWebSearch,
			Role:       "web search specialist",
			Capability: CapabilityFetch,
			Kinds:      []task.Kind{task.KindSearch},
			Tools:      []string{"web_search"},
			Keywords:   []string{"search", "find", "lookup", "news", "who", "what"},
		},
	}
}

// ContentReviewers returns the reviewer definitions for content artifacts.
func ContentReviewers() []Definition {
	return []Definition{
		{Name: NameSEOReviewer, Role: "seo", Capability: CapabilityGenerate, Kinds: []task.Kind{task.KindContent}},
		{Name: NameLegalReviewer, Role: "legal", Capability: CapabilityGenerate, Kinds: []task.Kind{task.KindContent}},
		{Name: NameEthicsReviewer, Role: "ethics", Capability: CapabilityGenerate, Kinds: []task.Kind{task.KindContent}},
	}
}

// SQLReviewers returns the reviewer definitions for SQL query artifacts.
func SQLReviewers() []Definition {
	return []Definition{
		{Name: NameSQLValidator, Role: "sql-validator", Capability: CapabilityGenerate, Kinds: []task.Kind{task.KindSQL}},
		{Name: NamePlanAnalyzer, Role: "plan-analyzer", Capability: CapabilityGenerate, Kinds: []task.Kind{task.KindSQL}},
		{Name: NameDataProfiler, Role: "profiler", Capability: CapabilityGenerate, Kinds: []task.Kind{task.KindSQL}},
	}
}
