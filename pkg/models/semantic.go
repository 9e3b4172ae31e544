package models

// Query intent categories produced by semantic analysis.
const (
	IntentRanking     = "ranking"
	IntentAggregation = "aggregation"
	IntentTrend       = "trend"
	IntentLookup      = "lookup"
)

// SemanticAnalysis is the output of the semantic analyzer collaborator:
// domain entities and significant keywords extracted from the raw query
// text, plus a coarse intent classification. Consumed as input by the
// relevance scorer; the scorer degrades to keyword-only scoring when
// analysis is unavailable.
type SemanticAnalysis struct {
	Entities []string `json:"entities,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Intent   string   `json:"intent,omitempty"`
}
