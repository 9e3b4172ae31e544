package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/models"
)

// SemanticAnalyzer turns raw query text into entities, keywords, and a
// coarse intent. The relevance scorer consumes its output and degrades to
// keyword-only scoring when analysis fails, so implementations may be
// remote services.
type SemanticAnalyzer interface {
	Analyze(ctx context.Context, query string) (*models.SemanticAnalysis, error)
}

type keywordSemanticAnalyzer struct {
	logger *zap.Logger
}

// NewKeywordSemanticAnalyzer creates the built-in, dependency-free
// SemanticAnalyzer: taxonomy-matched entities plus stopword-filtered
// keywords. It never returns an error.
func NewKeywordSemanticAnalyzer(logger *zap.Logger) SemanticAnalyzer {
	return &keywordSemanticAnalyzer{logger: logger.Named("semantic-analyzer")}
}

var _ SemanticAnalyzer = (*keywordSemanticAnalyzer)(nil)

func (a *keywordSemanticAnalyzer) Analyze(_ context.Context, query string) (*models.SemanticAnalysis, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	analysis := &models.SemanticAnalysis{
		Keywords: keywords(query),
		Intent:   classifyIntent(query),
	}
	for _, topic := range topicRules {
		if topic.matchesTopic(query) {
			analysis.Entities = append(analysis.Entities, topic.Name)
		}
	}
	return analysis, nil
}

// intentRule maps trigger phrases to an intent, first match wins.
type intentRule struct {
	Intent  string
	Phrases []string
}

var intentRules = []intentRule{
	{models.IntentRanking, []string{"top", "best", "highest", "lowest", "most", "ranking", "rank"}},
	{models.IntentTrend, []string{"trend", "over time", "growth", "by day", "by month", "daily", "weekly", "monthly"}},
	{models.IntentAggregation, []string{"total", "sum", "average", "count", "how many", "how much", "revenue"}},
}

func classifyIntent(query string) string {
	for _, rule := range intentRules {
		for _, phrase := range rule.Phrases {
			if containsWord(query, phrase) {
				return rule.Intent
			}
		}
	}
	return models.IntentLookup
}
