package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/apperrors"
	"github.com/spinhouse/prompt-engine/pkg/models"
	"github.com/spinhouse/prompt-engine/pkg/repositories"
	"github.com/spinhouse/prompt-engine/pkg/retry"
)

const (
	// successRatingFloor is the lowest rating counted as a success when
	// aggregating feedback.
	successRatingFloor = 4
	// failureRatingCeil is the highest rating counted as a failure.
	failureRatingCeil = 2

	// maxInsightItems caps each extracted list so insights stay small
	// enough to prepend to prompts.
	maxInsightItems = 5
	// insightFeedbackWindow bounds how many recent entries feed one
	// recomputation.
	insightFeedbackWindow = 200

	// confidenceModifierScale and confidenceModifierCap shape how far the
	// observed success rate moves confidence away from the model's own
	// estimate.
	confidenceModifierScale = 0.3
	confidenceModifierCap   = 0.15

	// deepHistoryBonus rewards patterns with enough samples to trust.
	deepHistoryThreshold = 10
	deepHistoryBonus     = 0.1

	patternReuseBonus = 0.15
	knownMistakeMalus = 0.2
)

// LearningService turns accumulated feedback into insights that adjust
// future prompts and confidence estimates.
type LearningService interface {
	// GetInsights returns aggregated insights for the pattern the query
	// belongs to. Never fails: repository errors degrade to empty insights
	// with a zero modifier.
	GetInsights(ctx context.Context, query string) *models.LearningInsights

	// ProcessFeedback records one feedback entry and invalidates the
	// cached insights for its pattern. Unlike reads, a failed write is an
	// error the caller must see; a blank query is rejected with
	// apperrors.ErrEmptyQuery. userID may be nil for anonymous feedback.
	ProcessFeedback(ctx context.Context, query, generatedSQL string, sentiment models.FeedbackSentiment, comment string, userID *uuid.UUID) (*models.FeedbackEntry, error)

	// EnhanceConfidence adjusts a base confidence estimate using the
	// insights for the query's pattern, the prompt that was used, and the
	// generated artifact. The result is clamped to [0, 1].
	EnhanceConfidence(ctx context.Context, base float64, query, prompt, artifact string) float64

	// ClassifyPattern maps a query onto its pattern tag.
	ClassifyPattern(query string) string
}

type learningService struct {
	feedbackRepo repositories.FeedbackRepository
	cache        InsightCache
	logger       *zap.Logger
}

// NewLearningService creates a new LearningService.
func NewLearningService(feedbackRepo repositories.FeedbackRepository, cache InsightCache, logger *zap.Logger) LearningService {
	return &learningService{
		feedbackRepo: feedbackRepo,
		cache:        cache,
		logger:       logger.Named("learning-service"),
	}
}

var _ LearningService = (*learningService)(nil)

// patternRules classify queries into coarse shape tags. First match wins,
// so more specific shapes come first.
var patternRules = []struct {
	tag      string
	keywords []string
}{
	{"ranking", []string{"top", "best", "worst", "highest", "lowest", "most", "least"}},
	{"trend", []string{"trend", "over time", "per day", "per week", "per month", "daily", "weekly", "monthly", "growth"}},
	{"comparison", []string{"compare", "versus", "vs", "difference between"}},
	{"aggregation", []string{"total", "sum", "count", "average", "how many", "how much"}},
}

const patternTagLookup = "lookup"

func (s *learningService) ClassifyPattern(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	for _, rule := range patternRules {
		for _, kw := range rule.keywords {
			if containsWord(normalized, kw) {
				return rule.tag
			}
		}
	}
	return patternTagLookup
}

func (s *learningService) GetInsights(ctx context.Context, query string) *models.LearningInsights {
	patternTag := s.ClassifyPattern(query)

	if cached, ok := s.cache.Get(patternTag); ok {
		return cached
	}

	// Transient store hiccups should not flush insights to empty; retry
	// briefly before degrading.
	entries, err := retry.DoWithResult(ctx, retry.BestEffortConfig(), func() ([]*models.FeedbackEntry, error) {
		return s.feedbackRepo.GetByPattern(ctx, patternTag, insightFeedbackWindow)
	})
	if err != nil {
		s.logger.Warn("Failed to load feedback for pattern, using empty insights",
			zap.String("pattern_tag", patternTag),
			zap.Error(err))
		return &models.LearningInsights{PatternTag: patternTag}
	}

	insights := computeInsights(patternTag, entries)
	s.cache.Put(patternTag, insights)
	return insights
}

func (s *learningService) ProcessFeedback(ctx context.Context, query, generatedSQL string, sentiment models.FeedbackSentiment, comment string, userID *uuid.UUID) (*models.FeedbackEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("process feedback: %w", apperrors.ErrEmptyQuery)
	}

	entry := &models.FeedbackEntry{
		OriginalQuery: query,
		GeneratedSQL:  generatedSQL,
		Rating:        sentiment.Rating(),
		Comment:       comment,
		PatternTag:    s.ClassifyPattern(query),
		WasSuccessful: sentiment == models.SentimentPositive,
		UserID:        userID,
	}

	if err := s.feedbackRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("process feedback: %w", err)
	}

	s.cache.Invalidate(entry.PatternTag)
	s.logger.Info("Feedback recorded",
		zap.String("pattern_tag", entry.PatternTag),
		zap.Int("rating", entry.Rating))
	return entry, nil
}

func (s *learningService) EnhanceConfidence(ctx context.Context, base float64, query, prompt, artifact string) float64 {
	insights := s.GetInsights(ctx, query)

	confidence := base + insights.ConfidenceModifier

	if insights.SampleCount > deepHistoryThreshold {
		confidence += deepHistoryBonus
	}

	lowerPrompt := strings.ToLower(prompt)
	for _, pattern := range insights.SuccessfulPatterns {
		if pattern != "" && strings.Contains(lowerPrompt, pattern) {
			confidence += patternReuseBonus
			break
		}
	}

	lowerArtifact := strings.ToLower(artifact)
	for _, mistake := range insights.CommonMistakes {
		if mistake != "" && strings.Contains(lowerArtifact, mistake) {
			confidence -= knownMistakeMalus
			break
		}
	}

	return clamp01(confidence)
}

// computeInsights aggregates a feedback window into insights for one
// pattern. SQL fragments from highly rated entries become successful
// patterns; fragments from poorly rated entries become common mistakes.
func computeInsights(patternTag string, entries []*models.FeedbackEntry) *models.LearningInsights {
	insights := &models.LearningInsights{
		PatternTag:  patternTag,
		SampleCount: len(entries),
	}
	if len(entries) == 0 {
		return insights
	}

	successes := 0
	successFragments := make(map[string]int)
	failureFragments := make(map[string]int)
	var hints []string
	seenHints := make(map[string]bool)

	for _, entry := range entries {
		if entry.Rating >= successRatingFloor {
			successes++
			countFragments(successFragments, entry.GeneratedSQL)
		} else if entry.Rating <= failureRatingCeil {
			countFragments(failureFragments, entry.GeneratedSQL)
			hint := strings.TrimSpace(entry.Comment)
			if hint != "" && !seenHints[hint] && len(hints) < maxInsightItems {
				seenHints[hint] = true
				hints = append(hints, hint)
			}
		}
	}

	insights.SuccessfulPatterns = topFragments(successFragments, maxInsightItems)
	insights.CommonMistakes = topFragments(failureFragments, maxInsightItems)
	insights.OptimizationHints = hints

	successRate := float64(successes) / float64(len(entries))
	modifier := (successRate - 0.5) * confidenceModifierScale
	if modifier > confidenceModifierCap {
		modifier = confidenceModifierCap
	}
	if modifier < -confidenceModifierCap {
		modifier = -confidenceModifierCap
	}
	insights.ConfidenceModifier = modifier

	return insights
}

// sqlFragments are the SQL constructs whose presence in generated queries
// is worth correlating with feedback outcomes.
var sqlFragments = []string{
	"group by", "order by", "limit", "join", "left join", "distinct",
	"date_trunc", "coalesce", "having", "with",
}

func countFragments(counts map[string]int, generatedSQL string) {
	lower := strings.ToLower(generatedSQL)
	for _, fragment := range sqlFragments {
		if strings.Contains(lower, fragment) {
			counts[fragment]++
		}
	}
}

func topFragments(counts map[string]int, limit int) []string {
	fragments := make([]string, 0, len(counts))
	for fragment := range counts {
		fragments = append(fragments, fragment)
	}
	sort.Slice(fragments, func(i, j int) bool {
		if counts[fragments[i]] != counts[fragments[j]] {
			return counts[fragments[i]] > counts[fragments[j]]
		}
		return fragments[i] < fragments[j]
	})
	if len(fragments) > limit {
		fragments = fragments[:limit]
	}
	return fragments
}
