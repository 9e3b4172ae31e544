package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackSentiment is the three-valued user verdict on a generated query.
type FeedbackSentiment string

const (
	SentimentPositive FeedbackSentiment = "positive"
	SentimentNeutral  FeedbackSentiment = "neutral"
	SentimentNegative FeedbackSentiment = "negative"
)

// Rating maps a sentiment onto the 1-5 scale stored with feedback entries.
func (s FeedbackSentiment) Rating() int {
	switch s {
	case SentimentPositive:
		return 5
	case SentimentNegative:
		return 1
	default:
		return 3
	}
}

// FeedbackEntry records one user verdict on a generated artifact. Entries
// are append-only; writing one is the sole mutation path that feeds
// LearningInsights recomputation.
type FeedbackEntry struct {
	ID            uuid.UUID  `json:"id"`
	OriginalQuery string     `json:"original_query"`
	GeneratedSQL  string     `json:"generated_sql"`
	Rating        int        `json:"rating"` // 1-5, derived from sentiment
	Comment       string     `json:"comment,omitempty"`
	PatternTag    string     `json:"pattern_tag"`
	WasSuccessful bool       `json:"was_successful"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LearningInsights aggregates historical feedback for one query pattern.
// Cached in memory keyed by pattern tag and invalidated whenever new
// feedback for that pattern arrives.
type LearningInsights struct {
	PatternTag         string    `json:"pattern_tag"`
	SuccessfulPatterns []string  `json:"successful_patterns,omitempty"`
	CommonMistakes     []string  `json:"common_mistakes,omitempty"`
	OptimizationHints  []string  `json:"optimization_hints,omitempty"`
	ConfidenceModifier float64   `json:"confidence_modifier"` // roughly [-0.15, +0.15]
	SampleCount        int       `json:"sample_count"`
	ComputedAt         time.Time `json:"computed_at"`
}
