package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/spinhouse/prompt-engine/pkg/database"
	"github.com/spinhouse/prompt-engine/pkg/models"
)

// FeedbackRepository provides append-only access to the feedback log.
type FeedbackRepository interface {
	// Append stores one feedback entry. The generated ID and timestamp are
	// written back onto the argument.
	Append(ctx context.Context, entry *models.FeedbackEntry) error

	// GetByPattern returns feedback entries for a pattern tag, newest
	// first, capped at limit (<=0 means no cap).
	GetByPattern(ctx context.Context, patternTag string, limit int) ([]*models.FeedbackEntry, error)
}

type feedbackRepository struct {
	db *database.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *database.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

var _ FeedbackRepository = (*feedbackRepository)(nil)

func (r *feedbackRepository) Append(ctx context.Context, entry *models.FeedbackEntry) error {
	const query = `
		INSERT INTO engine_prompt_feedback (
			original_query, generated_sql, rating, comment, pattern_tag,
			was_successful, user_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		entry.OriginalQuery,
		entry.GeneratedSQL,
		entry.Rating,
		entry.Comment,
		entry.PatternTag,
		entry.WasSuccessful,
		entry.UserID,
		time.Now(),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append feedback entry: %w", err)
	}
	return nil
}

func (r *feedbackRepository) GetByPattern(ctx context.Context, patternTag string, limit int) ([]*models.FeedbackEntry, error) {
	query := `
		SELECT id, original_query, generated_sql, rating, comment, pattern_tag,
		       was_successful, user_id, created_at
		FROM engine_prompt_feedback
		WHERE pattern_tag = $1
		ORDER BY created_at DESC`

	args := []any{patternTag}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback by pattern %q: %w", patternTag, err)
	}
	defer rows.Close()

	var entries []*models.FeedbackEntry
	for rows.Next() {
		var e models.FeedbackEntry
		if err := rows.Scan(
			&e.ID, &e.OriginalQuery, &e.GeneratedSQL, &e.Rating, &e.Comment,
			&e.PatternTag, &e.WasSuccessful, &e.UserID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feedback entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback entries: %w", err)
	}

	return entries, nil
}
