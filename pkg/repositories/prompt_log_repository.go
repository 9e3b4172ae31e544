package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/spinhouse/prompt-engine/pkg/database"
	"github.com/spinhouse/prompt-engine/pkg/models"
)

// PromptLogRepository persists prompt generation audit records.
// All writes through this repository are best-effort from the caller's
// perspective; the assembler swallows failures.
type PromptLogRepository interface {
	// Create stores one prompt generation record.
	Create(ctx context.Context, record *models.PromptGeneration) error
}

type promptLogRepository struct {
	db *database.DB
}

// NewPromptLogRepository creates a new PromptLogRepository.
func NewPromptLogRepository(db *database.DB) PromptLogRepository {
	return &promptLogRepository{db: db}
}

var _ PromptLogRepository = (*promptLogRepository)(nil)

func (r *promptLogRepository) Create(ctx context.Context, record *models.PromptGeneration) error {
	const query = `
		INSERT INTO engine_prompt_generations (
			template_name, query, prompt, table_count, estimated_tokens,
			fallback_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		record.TemplateName,
		record.Query,
		record.Prompt,
		record.TableCount,
		record.EstimatedTokens,
		record.FallbackUsed,
		time.Now(),
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("create prompt generation record: %w", err)
	}
	return nil
}
