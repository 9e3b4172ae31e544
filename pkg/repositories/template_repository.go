package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spinhouse/prompt-engine/pkg/apperrors"
	"github.com/spinhouse/prompt-engine/pkg/database"
	"github.com/spinhouse/prompt-engine/pkg/models"
)

// TemplateRepository provides data access for prompt templates.
type TemplateRepository interface {
	// GetByName returns the highest active version of the named template.
	// Returns apperrors.ErrNotFound when no active version exists.
	GetByName(ctx context.Context, name string) (*models.PromptTemplate, error)

	// GetByNameVersion returns a specific version of the named template.
	GetByNameVersion(ctx context.Context, name string, version int) (*models.PromptTemplate, error)

	// IncrementUsage bumps the usage counter of a template.
	IncrementUsage(ctx context.Context, id uuid.UUID) error

	// Save inserts the template as a new version of its name. The stored
	// version and timestamps are written back onto the argument. A template
	// missing the required placeholders is rejected with
	// apperrors.ErrInvalidTemplate; a concurrent insert of the same version
	// surfaces as apperrors.ErrConflict.
	Save(ctx context.Context, template *models.PromptTemplate) error
}

type templateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *database.DB) TemplateRepository {
	return &templateRepository{db: db}
}

var _ TemplateRepository = (*templateRepository)(nil)

func (r *templateRepository) GetByName(ctx context.Context, name string) (*models.PromptTemplate, error) {
	const query = `
		SELECT id, name, version, content, description, is_active, usage_count,
		       created_by, created_at, updated_at
		FROM engine_prompt_templates
		WHERE name = $1 AND is_active = TRUE
		ORDER BY version DESC
		LIMIT 1`

	return r.scanOne(r.db.QueryRow(ctx, query, name))
}

func (r *templateRepository) GetByNameVersion(ctx context.Context, name string, version int) (*models.PromptTemplate, error) {
	const query = `
		SELECT id, name, version, content, description, is_active, usage_count,
		       created_by, created_at, updated_at
		FROM engine_prompt_templates
		WHERE name = $1 AND version = $2`

	return r.scanOne(r.db.QueryRow(ctx, query, name, version))
}

func (r *templateRepository) scanOne(row pgx.Row) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	err := row.Scan(
		&t.ID, &t.Name, &t.Version, &t.Content, &t.Description, &t.IsActive,
		&t.UsageCount, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan prompt template: %w", err)
	}
	return &t, nil
}

func (r *templateRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE engine_prompt_templates
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *templateRepository) Save(ctx context.Context, template *models.PromptTemplate) error {
	if !template.Validate() {
		return fmt.Errorf("save prompt template %q: %w", template.Name, apperrors.ErrInvalidTemplate)
	}

	now := time.Now()

	const query = `
		INSERT INTO engine_prompt_templates (
			name, version, content, description, is_active, created_by,
			created_at, updated_at
		)
		VALUES (
			$1,
			COALESCE((SELECT MAX(version) FROM engine_prompt_templates WHERE name = $1), 0) + 1,
			$2, $3, $4, $5, $6, $6
		)
		RETURNING id, version, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		template.Name,
		template.Content,
		template.Description,
		template.IsActive,
		template.CreatedBy,
		now,
	).Scan(&template.ID, &template.Version, &template.CreatedAt, &template.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("save prompt template %q: %w", template.Name, apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("save prompt template %q: %w", template.Name, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (error code 23505). Two writers racing on the same template name
// can both compute the same next version.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
