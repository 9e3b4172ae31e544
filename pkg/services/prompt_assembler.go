package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/logging"
	"github.com/spinhouse/prompt-engine/pkg/models"
	"github.com/spinhouse/prompt-engine/pkg/prompts"
	"github.com/spinhouse/prompt-engine/pkg/repositories"
	"github.com/spinhouse/prompt-engine/pkg/retry"
)

// PromptService assembles complete SQL-generation prompts from schema
// context, business rules, examples, and learned insights.
type PromptService interface {
	// BuildQueryPrompt assembles the full prompt for a question. It never
	// fails: every degraded input falls back to something usable, down to
	// a minimal built-in prompt. extraContext is optional caller-supplied
	// text carried into the context section; empty means none.
	BuildQueryPrompt(ctx context.Context, question string, tables []models.TableMetadata, extraContext string) string

	// BuildDetailedQueryPrompt is BuildQueryPrompt plus a per-section
	// breakdown, the substitution variables, and a token estimate.
	BuildDetailedQueryPrompt(ctx context.Context, question string, tables []models.TableMetadata, extraContext string) *models.PromptDetails
}

type promptService struct {
	relevance   SchemaRelevanceService
	description SchemaDescriptionService
	rules       BusinessRuleEngine
	examples    ExampleSelector
	learning    LearningService
	templates   repositories.TemplateRepository  // nil disables stored templates
	promptLog   repositories.PromptLogRepository // nil disables audit records
	logger      *zap.Logger
}

// NewPromptService creates a new PromptService. The template and prompt
// log repositories may be nil; assembly then runs on the built-in template
// without audit records.
func NewPromptService(
	relevance SchemaRelevanceService,
	description SchemaDescriptionService,
	rules BusinessRuleEngine,
	examples ExampleSelector,
	learning LearningService,
	templates repositories.TemplateRepository,
	promptLog repositories.PromptLogRepository,
	logger *zap.Logger,
) PromptService {
	return &promptService{
		relevance:   relevance,
		description: description,
		rules:       rules,
		examples:    examples,
		learning:    learning,
		templates:   templates,
		promptLog:   promptLog,
		logger:      logger.Named("prompt-service"),
	}
}

var _ PromptService = (*promptService)(nil)

func (s *promptService) BuildQueryPrompt(ctx context.Context, question string, tables []models.TableMetadata, extraContext string) string {
	return s.BuildDetailedQueryPrompt(ctx, question, tables, extraContext).Prompt
}

func (s *promptService) BuildDetailedQueryPrompt(ctx context.Context, question string, tables []models.TableMetadata, extraContext string) (details *models.PromptDetails) {
	// Assembly must survive anything, including bugs in the sections
	// below. The recover guard trades a degraded prompt for a crash.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Prompt assembly panicked, returning fallback prompt",
				zap.Any("panic", r),
				zap.String("query", logging.TruncateQuery(question)))
			details = s.fallbackDetails(question)
		}
	}()

	question = strings.TrimSpace(question)

	schemaCtx := s.relevance.GetRelevantSchema(ctx, question, tables)
	schemaSection := s.description.Describe(ctx, schemaCtx.RelevantTables)
	if schemaSection == "" {
		schemaSection = "(no schema information available)"
	}

	rulesSection := s.rules.Render(s.rules.ApplicableRules(question))
	// No example cap here: every trigger the question fires contributes.
	examplesSection := s.examples.SelectExamples(question, 0)
	contextSection := renderContextSection(schemaCtx, s.learning.GetInsights(ctx, question), extraContext)

	template, fallbackUsed := s.resolveTemplate(ctx)

	vars := prompts.StandardVars(question, schemaSection, rulesSection, examplesSection, contextSection)
	prompt := prompts.Substitute(template.Content, vars)

	details = &models.PromptDetails{
		Prompt: prompt,
		Sections: []models.PromptSection{
			{Label: "schema", Content: schemaSection},
			{Label: "business_rules", Content: rulesSection},
			{Label: "examples", Content: examplesSection},
			{Label: "context", Content: contextSection},
		},
		Variables:       vars,
		EstimatedTokens: models.EstimateTokens(prompt),
		TemplateName:    template.Name,
		FallbackUsed:    fallbackUsed,
		GeneratedAt:     time.Now(),
	}

	s.recordUsage(ctx, template)
	s.recordGeneration(ctx, question, details, len(schemaCtx.RelevantTables))

	s.logger.Debug("Prompt assembled",
		zap.String("template", template.Name),
		zap.Bool("fallback_used", fallbackUsed),
		zap.Int("table_count", len(schemaCtx.RelevantTables)),
		zap.Int("estimated_tokens", details.EstimatedTokens))

	return details
}

// resolveTemplate walks the fallback chain: the stored sql_generation
// template, then the stored legacy name, then the built-in default. Every
// failure is logged and absorbed.
func (s *promptService) resolveTemplate(ctx context.Context) (*models.PromptTemplate, bool) {
	if s.templates != nil {
		for _, name := range []string{prompts.TemplateNameSQLGeneration, prompts.TemplateNameLegacy} {
			template, err := s.templates.GetByName(ctx, name)
			if err != nil {
				s.logger.Debug("Stored template unavailable",
					zap.String("name", name),
					zap.Error(err))
				continue
			}
			if !template.Validate() {
				s.logger.Warn("Stored template is missing required placeholders, skipping",
					zap.String("name", name),
					zap.Int("version", template.Version))
				continue
			}
			return template, name != prompts.TemplateNameSQLGeneration
		}
	}

	return &models.PromptTemplate{
		Name:    prompts.TemplateNameSQLGeneration,
		Content: prompts.DefaultSQLGenerationTemplate,
	}, true
}

// recordUsage bumps the template usage counter, best-effort.
func (s *promptService) recordUsage(ctx context.Context, template *models.PromptTemplate) {
	if s.templates == nil || template.ID == uuid.Nil {
		return
	}
	err := retry.Do(ctx, retry.BestEffortConfig(), func() error {
		return s.templates.IncrementUsage(ctx, template.ID)
	})
	if err != nil {
		s.logger.Warn("Failed to increment template usage",
			zap.String("template", template.Name),
			zap.Error(err))
	}
}

// recordGeneration persists the audit record, best-effort.
func (s *promptService) recordGeneration(ctx context.Context, question string, details *models.PromptDetails, tableCount int) {
	if s.promptLog == nil {
		return
	}
	record := &models.PromptGeneration{
		TemplateName:    details.TemplateName,
		Query:           logging.TruncateQuery(question),
		Prompt:          logging.TruncatePrompt(details.Prompt),
		TableCount:      tableCount,
		EstimatedTokens: details.EstimatedTokens,
		FallbackUsed:    details.FallbackUsed,
	}
	err := retry.Do(ctx, retry.BestEffortConfig(), func() error {
		return s.promptLog.Create(ctx, record)
	})
	if err != nil {
		s.logger.Warn("Failed to write prompt generation record", zap.Error(err))
	}
}

// fallbackDetails builds the minimal prompt used when assembly itself
// fails. It depends on nothing but the question.
func (s *promptService) fallbackDetails(question string) *models.PromptDetails {
	prompt := fmt.Sprintf(
		"Generate a single valid SQL SELECT statement that answers this question:\n%s\n\nUse standard SQL and qualify every column with its table alias.",
		strings.TrimSpace(question))
	return &models.PromptDetails{
		Prompt:          prompt,
		EstimatedTokens: models.EstimateTokens(prompt),
		TemplateName:    prompts.TemplateNameSQLGeneration,
		FallbackUsed:    true,
		GeneratedAt:     time.Now(),
	}
}

// renderContextSection combines join suggestions, glossary terms, learned
// hints, and any caller-supplied text into the {context} block.
func renderContextSection(schemaCtx *models.SchemaContext, insights *models.LearningInsights, extraContext string) string {
	var parts []string

	if len(schemaCtx.JoinSuggestions) > 0 {
		var sb strings.Builder
		sb.WriteString("Suggested joins:")
		for _, join := range schemaCtx.JoinSuggestions {
			sb.WriteString("\n- ")
			sb.WriteString(join)
		}
		parts = append(parts, sb.String())
	}

	if len(schemaCtx.Glossary) > 0 {
		terms := make([]string, 0, len(schemaCtx.Glossary))
		for term := range schemaCtx.Glossary {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		var sb strings.Builder
		sb.WriteString("Glossary:")
		for _, term := range terms {
			fmt.Fprintf(&sb, "\n- %s: %s", term, schemaCtx.Glossary[term])
		}
		parts = append(parts, sb.String())
	}

	if insights != nil && len(insights.OptimizationHints) > 0 {
		var sb strings.Builder
		sb.WriteString("Lessons from past feedback:")
		for _, hint := range insights.OptimizationHints {
			sb.WriteString("\n- ")
			sb.WriteString(hint)
		}
		parts = append(parts, sb.String())
	}

	if extra := strings.TrimSpace(extraContext); extra != "" {
		parts = append(parts, "Additional context:\n"+extra)
	}

	if len(parts) == 0 {
		return "(no additional context)"
	}
	return strings.Join(parts, "\n\n")
}
