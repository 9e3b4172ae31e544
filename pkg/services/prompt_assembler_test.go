package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/apperrors"
	"github.com/spinhouse/prompt-engine/pkg/models"
	"github.com/spinhouse/prompt-engine/pkg/prompts"
)

type mockTemplateRepository struct {
	templates      map[string]*models.PromptTemplate
	getErr         error
	incrementErr   error
	incrementCalls int
	saveCalls      int
}

func (m *mockTemplateRepository) GetByName(_ context.Context, name string) (*models.PromptTemplate, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	template, ok := m.templates[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return template, nil
}

func (m *mockTemplateRepository) GetByNameVersion(_ context.Context, name string, _ int) (*models.PromptTemplate, error) {
	return m.GetByName(context.Background(), name)
}

func (m *mockTemplateRepository) IncrementUsage(_ context.Context, _ uuid.UUID) error {
	m.incrementCalls++
	return m.incrementErr
}

func (m *mockTemplateRepository) Save(_ context.Context, _ *models.PromptTemplate) error {
	m.saveCalls++
	return nil
}

type mockPromptLogRepository struct {
	records   []*models.PromptGeneration
	createErr error
}

func (m *mockPromptLogRepository) Create(_ context.Context, record *models.PromptGeneration) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, record)
	return nil
}

func storedTemplate(name, content string) *models.PromptTemplate {
	return &models.PromptTemplate{
		ID:       uuid.New(),
		Name:     name,
		Version:  1,
		Content:  content,
		IsActive: true,
	}
}

func newTestPromptService(templates *mockTemplateRepository, promptLog *mockPromptLogRepository) PromptService {
	logger := zap.NewNop()
	pack := DefaultRulePack()
	relevance := NewSchemaRelevanceService(NewKeywordSemanticAnalyzer(logger), testScoringConfig(), logger)
	description := newTestDescriptionService(nil)
	rules := NewBusinessRuleEngine(pack, logger)
	examples := NewExampleSelector(pack, logger)
	learning := newTestLearningService(&mockFeedbackRepository{})

	// Assign the mocks conditionally so a nil *mock never becomes a
	// non-nil interface value inside the service.
	svc := &promptService{
		relevance:   relevance,
		description: description,
		rules:       rules,
		examples:    examples,
		learning:    learning,
		logger:      logger,
	}
	if templates != nil {
		svc.templates = templates
	}
	if promptLog != nil {
		svc.promptLog = promptLog
	}
	return svc
}

func TestBuildQueryPrompt_AssemblesAllSections(t *testing.T) {
	svc := newTestPromptService(nil, nil)

	prompt := svc.BuildQueryPrompt(context.Background(), "top games by revenue this month", gamingCatalogue(), "")

	assert.Contains(t, prompt, "top games by revenue this month")
	assert.Contains(t, prompt, "### public.game_daily_stats")
	assert.Contains(t, prompt, "never report raw game_id")
	assert.Contains(t, prompt, "Question: Top games by revenue this month")
	assert.NotContains(t, prompt, "{question}", "all placeholders must be substituted")
	assert.NotContains(t, prompt, "{schema}")
}

func TestBuildDetailedQueryPrompt_SectionsAndEstimate(t *testing.T) {
	svc := newTestPromptService(nil, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "total deposits last week", gamingCatalogue(), "")
	require.NotNil(t, details)

	labels := make([]string, 0, len(details.Sections))
	for _, section := range details.Sections {
		labels = append(labels, section.Label)
	}
	assert.Equal(t, []string{"schema", "business_rules", "examples", "context"}, labels)
	assert.Equal(t, models.EstimateTokens(details.Prompt), details.EstimatedTokens)
	assert.True(t, details.FallbackUsed, "no stored template means the built-in fallback")
	assert.Equal(t, prompts.TemplateNameSQLGeneration, details.TemplateName)
	assert.False(t, details.GeneratedAt.IsZero())
}

func TestBuildDetailedQueryPrompt_UsesStoredTemplate(t *testing.T) {
	templates := &mockTemplateRepository{templates: map[string]*models.PromptTemplate{
		prompts.TemplateNameSQLGeneration: storedTemplate(prompts.TemplateNameSQLGeneration,
			"CUSTOM {question} {schema} {business_rules} {examples} {context}"),
	}}
	svc := newTestPromptService(templates, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(), "")

	assert.Contains(t, details.Prompt, "CUSTOM top games")
	assert.False(t, details.FallbackUsed)
	assert.Equal(t, 1, templates.incrementCalls, "stored template usage is counted")
}

func TestBuildDetailedQueryPrompt_LegacyTemplateFallback(t *testing.T) {
	templates := &mockTemplateRepository{templates: map[string]*models.PromptTemplate{
		prompts.TemplateNameLegacy: storedTemplate(prompts.TemplateNameLegacy,
			"LEGACY {question} {schema}"),
	}}
	svc := newTestPromptService(templates, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(), "")

	assert.Contains(t, details.Prompt, "LEGACY top games")
	assert.Equal(t, prompts.TemplateNameLegacy, details.TemplateName)
	assert.True(t, details.FallbackUsed, "legacy template counts as a fallback")
}

func TestBuildDetailedQueryPrompt_InvalidStoredTemplateSkipped(t *testing.T) {
	templates := &mockTemplateRepository{templates: map[string]*models.PromptTemplate{
		prompts.TemplateNameSQLGeneration: storedTemplate(prompts.TemplateNameSQLGeneration,
			"no placeholders at all"),
	}}
	svc := newTestPromptService(templates, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(), "")

	assert.True(t, details.FallbackUsed)
	assert.NotContains(t, details.Prompt, "no placeholders at all")
	assert.Contains(t, details.Prompt, "top games")
}

func TestBuildDetailedQueryPrompt_TemplateRepoErrorFallsBack(t *testing.T) {
	templates := &mockTemplateRepository{getErr: errors.New("db down")}
	svc := newTestPromptService(templates, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(), "")

	require.NotNil(t, details)
	assert.True(t, details.FallbackUsed)
	assert.Contains(t, details.Prompt, "top games")
}

func TestBuildDetailedQueryPrompt_IncrementFailureIsSwallowed(t *testing.T) {
	templates := &mockTemplateRepository{
		templates: map[string]*models.PromptTemplate{
			prompts.TemplateNameSQLGeneration: storedTemplate(prompts.TemplateNameSQLGeneration,
				"T {question} {schema}"),
		},
		incrementErr: errors.New("update failed"),
	}
	svc := newTestPromptService(templates, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(), "")

	require.NotNil(t, details)
	assert.Contains(t, details.Prompt, "T top games")
}

func TestBuildDetailedQueryPrompt_WritesAuditRecord(t *testing.T) {
	promptLog := &mockPromptLogRepository{}
	svc := newTestPromptService(nil, promptLog)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games by ggr", gamingCatalogue(), "")

	require.Len(t, promptLog.records, 1)
	record := promptLog.records[0]
	assert.Equal(t, "top games by ggr", record.Query)
	assert.Equal(t, details.TemplateName, record.TemplateName)
	assert.Equal(t, details.EstimatedTokens, record.EstimatedTokens)
	assert.Positive(t, record.TableCount)
}

func TestBuildDetailedQueryPrompt_AuditFailureIsSwallowed(t *testing.T) {
	promptLog := &mockPromptLogRepository{createErr: errors.New("insert failed")}
	svc := newTestPromptService(nil, promptLog)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(), "")

	require.NotNil(t, details)
	assert.NotEmpty(t, details.Prompt)
}

func TestBuildDetailedQueryPrompt_EmptyCatalogue(t *testing.T) {
	svc := newTestPromptService(nil, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", nil, "")

	require.NotNil(t, details)
	assert.Contains(t, details.Prompt, "(no schema information available)")
	assert.Contains(t, details.Prompt, "top games")
}

func TestBuildDetailedQueryPrompt_EmptyQuestion(t *testing.T) {
	svc := newTestPromptService(nil, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "", gamingCatalogue(), "")

	require.NotNil(t, details)
	assert.Contains(t, details.Prompt, "### public.player_daily_activity",
		"empty question still yields the default schema subset")
}

func TestBuildDetailedQueryPrompt_PanicYieldsFallbackPrompt(t *testing.T) {
	svc := newTestPromptService(nil, nil).(*promptService)
	// A nil rule engine makes section assembly panic.
	svc.rules = nil

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(), "")

	require.NotNil(t, details)
	assert.True(t, details.FallbackUsed)
	assert.Contains(t, details.Prompt, "top games")
	assert.Contains(t, details.Prompt, "SELECT")
}

func TestBuildDetailedQueryPrompt_CallerContextCarriedIntoPrompt(t *testing.T) {
	svc := newTestPromptService(nil, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "top games", gamingCatalogue(),
		"Finance closes the books on the 3rd; exclude the current month.")

	var contextSection string
	for _, section := range details.Sections {
		if section.Label == "context" {
			contextSection = section.Content
		}
	}
	assert.Contains(t, contextSection, "Additional context:")
	assert.Contains(t, contextSection, "exclude the current month")
	assert.Contains(t, details.Prompt, "exclude the current month")
}

func TestBuildDetailedQueryPrompt_AllFiredExampleTriggersIncluded(t *testing.T) {
	svc := newTestPromptService(nil, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "games deposits bonus revenue", gamingCatalogue(), "")

	var examplesSection string
	for _, section := range details.Sections {
		if section.Label == "examples" {
			examplesSection = section.Content
		}
	}
	assert.Contains(t, examplesSection, "FROM game_daily_stats")
	assert.Contains(t, examplesSection, "FROM payments")
	assert.Contains(t, examplesSection, "FROM bonus_awards")
}

func TestBuildDetailedQueryPrompt_ContextSectionCarriesJoinsAndGlossary(t *testing.T) {
	svc := newTestPromptService(nil, nil)

	details := svc.BuildDetailedQueryPrompt(context.Background(), "ggr for top games this month", gamingCatalogue(), "")

	var contextSection string
	for _, section := range details.Sections {
		if section.Label == "context" {
			contextSection = section.Content
		}
	}
	assert.Contains(t, contextSection, "JOIN games ON games.game_id = game_daily_stats.game_id")
	assert.Contains(t, contextSection, "ggr: Gross Gaming Revenue")
}
