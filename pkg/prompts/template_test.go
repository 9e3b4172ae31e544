package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spinhouse/prompt-engine/pkg/models"
)

func TestSubstitute(t *testing.T) {
	template := "Q: {question}\nS: {schema}"
	got := Substitute(template, map[string]string{
		models.PlaceholderQuestion: "top games",
		models.PlaceholderSchema:   "games(...)",
	})

	assert.Equal(t, "Q: top games\nS: games(...)", got)
}

func TestSubstitute_LeavesUnknownPlaceholders(t *testing.T) {
	got := Substitute("{question} {custom}", map[string]string{
		models.PlaceholderQuestion: "q",
	})
	assert.Equal(t, "q {custom}", got)
}

func TestDefaultTemplate_CarriesAllPlaceholders(t *testing.T) {
	for _, placeholder := range []string{
		models.PlaceholderSchema,
		models.PlaceholderQuestion,
		models.PlaceholderBusinessRules,
		models.PlaceholderExamples,
		models.PlaceholderContext,
	} {
		assert.Contains(t, DefaultSQLGenerationTemplate, placeholder)
	}
}

func TestStandardVars_SubstitutesDefaultTemplateCompletely(t *testing.T) {
	vars := StandardVars("question", "schema", "rules", "examples", "context")
	got := Substitute(DefaultSQLGenerationTemplate, vars)

	assert.False(t, strings.Contains(got, "{"), "all placeholders should be substituted, got: %s", got)
	assert.Contains(t, got, "question")
	assert.Contains(t, got, "schema")
}
