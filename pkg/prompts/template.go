package prompts

import (
	"strings"

	"github.com/spinhouse/prompt-engine/pkg/models"
)

// Template names the assembler looks up in the template store, in order.
const (
	TemplateNameSQLGeneration = "sql_generation"
	// TemplateNameLegacy is the pre-rename template name still present in
	// older deployments. Tried when TemplateNameSQLGeneration is absent.
	TemplateNameLegacy = "query_generation"
)

// DefaultSQLGenerationTemplate is the built-in template used when the
// template store has neither the primary nor the legacy template, or is
// unreachable. It must always produce a usable prompt.
const DefaultSQLGenerationTemplate = `You are an expert SQL analyst for an online gaming platform. Generate a single valid SQL query that answers the business question below.

## Database Schema

{schema}

## Business Rules

{business_rules}

## Examples

{examples}

## Additional Context

{context}

## Question

{question}

Respond with ONLY the SQL query, no explanation and no markdown fences.`

// Substitute performs literal placeholder replacement on a template.
// Placeholders absent from vars are left untouched; unknown keys in vars
// are ignored.
func Substitute(template string, vars map[string]string) string {
	result := template
	for placeholder, value := range vars {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// StandardVars builds the substitution map for the recognized placeholders.
func StandardVars(question, schema, rules, examples, context string) map[string]string {
	return map[string]string{
		models.PlaceholderQuestion:      question,
		models.PlaceholderSchema:        schema,
		models.PlaceholderBusinessRules: rules,
		models.PlaceholderExamples:      examples,
		models.PlaceholderContext:       context,
	}
}
