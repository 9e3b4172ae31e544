package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placeholder tokens recognized in template content. Substitution is
// literal text replacement; unknown tokens are left untouched.
const (
	PlaceholderSchema        = "{schema}"
	PlaceholderQuestion      = "{question}"
	PlaceholderBusinessRules = "{business_rules}"
	PlaceholderExamples      = "{examples}"
	PlaceholderContext       = "{context}"
)

// PromptTemplate is a named, versioned template string stored in the
// template store. Fetched read-mostly; the usage counter is incremented as
// a side effect of each fetch during prompt assembly.
type PromptTemplate struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Version     int        `json:"version"`
	Content     string     `json:"content"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	UsageCount  int64      `json:"usage_count"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks that the template carries the placeholders prompt
// assembly depends on. Templates without {question} or {schema} would
// produce prompts the LLM cannot answer.
func (t *PromptTemplate) Validate() bool {
	return strings.Contains(t.Content, PlaceholderQuestion) &&
		strings.Contains(t.Content, PlaceholderSchema)
}
