package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptGeneration is the audit record written after each prompt assembly.
// Persisting it is best-effort: a write failure never fails the request
// that produced the prompt.
type PromptGeneration struct {
	ID              uuid.UUID `json:"id"`
	TemplateName    string    `json:"template_name"`
	Query           string    `json:"query"`
	Prompt          string    `json:"prompt"` // truncated before persistence
	TableCount      int       `json:"table_count"`
	EstimatedTokens int       `json:"estimated_tokens"`
	FallbackUsed    bool      `json:"fallback_used"`
	CreatedAt       time.Time `json:"created_at"`
}
