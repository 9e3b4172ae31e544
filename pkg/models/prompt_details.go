package models

import "time"

// PromptDetails is the structured form of an assembled prompt: the final
// text plus a per-section breakdown, the variable-substitution map, and an
// approximate token estimate. Immutable once returned.
type PromptDetails struct {
	Prompt          string            `json:"prompt"`
	Sections        []PromptSection   `json:"sections"`
	Variables       map[string]string `json:"variables"`
	EstimatedTokens int               `json:"estimated_tokens"`
	TemplateName    string            `json:"template_name"`
	FallbackUsed    bool              `json:"fallback_used"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// PromptSection is one labeled block of an assembled prompt.
type PromptSection struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// EstimateTokens approximates the token count of a text block as one token
// per four characters, rounded up. Good enough for sizing prompts; exact
// tokenization is provider-specific.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
