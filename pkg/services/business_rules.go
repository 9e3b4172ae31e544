package services

import (
	"strings"

	"go.uber.org/zap"
)

// BusinessRuleEngine resolves which warehouse conventions apply to a
// question and renders them for prompt inclusion.
type BusinessRuleEngine interface {
	// ApplicableRules returns the rules triggered by the query, in trigger
	// order, deduplicated. An empty or unmatched query yields the default
	// rule set so the prompt always carries guidance.
	ApplicableRules(query string) []string

	// Render formats rules as the bullet list substituted into prompts.
	Render(rules []string) string
}

type businessRuleEngine struct {
	pack   *RulePack
	logger *zap.Logger
}

// NewBusinessRuleEngine creates a rule engine backed by the given pack.
func NewBusinessRuleEngine(pack *RulePack, logger *zap.Logger) BusinessRuleEngine {
	return &businessRuleEngine{
		pack:   pack,
		logger: logger.Named("business-rule-engine"),
	}
}

func (e *businessRuleEngine) ApplicableRules(query string) []string {
	normalized := strings.ToLower(strings.TrimSpace(query))

	var rules []string
	seen := make(map[string]bool)
	appendRules := func(rs []string) {
		for _, r := range rs {
			if !seen[r] {
				seen[r] = true
				rules = append(rules, r)
			}
		}
	}

	if normalized != "" {
		for _, trigger := range e.pack.Rules {
			if triggerMatches(trigger.Keywords, normalized) {
				appendRules(trigger.Rules)
			}
		}
	}

	if len(rules) == 0 {
		appendRules(e.pack.DefaultRules)
		e.logger.Debug("No rule triggers matched, using defaults",
			zap.String("query", normalized))
	} else {
		// Baseline rules always apply on top of triggered ones.
		appendRules(e.pack.DefaultRules)
	}

	return rules
}

func (e *businessRuleEngine) Render(rules []string) string {
	if len(rules) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, r := range rules {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(r)
	}
	return sb.String()
}

var _ BusinessRuleEngine = (*businessRuleEngine)(nil)
