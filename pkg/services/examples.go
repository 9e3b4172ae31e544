package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ExampleSelector picks worked question/SQL pairs relevant to a query for
// few-shot prompt sections.
type ExampleSelector interface {
	// SelectExamples returns formatted examples matching the query, at most
	// maxExamples of them; maxExamples <= 0 keeps every match. An unmatched
	// or empty query yields the generic example so the prompt section is
	// never empty.
	SelectExamples(query string, maxExamples int) string
}

type exampleSelector struct {
	pack   *RulePack
	logger *zap.Logger
}

// NewExampleSelector creates an example selector backed by the given pack.
func NewExampleSelector(pack *RulePack, logger *zap.Logger) ExampleSelector {
	return &exampleSelector{
		pack:   pack,
		logger: logger.Named("example-selector"),
	}
}

func (s *exampleSelector) SelectExamples(query string, maxExamples int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))

	var selected []ExampleTrigger
	if normalized != "" {
		for _, ex := range s.pack.Examples {
			if maxExamples > 0 && len(selected) >= maxExamples {
				break
			}
			if triggerMatches(ex.Keywords, normalized) {
				selected = append(selected, ex)
			}
		}
	}

	if len(selected) == 0 {
		selected = append(selected, s.pack.DefaultExample)
		s.logger.Debug("No example triggers matched, using generic example",
			zap.String("query", normalized))
	}

	return formatExamples(selected)
}

func formatExamples(examples []ExampleTrigger) string {
	var sb strings.Builder
	for i, ex := range examples {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Question: %s\nSQL:\n%s", ex.Pattern, ex.SQL)
	}
	return sb.String()
}

var _ ExampleSelector = (*exampleSelector)(nil)
