package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestExampleSelector() ExampleSelector {
	return NewExampleSelector(DefaultRulePack(), zap.NewNop())
}

func TestSelectExamples_GamesQuery(t *testing.T) {
	selector := newTestExampleSelector()

	out := selector.SelectExamples("top games by revenue this month", 2)

	assert.Contains(t, out, "Question: Top games by revenue this month")
	assert.Contains(t, out, "FROM game_daily_stats")
	assert.NotContains(t, out, "FROM payments", "unrelated examples stay out")
}

func TestSelectExamples_RespectsLimit(t *testing.T) {
	selector := newTestExampleSelector()

	// Touches games, payments, and bonuses triggers at once.
	out := selector.SelectExamples("games deposits bonus revenue", 2)

	assert.Equal(t, 2, strings.Count(out, "Question:"))
}

func TestSelectExamples_UnmatchedQueryGetsGeneric(t *testing.T) {
	selector := newTestExampleSelector()

	out := selector.SelectExamples("xyzzy", 2)

	assert.Contains(t, out, "Question: How many active players do we have")
	assert.Contains(t, out, "FROM players")
}

func TestSelectExamples_EmptyQueryGetsGeneric(t *testing.T) {
	selector := newTestExampleSelector()

	out := selector.SelectExamples("", 3)

	assert.Equal(t, 1, strings.Count(out, "Question:"))
	assert.Contains(t, out, "active_players")
}

func TestSelectExamples_NonPositiveLimitKeepsAllMatches(t *testing.T) {
	selector := newTestExampleSelector()

	// Fires the games, payments, and bonuses triggers.
	out := selector.SelectExamples("games deposits bonus", 0)

	assert.Equal(t, 3, strings.Count(out, "Question:"))
	assert.Contains(t, out, "FROM game_daily_stats")
	assert.Contains(t, out, "FROM payments")
	assert.Contains(t, out, "FROM bonus_awards")
}
