package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRuleEngine() BusinessRuleEngine {
	return NewBusinessRuleEngine(DefaultRulePack(), zap.NewNop())
}

func TestApplicableRules_PaymentQuery(t *testing.T) {
	engine := newTestRuleEngine()

	rules := engine.ApplicableRules("total deposits by payment method last week")
	require.NotEmpty(t, rules)

	joined := strings.Join(rules, "\n")
	assert.Contains(t, joined, "transaction_type = 'deposit'")
	assert.Contains(t, joined, "'completed', not 'success'")
	assert.Contains(t, joined, "date_trunc", "relative-date rules fire for 'last week'")
}

func TestApplicableRules_BaselineAlwaysIncluded(t *testing.T) {
	engine := newTestRuleEngine()

	rules := engine.ApplicableRules("top games by ggr")

	joined := strings.Join(rules, "\n")
	assert.Contains(t, joined, "single SELECT statement")
	assert.Contains(t, joined, "never report raw game_id")
}

func TestApplicableRules_UnmatchedQueryGetsDefaults(t *testing.T) {
	engine := newTestRuleEngine()

	rules := engine.ApplicableRules("xyzzy")

	assert.Equal(t, DefaultRulePack().DefaultRules, rules)
}

func TestApplicableRules_EmptyQueryGetsDefaults(t *testing.T) {
	engine := newTestRuleEngine()

	rules := engine.ApplicableRules("  ")

	assert.Equal(t, DefaultRulePack().DefaultRules, rules)
}

func TestApplicableRules_Deduplicates(t *testing.T) {
	pack := &RulePack{
		Rules: []RuleTrigger{
			{Name: "a", Keywords: []string{"games"}, Rules: []string{"shared rule"}},
			{Name: "b", Keywords: []string{"ggr"}, Rules: []string{"shared rule", "extra rule"}},
		},
		DefaultRules: []string{"baseline"},
	}
	engine := NewBusinessRuleEngine(pack, zap.NewNop())

	rules := engine.ApplicableRules("games ggr")

	assert.Equal(t, []string{"shared rule", "extra rule", "baseline"}, rules)
}

func TestApplicableRules_TriggerOrderIsStable(t *testing.T) {
	engine := newTestRuleEngine()

	first := engine.ApplicableRules("bonus deposits for active players this month")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, engine.ApplicableRules("bonus deposits for active players this month"))
	}
}

func TestRender(t *testing.T) {
	engine := newTestRuleEngine()

	assert.Equal(t, "", engine.Render(nil))
	assert.Equal(t, "- one\n- two", engine.Render([]string{"one", "two"}))
}
