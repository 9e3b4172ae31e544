package services

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RuleTrigger is one keyword trigger of the business rule engine. Triggers
// fire independently, in declaration order; each match appends its rules.
type RuleTrigger struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Rules    []string `yaml:"rules"`
}

// ExampleTrigger binds keywords to one canonical worked example.
type ExampleTrigger struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Pattern  string   `yaml:"pattern"`
	SQL      string   `yaml:"sql"`
}

// RulePack is the full data-driven rule configuration: ordered rule
// triggers, ordered example triggers, and the defaults used when no
// trigger fires.
type RulePack struct {
	Rules          []RuleTrigger    `yaml:"rules"`
	Examples       []ExampleTrigger `yaml:"examples"`
	DefaultRules   []string         `yaml:"default_rules"`
	DefaultExample ExampleTrigger   `yaml:"default_example"`
}

// matches reports whether any of the trigger's keywords occur in the
// lower-cased query.
func triggerMatches(keywords []string, query string) bool {
	for _, kw := range keywords {
		if containsWord(query, kw) {
			return true
		}
	}
	return false
}

// LoadRulePack reads a rule pack override from a YAML file. An empty path
// or any load failure yields the built-in pack; failures are logged, not
// propagated, so a bad override file cannot take prompt generation down.
func LoadRulePack(path string, logger *zap.Logger) *RulePack {
	if path == "" {
		return DefaultRulePack()
	}

	pack, err := readRulePack(path)
	if err != nil {
		logger.Warn("Failed to load rule pack override, using built-in pack",
			zap.String("path", path),
			zap.Error(err))
		return DefaultRulePack()
	}
	return pack
}

func readRulePack(path string) (*RulePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}

	var pack RulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	if len(pack.Rules) == 0 && len(pack.Examples) == 0 {
		return nil, fmt.Errorf("rule pack defines no triggers")
	}

	// Fill gaps from the built-in pack so a partial override stays usable.
	builtin := DefaultRulePack()
	if len(pack.Rules) == 0 {
		pack.Rules = builtin.Rules
	}
	if len(pack.Examples) == 0 {
		pack.Examples = builtin.Examples
	}
	if len(pack.DefaultRules) == 0 {
		pack.DefaultRules = builtin.DefaultRules
	}
	if pack.DefaultExample.SQL == "" {
		pack.DefaultExample = builtin.DefaultExample
	}
	return &pack, nil
}

// DefaultRulePack returns the built-in rule pack for the gaming warehouse.
func DefaultRulePack() *RulePack {
	return &RulePack{
		Rules: []RuleTrigger{
			{
				Name:     "games",
				Keywords: []string{"game", "games", "ggr", "rtp", "slot", "slots", "provider"},
				Rules: []string{
					"Join game_daily_stats to games on game_id to resolve game names; never report raw game_id values.",
					"Revenue for games means SUM(ggr_amount) from game_daily_stats; bet_amount is turnover, not revenue.",
				},
			},
			{
				Name:     "payments",
				Keywords: []string{"deposit", "deposits", "withdrawal", "withdrawals", "payment", "payments", "cashier"},
				Rules: []string{
					"Deposits and withdrawals both live in payments; filter with transaction_type = 'deposit' or 'withdrawal'.",
					"payments.status uses 'completed', not 'success'; only completed transactions count toward totals.",
					"Join payments to payment_methods on payment_method_id to resolve method names.",
				},
			},
			{
				Name:     "bonuses",
				Keywords: []string{"bonus", "bonuses", "promotion", "promotions", "free spins"},
				Rules: []string{
					"bonus_awards holds one row per awarded bonus; join to bonuses on bonus_id for names and types.",
					"Bonus cost is bonus_awards.awarded_amount; wagering progress is bonus_awards.wagering_completed.",
				},
			},
			{
				Name: "relative dates",
				Keywords: []string{
					"today", "yesterday", "this week", "last week", "this month",
					"last month", "this year", "last year", "last 7 days", "last 30 days",
				},
				Rules: []string{
					"Resolve relative dates against CURRENT_DATE; 'this month' means activity_date >= date_trunc('month', CURRENT_DATE).",
					"activity_date columns are DATE typed; do not compare them to timestamps without casting.",
				},
			},
			{
				Name:     "aggregation",
				Keywords: []string{"top", "total", "sum", "average", "count", "how many", "how much"},
				Rules: []string{
					"Aggregate with GROUP BY before ordering; apply LIMIT for top-N questions.",
					"Wrap nullable monetary columns in COALESCE(x, 0) before SUM or AVG.",
				},
			},
			{
				Name:     "player status",
				Keywords: []string{"active", "churned", "blocked", "vip"},
				Rules: []string{
					"players.status values are 'active', 'blocked', 'self_excluded', 'closed'; 'active players' means status = 'active'.",
					"VIP means players.vip_level >= 1; there is no boolean vip column.",
				},
			},
			{
				Name:     "player joins",
				Keywords: []string{"player", "players", "country", "countries"},
				Rules: []string{
					"Join facts to players on player_id; join players to countries on country_code for geography.",
				},
			},
		},
		DefaultRules: []string{
			"Generate a single SELECT statement; never modify data.",
			"Qualify every column with its table alias.",
			"Use only tables and columns present in the schema section.",
		},
		Examples: []ExampleTrigger{
			{
				Name:     "top games by revenue",
				Keywords: []string{"game", "games", "ggr", "revenue"},
				Pattern:  "Top games by revenue this month",
				SQL: `SELECT g.game_name, SUM(s.ggr_amount) AS revenue
FROM game_daily_stats s
JOIN games g ON g.game_id = s.game_id
WHERE s.activity_date >= date_trunc('month', CURRENT_DATE)
GROUP BY g.game_name
ORDER BY revenue DESC
LIMIT 10;`,
			},
			{
				Name:     "deposits by method",
				Keywords: []string{"deposit", "deposits", "payment", "withdrawal", "withdrawals"},
				Pattern:  "Total deposits by payment method last week",
				SQL: `SELECT m.method_name, SUM(p.amount) AS total_deposits
FROM payments p
JOIN payment_methods m ON m.payment_method_id = p.payment_method_id
WHERE p.transaction_type = 'deposit'
  AND p.status = 'completed'
  AND p.created_at >= date_trunc('week', CURRENT_DATE) - INTERVAL '7 days'
  AND p.created_at < date_trunc('week', CURRENT_DATE)
GROUP BY m.method_name
ORDER BY total_deposits DESC;`,
			},
			{
				Name:     "bonus cost by type",
				Keywords: []string{"bonus", "bonuses", "promotion"},
				Pattern:  "Bonus cost by bonus type this month",
				SQL: `SELECT b.bonus_type, SUM(a.awarded_amount) AS bonus_cost
FROM bonus_awards a
JOIN bonuses b ON b.bonus_id = a.bonus_id
WHERE a.awarded_at >= date_trunc('month', CURRENT_DATE)
GROUP BY b.bonus_type
ORDER BY bonus_cost DESC;`,
			},
			{
				Name:     "daily active players",
				Keywords: []string{"active", "dau", "activity", "retention"},
				Pattern:  "Daily active players over the last 30 days",
				SQL: `SELECT d.activity_date, COUNT(DISTINCT d.player_id) AS active_players
FROM player_daily_activity d
WHERE d.activity_date >= CURRENT_DATE - INTERVAL '30 days'
GROUP BY d.activity_date
ORDER BY d.activity_date;`,
			},
			{
				Name:     "ggr by country",
				Keywords: []string{"country", "countries", "market", "region"},
				Pattern:  "GGR by country this month",
				SQL: `SELECT c.country_name, SUM(d.ggr_amount) AS ggr
FROM player_daily_activity d
JOIN players p ON p.player_id = d.player_id
JOIN countries c ON c.country_code = p.country_code
WHERE d.activity_date >= date_trunc('month', CURRENT_DATE)
GROUP BY c.country_name
ORDER BY ggr DESC;`,
			},
		},
		DefaultExample: ExampleTrigger{
			Name:    "generic",
			Pattern: "How many active players do we have",
			SQL: `SELECT COUNT(*) AS active_players
FROM players p
WHERE p.status = 'active';`,
		},
	}
}
