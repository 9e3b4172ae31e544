package services

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Well-known table names in the platform warehouse. The scorer recognizes
// them by pattern, so customer schemas with prefixed or pluralized variants
// still classify correctly.
const (
	TablePlayerDailyActivity = "player_daily_activity"
	TablePlayers             = "players"
	TableGames               = "games"
	TableGameDailyStats      = "game_daily_stats"
	TableGameProviders       = "game_providers"
	TablePayments            = "payments"
	TablePaymentMethods      = "payment_methods"
	TableBonuses             = "bonuses"
	TableBonusAwards         = "bonus_awards"
	TableSessions            = "sessions"
	TableCountries           = "countries"
	TableCurrencies          = "currencies"
	TableAffiliates          = "affiliates"
)

// defaultTableSubset is substituted when scoring selects nothing, so the
// pipeline never emits an empty schema section.
var defaultTableSubset = []string{TablePlayerDailyActivity, TablePlayers, TableCountries}

// tableClassRule assigns a base weight to a table by name pattern.
// Rules are evaluated in order; the first match wins.
type tableClassRule struct {
	Name   string
	Match  func(tableName string) bool
	Weight float64
}

// tableClassRules is the closed classification taxonomy. The primary
// activity fact table is nearly always relevant, the player dimension
// usually, lookups often enough to clear the bar when nothing else does.
var tableClassRules = []tableClassRule{
	{
		Name: "primary activity fact",
		Match: func(name string) bool {
			return name == TablePlayerDailyActivity ||
				strings.Contains(name, "daily_activity") ||
				strings.Contains(name, "activity_log")
		},
		Weight: 0.9,
	},
	{
		Name: "player dimension",
		Match: func(name string) bool {
			return inflection.Singular(name) == "player"
		},
		Weight: 0.6,
	},
	{
		Name: "lookup/reference",
		Match: func(name string) bool {
			switch name {
			case TableCountries, TableCurrencies, TablePaymentMethods, TableGameProviders:
				return true
			}
			return strings.HasSuffix(name, "_types") || strings.HasSuffix(name, "_statuses")
		},
		Weight: 0.4,
	},
}

// classWeight returns the base classification weight for a table name.
func classWeight(tableName string) float64 {
	name := strings.ToLower(tableName)
	for _, rule := range tableClassRules {
		if rule.Match(name) {
			return rule.Weight
		}
	}
	return 0
}

// topicRule binds query keywords to the tables of one business topic.
// A keyword hit boosts the topic's fact tables by the full topic boost and
// its dimensions by two thirds of it; when the query clearly belongs to a
// different topic, this topic's fact tables are penalized instead.
type topicRule struct {
	Name       string
	Keywords   []string
	FactTables []string
	Dimensions []string
	// Companions maps a fact table to the dimension that must ride along
	// whenever the fact table is selected.
	Companions map[string]string
}

// topicRules is the closed topic taxonomy, in declaration order.
var topicRules = []topicRule{
	{
		Name: "games",
		Keywords: []string{
			"game", "games", "ggr", "rtp", "slot", "slots", "casino",
			"provider", "providers", "bet", "bets", "wager", "wagering",
		},
		FactTables: []string{TableGameDailyStats},
		Dimensions: []string{TableGames, TableGameProviders},
		Companions: map[string]string{TableGameDailyStats: TableGames},
	},
	{
		Name: "payments",
		Keywords: []string{
			"deposit", "deposits", "withdrawal", "withdrawals", "payment",
			"payments", "cashier", "transaction", "transactions", "payout",
		},
		FactTables: []string{TablePayments},
		Dimensions: []string{TablePaymentMethods, TableCurrencies},
		Companions: map[string]string{TablePayments: TablePaymentMethods},
	},
	{
		Name: "bonuses",
		Keywords: []string{
			"bonus", "bonuses", "promotion", "promotions", "free spins",
			"wagering requirement",
		},
		FactTables: []string{TableBonusAwards},
		Dimensions: []string{TableBonuses},
		Companions: map[string]string{TableBonusAwards: TableBonuses},
	},
	{
		Name: "sessions",
		Keywords: []string{
			"session", "sessions", "login", "logins", "dau", "retention",
		},
		FactTables: []string{TableSessions},
	},
	{
		Name: "geography",
		Keywords: []string{
			"country", "countries", "region", "regions", "market", "markets",
		},
		Dimensions: []string{TableCountries},
	},
	{
		Name: "affiliates",
		Keywords: []string{
			"affiliate", "affiliates", "campaign", "campaigns", "referrer",
		},
		Dimensions: []string{TableAffiliates},
	},
}

// matchesTopic reports whether the lower-cased query mentions the topic.
func (t *topicRule) matchesTopic(query string) bool {
	for _, kw := range t.Keywords {
		if containsWord(query, kw) {
			return true
		}
	}
	return false
}

// businessGlossary maps query terms to their business definitions. Terms
// found in a query are surfaced in the prompt's context section.
var businessGlossary = map[string]string{
	"ggr":    "Gross Gaming Revenue: total bets minus total wins",
	"ngr":    "Net Gaming Revenue: GGR minus bonus costs and fees",
	"rtp":    "Return To Player: percentage of wagered money paid back as wins",
	"arpu":   "Average Revenue Per User: GGR divided by active players",
	"ltv":    "Lifetime Value: cumulative NGR of a player since registration",
	"churn":  "Players with no activity in the last 30 days",
	"handle": "Total amount wagered (synonym for turnover)",
	"hold":   "GGR as a percentage of handle",
}

// stopwords are dropped during keyword extraction.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "de": true, "do": true, "for": true, "from": true,
	"get": true, "give": true, "had": true, "has": true, "have": true,
	"how": true, "in": true, "is": true, "it": true, "me": true, "much": true,
	"many": true, "of": true, "on": true, "or": true, "our": true,
	"per": true, "show": true, "that": true, "the": true, "this": true,
	"to": true, "was": true, "we": true, "were": true, "what": true,
	"which": true, "who": true, "with": true,
}

// containsWord reports whether query contains kw on word boundaries for
// single words, or as a substring for multi-word phrases.
func containsWord(query, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(query, kw)
	}
	for _, token := range tokenize(query) {
		if token == kw {
			return true
		}
	}
	return false
}

// tokenize splits a lower-cased query into alphanumeric tokens.
func tokenize(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		return !isAlnum
	})
}

// keywords returns the significant tokens of a lower-cased query.
func keywords(query string) []string {
	var out []string
	for _, token := range tokenize(query) {
		if len(token) < 2 || stopwords[token] {
			continue
		}
		out = append(out, token)
	}
	return out
}
