package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/adapters/datasource"
	"github.com/spinhouse/prompt-engine/pkg/config"
	"github.com/spinhouse/prompt-engine/pkg/models"
)

// maxColumnsPerTable bounds how many columns a table section lists before
// summarizing the remainder with a count suffix.
const maxColumnsPerTable = 15

// lookupEntry is one (name pattern, text) pair of an ordered lookup table.
// Lookups run an exact-match pass first, then a substring pass in
// declaration order, so overlapping patterns resolve deterministically.
type lookupEntry struct {
	Key  string
	Text string
}

// tableBusinessContext maps table names to a business-context sentence.
var tableBusinessContext = []lookupEntry{
	{TablePlayerDailyActivity, "One row per player per day; the primary fact table for bets, wins, GGR, and activity aggregates."},
	{TablePlayers, "Master player dimension; one row per registered player with status, VIP level, and demographics."},
	{TableGames, "Game master data; one row per game with provider, category, and RTP."},
	{TableGameDailyStats, "One row per game per day with bet, win, and GGR amounts."},
	{TableGameProviders, "Reference list of game content providers."},
	{TablePayments, "All cashier transactions; deposits and withdrawals distinguished by transaction_type."},
	{TablePaymentMethods, "Reference list of cashier payment methods."},
	{TableBonuses, "Bonus campaign definitions with type and wagering requirements."},
	{TableBonusAwards, "One row per bonus awarded to a player, with awarded amount and wagering progress."},
	{TableSessions, "One row per player login session with start, end, and device."},
	{TableCountries, "ISO country reference data."},
	{TableCurrencies, "ISO currency reference data."},
	{TableAffiliates, "Affiliate partners that refer players to the platform."},
}

// columnBusinessMeaning maps column names to a business-meaning phrase.
// Specific names come first; the trailing entries are substring catch-alls.
var columnBusinessMeaning = []lookupEntry{
	{"player_id", "unique player identifier; join key to players"},
	{"game_id", "unique game identifier; join key to games"},
	{"bonus_id", "join key to bonuses"},
	{"payment_method_id", "join key to payment_methods"},
	{"affiliate_id", "join key to affiliates"},
	{"ggr_amount", "Gross Gaming Revenue: bets minus wins"},
	{"bet_amount", "total amount wagered"},
	{"win_amount", "total amount paid out as wins"},
	{"activity_date", "calendar date of the aggregated activity"},
	{"transaction_type", "'deposit' or 'withdrawal'"},
	{"country_code", "ISO 3166-1 alpha-2 code; join key to countries"},
	{"currency_code", "ISO 4217 currency code"},
	{"vip_level", "VIP tier; 0 means not VIP"},
	{"status", "record status; prefer the sampled live values when filtering"},
	{"_id", "foreign key identifier"},
	{"_at", "event timestamp"},
	{"amount", "monetary amount in the player's currency"},
}

// lowCardinalityPatterns is the closed allow-list of column-name patterns
// likely to hold few distinct values, worth a live sampling probe.
var lowCardinalityPatterns = []string{
	"status", "type", "method", "category", "level", "tier", "gender",
	"currency", "provider",
}

// SchemaDescriptionService renders selected tables into the enriched text
// block the prompt's schema section carries.
type SchemaDescriptionService interface {
	// Describe renders one section per table. When a value sampler is
	// configured, low-cardinality columns are annotated with a bounded
	// sample of live values; sampling failures silently yield none.
	Describe(ctx context.Context, tables []models.TableMetadata) string
}

type schemaDescriptionService struct {
	sampler datasource.ValueSampler // nil disables live value sampling
	cfg     config.SamplerConfig
	logger  *zap.Logger
}

// NewSchemaDescriptionService creates a new SchemaDescriptionService.
// sampler may be nil, which disables value enrichment.
func NewSchemaDescriptionService(sampler datasource.ValueSampler, cfg config.SamplerConfig, logger *zap.Logger) SchemaDescriptionService {
	if cfg.ValueLimit <= 0 {
		cfg.ValueLimit = 10
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 3
	}
	return &schemaDescriptionService{
		sampler: sampler,
		cfg:     cfg,
		logger:  logger.Named("schema-description"),
	}
}

var _ SchemaDescriptionService = (*schemaDescriptionService)(nil)

func (s *schemaDescriptionService) Describe(ctx context.Context, tables []models.TableMetadata) string {
	var b strings.Builder
	for i := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		s.describeTable(ctx, &b, &tables[i])
	}
	return b.String()
}

func (s *schemaDescriptionService) describeTable(ctx context.Context, b *strings.Builder, table *models.TableMetadata) {
	b.WriteString("### ")
	b.WriteString(table.QualifiedName())
	b.WriteString("\n")

	if table.Description != "" {
		b.WriteString("Purpose: ")
		b.WriteString(table.Description)
		b.WriteString("\n")
	}
	if bizContext := businessContextFor(table.Name); bizContext != "" {
		b.WriteString("Business context: ")
		b.WriteString(bizContext)
		b.WriteString("\n")
	}

	b.WriteString("Columns:\n")
	shown := len(table.Columns)
	if shown > maxColumnsPerTable {
		shown = maxColumnsPerTable
	}
	for i := 0; i < shown; i++ {
		s.describeColumn(ctx, b, table, &table.Columns[i])
	}
	if remaining := len(table.Columns) - shown; remaining > 0 {
		b.WriteString("- ... and ")
		b.WriteString(strconv.Itoa(remaining))
		b.WriteString(" more columns\n")
	}
}

func (s *schemaDescriptionService) describeColumn(ctx context.Context, b *strings.Builder, table *models.TableMetadata, col *models.ColumnMetadata) {
	b.WriteString("- ")
	b.WriteString(col.Name)
	b.WriteString(" (")
	b.WriteString(col.DataType)
	b.WriteString(")")
	if col.IsPrimaryKey {
		b.WriteString(" [PK]")
	}
	if col.IsForeignKey {
		b.WriteString(" [FK]")
	}
	if !col.IsNullable {
		b.WriteString(" NOT NULL")
	}

	meaning := col.BusinessMeaning
	if meaning == "" {
		meaning = businessMeaningFor(col.Name)
	}
	if meaning != "" {
		b.WriteString(" -- ")
		b.WriteString(meaning)
	}

	if values := s.sampleValues(ctx, table, col); len(values) > 0 {
		b.WriteString(" (values: ")
		b.WriteString(strings.Join(values, ", "))
		b.WriteString(")")
	}
	b.WriteString("\n")
}

// sampleValues probes the live datasource for distinct values of a
// low-cardinality column. Best-effort: any failure yields nothing.
func (s *schemaDescriptionService) sampleValues(ctx context.Context, table *models.TableMetadata, col *models.ColumnMetadata) []string {
	if s.sampler == nil || !isLikelyLowCardinality(col.Name) {
		return nil
	}

	sampleCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	values, err := s.sampler.SampleDistinctValues(sampleCtx, table.SchemaName, table.Name, col.Name, s.cfg.ValueLimit)
	if err != nil {
		s.logger.Debug("Value sampling failed, omitting values",
			zap.String("table", table.Name),
			zap.String("column", col.Name),
			zap.Error(err))
		return nil
	}
	return values
}

// isLikelyLowCardinality matches the column name against the allow-list.
func isLikelyLowCardinality(columnName string) bool {
	name := strings.ToLower(columnName)
	for _, pattern := range lowCardinalityPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// businessContextFor looks up the business-context sentence for a table:
// exact name match first, then substring fallback, else empty.
func businessContextFor(tableName string) string {
	return lookupText(tableBusinessContext, strings.ToLower(tableName))
}

// businessMeaningFor looks up the business-meaning phrase for a column:
// exact name match first, then substring fallback, else empty.
func businessMeaningFor(columnName string) string {
	return lookupText(columnBusinessMeaning, strings.ToLower(columnName))
}

func lookupText(entries []lookupEntry, name string) string {
	for i := range entries {
		if entries[i].Key == name {
			return entries[i].Text
		}
	}
	for i := range entries {
		if strings.Contains(name, entries[i].Key) {
			return entries[i].Text
		}
	}
	return ""
}
