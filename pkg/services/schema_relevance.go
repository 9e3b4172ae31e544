package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/config"
	"github.com/spinhouse/prompt-engine/pkg/logging"
	"github.com/spinhouse/prompt-engine/pkg/models"
)

// nameMatchBoost is added when a query keyword matches a table name
// directly. Deliberately below the inclusion threshold so a bare name
// match alone does not select a table, but tips a classified one over.
const nameMatchBoost = 0.3

// dimensionBoostRatio scales the topic boost for a topic's dimension
// tables relative to its fact tables.
const dimensionBoostRatio = 2.0 / 3.0

// SchemaRelevanceService selects the subset of the catalogue relevant to a
// query. It never fails: upstream analyzer errors degrade it to
// keyword-only scoring, and an empty selection is replaced by a
// deterministic default subset.
type SchemaRelevanceService interface {
	// GetRelevantSchema scores every table against the query and returns
	// the top tables (at most the configured cap), enriched with inferred
	// relationships, join suggestions, and glossary terms.
	GetRelevantSchema(ctx context.Context, query string, tables []models.TableMetadata) *models.SchemaContext
}

type schemaRelevanceService struct {
	analyzer SemanticAnalyzer
	scoring  config.ScoringConfig
	logger   *zap.Logger
}

// NewSchemaRelevanceService creates a new SchemaRelevanceService.
// The analyzer may be nil, in which case scoring is keyword-only.
func NewSchemaRelevanceService(analyzer SemanticAnalyzer, scoring config.ScoringConfig, logger *zap.Logger) SchemaRelevanceService {
	if scoring.MaxTables < 1 || scoring.MaxTables > models.MaxRelevantTables {
		scoring.MaxTables = models.MaxRelevantTables
	}
	return &schemaRelevanceService{
		analyzer: analyzer,
		scoring:  scoring,
		logger:   logger.Named("schema-relevance"),
	}
}

var _ SchemaRelevanceService = (*schemaRelevanceService)(nil)

func (s *schemaRelevanceService) GetRelevantSchema(ctx context.Context, query string, tables []models.TableMetadata) *models.SchemaContext {
	query = strings.ToLower(strings.TrimSpace(query))

	result := &models.SchemaContext{
		Scores:      make(map[string]float64, len(tables)),
		Glossary:    glossaryTerms(query),
		GeneratedAt: time.Now(),
	}
	if len(tables) == 0 {
		return result
	}

	// A blank query carries no signal to score against; emit the smallest
	// valid default output instead of whatever the name patterns favour.
	if query == "" {
		result.RelevantTables = s.forceCompanions(s.defaultSubset(tables), tables)
		result.Relationships = inferRelationships(result.RelevantTables)
		result.JoinSuggestions = joinSuggestions(result.Relationships)
		return result
	}

	analysis := s.analyze(ctx, query)

	matched := matchedTopics(query)
	scored := make([]scoredTable, 0, len(tables))
	for i := range tables {
		score := s.scoreTable(&tables[i], query, analysis, matched)
		result.Scores[tables[i].Name] = score
		scored = append(scored, scoredTable{index: i, score: score})
	}
	// Descending score, catalogue order breaking ties.
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	selected := s.selectAboveThreshold(scored, s.scoring.InclusionThreshold)
	if len(selected) == 0 {
		selected = s.keywordContainmentScan(query, tables, scored)
	}
	if len(selected) == 0 {
		selected = s.defaultSubset(tables)
		s.logger.Debug("No tables cleared any threshold, using default subset",
			zap.String("query", logging.TruncateQuery(query)))
	}

	result.RelevantTables = s.forceCompanions(selected, tables)
	result.Relationships = inferRelationships(result.RelevantTables)
	result.JoinSuggestions = joinSuggestions(result.Relationships)
	return result
}

type scoredTable struct {
	index int
	score float64
}

// analyze runs the semantic analyzer, degrading to nil on failure so the
// scorer falls back to keyword-only mode.
func (s *schemaRelevanceService) analyze(ctx context.Context, query string) *models.SemanticAnalysis {
	if s.analyzer == nil {
		return nil
	}
	analysis, err := s.analyzer.Analyze(ctx, query)
	if err != nil {
		s.logger.Warn("Semantic analysis failed, degrading to keyword-only scoring",
			zap.String("query", logging.TruncateQuery(query)),
			zap.Error(err))
		return nil
	}
	return analysis
}

// matchedTopics returns the set of topic names the query mentions.
func matchedTopics(query string) map[string]bool {
	matched := make(map[string]bool)
	for i := range topicRules {
		if topicRules[i].matchesTopic(query) {
			matched[topicRules[i].Name] = true
		}
	}
	return matched
}

// scoreTable computes the clamped [0,1] relevance score of one table.
func (s *schemaRelevanceService) scoreTable(table *models.TableMetadata, query string, analysis *models.SemanticAnalysis, matched map[string]bool) float64 {
	name := strings.ToLower(table.Name)
	score := classWeight(name)

	anyTopic := len(matched) > 0
	for i := range topicRules {
		topic := &topicRules[i]
		if matched[topic.Name] {
			if containsTable(topic.FactTables, name) {
				score += s.scoring.TopicBoost
			} else if containsTable(topic.Dimensions, name) {
				score += s.scoring.TopicBoost * dimensionBoostRatio
			}
		} else if anyTopic && containsTable(topic.FactTables, name) {
			// The query is clearly about some other topic.
			score -= s.scoring.CrossTopicPenalty
		}
	}

	if nameMatchesQuery(name, query, analysis) {
		score += nameMatchBoost
	}

	return clamp01(score)
}

// nameMatchesQuery reports a direct match between the table name and the
// query's keywords. Singular/plural variants are treated as equal.
func nameMatchesQuery(tableName, query string, analysis *models.SemanticAnalysis) bool {
	words := keywords(query)
	if analysis != nil {
		words = append(words, analysis.Keywords...)
	}
	singularTable := inflection.Singular(tableName)
	for _, kw := range words {
		if kw == tableName || inflection.Singular(kw) == singularTable {
			return true
		}
		if strings.Contains(tableName, kw) || strings.Contains(kw, tableName) {
			return true
		}
	}
	return false
}

// selectAboveThreshold keeps tables at or above the threshold, up to the cap.
func (s *schemaRelevanceService) selectAboveThreshold(scored []scoredTable, threshold float64) []scoredTable {
	var selected []scoredTable
	for _, st := range scored {
		if st.score < threshold {
			break // sorted descending
		}
		selected = append(selected, st)
		if len(selected) == s.scoring.MaxTables {
			break
		}
	}
	return selected
}

// keywordContainmentScan is the cheaper fallback strategy: tables whose
// name is contained in the query (or vice versa) qualify at the lower bar.
func (s *schemaRelevanceService) keywordContainmentScan(query string, tables []models.TableMetadata, scored []scoredTable) []scoredTable {
	var selected []scoredTable
	for _, st := range scored {
		name := strings.ToLower(tables[st.index].Name)
		if !nameMatchesQuery(name, query, nil) {
			continue
		}
		if st.score < s.scoring.FallbackThreshold {
			continue
		}
		selected = append(selected, st)
		if len(selected) == s.scoring.MaxTables {
			break
		}
	}
	return selected
}

// defaultSubset returns the hard-coded fallback tables that exist in the
// catalogue, or the first few catalogue tables when none of them do.
func (s *schemaRelevanceService) defaultSubset(tables []models.TableMetadata) []scoredTable {
	byName := make(map[string]int, len(tables))
	for i := range tables {
		byName[strings.ToLower(tables[i].Name)] = i
	}

	var selected []scoredTable
	for _, name := range defaultTableSubset {
		if idx, ok := byName[name]; ok {
			selected = append(selected, scoredTable{index: idx})
		}
	}
	if len(selected) > 0 {
		return selected
	}

	n := len(tables)
	if n > len(defaultTableSubset) {
		n = len(defaultTableSubset)
	}
	for i := 0; i < n; i++ {
		selected = append(selected, scoredTable{index: i})
	}
	return selected
}

// forceCompanions materializes the selection and enforces the completeness
// rule: a selected fact table pulls in its companion dimension, capped at
// the configured maximum.
func (s *schemaRelevanceService) forceCompanions(selected []scoredTable, tables []models.TableMetadata) []models.TableMetadata {
	result := make([]models.TableMetadata, 0, len(selected))
	present := make(map[string]bool, len(selected))
	for _, st := range selected {
		result = append(result, tables[st.index])
		present[strings.ToLower(tables[st.index].Name)] = true
	}

	byName := make(map[string]int, len(tables))
	for i := range tables {
		byName[strings.ToLower(tables[i].Name)] = i
	}

	for i := range topicRules {
		for fact, companion := range topicRules[i].Companions {
			if !present[fact] || present[companion] {
				continue
			}
			if len(result) >= s.scoring.MaxTables {
				continue
			}
			idx, ok := byName[companion]
			if !ok {
				continue
			}
			result = append(result, tables[idx])
			present[companion] = true
		}
	}
	return result
}

// inferRelationships derives joins between the selected tables from
// foreign-key naming: a column x_id joins to the selected table whose
// singular name is x. The join is N:1 unless the column doubles as the
// referencing table's primary key, which makes it 1:1.
func inferRelationships(tables []models.TableMetadata) []models.TableRelationship {
	bySingular := make(map[string]*models.TableMetadata, len(tables))
	for i := range tables {
		bySingular[inflection.Singular(strings.ToLower(tables[i].Name))] = &tables[i]
	}

	var rels []models.TableRelationship
	for i := range tables {
		from := &tables[i]
		for j := range from.Columns {
			col := strings.ToLower(from.Columns[j].Name)
			if !strings.HasSuffix(col, "_id") {
				continue
			}
			target, ok := bySingular[strings.TrimSuffix(col, "_id")]
			if !ok || target == from {
				continue
			}
			cardinality := models.CardinalityNTo1
			if from.Columns[j].IsPrimaryKey {
				cardinality = models.Cardinality1To1
			}
			rels = append(rels, models.TableRelationship{
				FromTable:   from.Name,
				FromColumn:  from.Columns[j].Name,
				ToTable:     target.Name,
				ToColumn:    targetJoinColumn(target, from.Columns[j].Name),
				Cardinality: cardinality,
			})
		}
	}
	return rels
}

// targetJoinColumn picks the column joined against: a same-named column
// when the target carries one, otherwise its primary key.
func targetJoinColumn(target *models.TableMetadata, fkColumn string) string {
	if target.Column(fkColumn) != nil {
		return fkColumn
	}
	for i := range target.Columns {
		if target.Columns[i].IsPrimaryKey {
			return target.Columns[i].Name
		}
	}
	return fkColumn
}

// joinSuggestions renders relationships as ready-made JOIN fragments.
func joinSuggestions(rels []models.TableRelationship) []string {
	suggestions := make([]string, 0, len(rels))
	for _, rel := range rels {
		suggestions = append(suggestions,
			"JOIN "+rel.ToTable+" ON "+rel.ToTable+"."+rel.ToColumn+" = "+rel.FromTable+"."+rel.FromColumn)
	}
	return suggestions
}

// glossaryTerms extracts the business terms mentioned in the query.
func glossaryTerms(query string) map[string]string {
	var found map[string]string
	for term, definition := range businessGlossary {
		if containsWord(query, term) {
			if found == nil {
				found = make(map[string]string)
			}
			found[term] = definition
		}
	}
	return found
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// containsTable reports whether names contains the (lower-cased) name.
func containsTable(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
