package models

import "time"

// MaxRelevantTables caps how many tables a SchemaContext may carry. The
// relevance scorer never selects more than this many tables, forced
// companion inclusion included.
const MaxRelevantTables = 7

// Cardinality values for inferred relationships. A foreign key that is also
// the referencing table's primary key joins 1:1; any other foreign key joins
// N:1 toward the referenced table.
const (
	Cardinality1To1 = "1:1"
	CardinalityNTo1 = "N:1"
)

// SchemaContext is the result of relevance scoring for a single query.
// It is created once per request and discarded after prompt assembly;
// callers may log it.
type SchemaContext struct {
	// RelevantTables is ordered by descending relevance score, catalogue
	// order breaking ties. Length is always between 0 and MaxRelevantTables,
	// and never 0 for a non-empty catalogue (a default subset is substituted
	// when scoring selects nothing).
	RelevantTables []TableMetadata `json:"relevant_tables"`

	// Scores maps table name to the clamped [0,1] relevance score that
	// selected it. Forced-in companion tables carry their raw score.
	Scores map[string]float64 `json:"scores,omitempty"`

	// Relationships inferred between the selected tables.
	Relationships []TableRelationship `json:"relationships,omitempty"`

	// JoinSuggestions are ready-made JOIN fragments for the selected tables.
	JoinSuggestions []string `json:"join_suggestions,omitempty"`

	// Glossary maps business terms found in the query to their definitions.
	Glossary map[string]string `json:"glossary,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// TableRelationship describes an inferred join between two selected tables.
type TableRelationship struct {
	FromTable   string `json:"from_table"`
	FromColumn  string `json:"from_column"`
	ToTable     string `json:"to_table"`
	ToColumn    string `json:"to_column"`
	Cardinality string `json:"cardinality"`
}

// HasTable reports whether the context selected the named table.
func (c *SchemaContext) HasTable(name string) bool {
	for i := range c.RelevantTables {
		if c.RelevantTables[i].Name == name {
			return true
		}
	}
	return false
}

// TableNames returns the selected table names in relevance order.
func (c *SchemaContext) TableNames() []string {
	names := make([]string, 0, len(c.RelevantTables))
	for i := range c.RelevantTables {
		names = append(names, c.RelevantTables[i].Name)
	}
	return names
}
