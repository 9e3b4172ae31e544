package models

import "strings"

// TableMetadata is an immutable snapshot of one table from the external
// schema catalogue. The pipeline never mutates it.
type TableMetadata struct {
	SchemaName  string           `json:"schema_name"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Columns     []ColumnMetadata `json:"columns,omitempty"`
}

// ColumnMetadata describes a single column in a catalogue snapshot.
type ColumnMetadata struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	IsPrimaryKey    bool   `json:"is_primary_key"`
	IsForeignKey    bool   `json:"is_foreign_key"`
	IsNullable      bool   `json:"is_nullable"`
	BusinessMeaning string `json:"business_meaning,omitempty"`
}

// QualifiedName returns "schema.table", or just the table name when the
// catalogue did not report a schema.
func (t *TableMetadata) QualifiedName() string {
	if t.SchemaName == "" {
		return t.Name
	}
	return t.SchemaName + "." + t.Name
}

// Column returns the column with the given name, or nil.
func (t *TableMetadata) Column(name string) *ColumnMetadata {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}
