package datasource

import (
	"context"

	"github.com/spinhouse/prompt-engine/pkg/models"
)

// DefaultMaxValueLength filters out long values during sampling; only short
// literals are useful as enum hints in a prompt.
const DefaultMaxValueLength = 50

// ValueSampler samples distinct values from live datasource columns.
// Used by the schema description builder to surface valid literal values
// for low-cardinality columns. Sampling is best-effort: callers must treat
// any error as "no values available", never as a request failure.
type ValueSampler interface {
	// SampleDistinctValues returns up to limit distinct non-null short
	// values from a column, sorted alphabetically. The caller bounds the
	// call with a context deadline.
	SampleDistinctValues(ctx context.Context, schemaName, tableName, columnName string, limit int) ([]string, error)

	// Close releases the datasource connection.
	Close() error
}

// SchemaCatalog supplies the full table catalogue of a datasource.
// The returned snapshot is read-only input to the relevance scorer.
type SchemaCatalog interface {
	// GetSchema returns every user table with its columns, key flags, and
	// nullability. System schemas are excluded.
	GetSchema(ctx context.Context) ([]models.TableMetadata, error)
}

// Adapter bundles the datasource capabilities the prompt engine consumes.
// Each implementation owns its connection and must be closed when done.
type Adapter interface {
	ValueSampler
	SchemaCatalog
}

// Config holds connection settings for a customer datasource.
type Config struct {
	Type     string // "postgres" or "mssql"
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // postgres only

	// MaxValueLength bounds sampled value length; zero means
	// DefaultMaxValueLength.
	MaxValueLength int
}

// EffectiveMaxValueLength returns the configured value-length bound.
func (c *Config) EffectiveMaxValueLength() int {
	if c.MaxValueLength <= 0 {
		return DefaultMaxValueLength
	}
	return c.MaxValueLength
}
