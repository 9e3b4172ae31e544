package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/adapters/datasource"
	"github.com/spinhouse/prompt-engine/pkg/logging"
	"github.com/spinhouse/prompt-engine/pkg/models"
)

// Adapter provides PostgreSQL value sampling and schema discovery.
type Adapter struct {
	pool           *pgxpool.Pool
	maxValueLength int
	logger         *zap.Logger
}

var _ datasource.Adapter = (*Adapter)(nil)

// New creates a PostgreSQL adapter and verifies connectivity.
// If logger is nil, a no-op logger is used.
func New(ctx context.Context, cfg *datasource.Config, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := buildConnectionString(cfg)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Debug("Connected to postgres datasource",
		zap.String("connection", logging.SanitizeConnectionString(connStr)))

	return &Adapter{
		pool:           pool,
		maxValueLength: cfg.EffectiveMaxValueLength(),
		logger:         logger.Named("postgres-adapter"),
	}, nil
}

func buildConnectionString(cfg *datasource.Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode,
	)
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

// qualifiedTableName returns a properly quoted table reference.
// If schemaName is empty, returns just the quoted table name.
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" {
		return quotedTable
	}
	return pgx.Identifier{schemaName}.Sanitize() + "." + quotedTable
}

// SampleDistinctValues returns up to limit distinct non-null short values
// from a column, sorted alphabetically.
func (a *Adapter) SampleDistinctValues(ctx context.Context, schemaName, tableName, columnName string, limit int) ([]string, error) {
	tableRef := qualifiedTableName(schemaName, tableName)
	quotedCol := pgx.Identifier{columnName}.Sanitize()

	query := fmt.Sprintf(`
		SELECT DISTINCT %s::text
		FROM %s
		WHERE %s IS NOT NULL
		  AND length(%s::text) <= $2
		ORDER BY 1
		LIMIT $1
	`, quotedCol, tableRef, quotedCol, quotedCol)

	rows, err := a.pool.Query(ctx, query, limit, a.maxValueLength)
	if err != nil {
		return nil, fmt.Errorf("sample distinct values for %s.%s.%s: %w", schemaName, tableName, columnName, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, val)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}

	return values, nil
}

// GetSchema returns every user table with its columns, excluding system
// schemas. Column order follows ordinal position.
func (a *Adapter) GetSchema(ctx context.Context) ([]models.TableMetadata, error) {
	pkCols, err := a.primaryKeyColumns(ctx)
	if err != nil {
		return nil, err
	}
	fkCols, err := a.foreignKeyColumns(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			c.ordinal_position,
			COALESCE(obj_description(pc.oid), '')
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		LEFT JOIN pg_namespace pn ON pn.nspname = c.table_schema
		LEFT JOIN pg_class pc ON pc.relname = c.table_name AND pc.relnamespace = pn.oid
		WHERE t.table_type = 'BASE TABLE'
		  AND c.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`

	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query schema catalogue: %w", err)
	}
	defer rows.Close()

	byTable := make(map[string]*models.TableMetadata)
	var order []string
	for rows.Next() {
		var (
			schemaName, tableName, colName, dataType, tableComment string
			isNullable                                             bool
			ordinal                                                int
		)
		if err := rows.Scan(&schemaName, &tableName, &colName, &dataType, &isNullable, &ordinal, &tableComment); err != nil {
			return nil, fmt.Errorf("scan schema column: %w", err)
		}

		key := schemaName + "." + tableName
		tbl, ok := byTable[key]
		if !ok {
			tbl = &models.TableMetadata{
				SchemaName:  schemaName,
				Name:        tableName,
				Description: tableComment,
			}
			byTable[key] = tbl
			order = append(order, key)
		}

		colKey := key + "." + colName
		tbl.Columns = append(tbl.Columns, models.ColumnMetadata{
			Name:         colName,
			DataType:     dataType,
			IsNullable:   isNullable,
			IsPrimaryKey: pkCols[colKey],
			IsForeignKey: fkCols[colKey],
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema columns: %w", err)
	}

	tables := make([]models.TableMetadata, 0, len(order))
	for _, key := range order {
		tables = append(tables, *byTable[key])
	}
	return tables, nil
}

// primaryKeyColumns returns "schema.table.column" keys for PK columns.
func (a *Adapter) primaryKeyColumns(ctx context.Context) (map[string]bool, error) {
	return a.constraintColumns(ctx, "PRIMARY KEY")
}

// foreignKeyColumns returns "schema.table.column" keys for FK columns.
func (a *Adapter) foreignKeyColumns(ctx context.Context) (map[string]bool, error) {
	return a.constraintColumns(ctx, "FOREIGN KEY")
}

func (a *Adapter) constraintColumns(ctx context.Context, constraintType string) (map[string]bool, error) {
	const query = `
		SELECT kcu.table_schema, kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = $1
	`

	rows, err := a.pool.Query(ctx, query, constraintType)
	if err != nil {
		return nil, fmt.Errorf("query %s columns: %w", constraintType, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var schemaName, tableName, colName string
		if err := rows.Scan(&schemaName, &tableName, &colName); err != nil {
			return nil, fmt.Errorf("scan constraint column: %w", err)
		}
		cols[schemaName+"."+tableName+"."+colName] = true
	}
	return cols, rows.Err()
}
