package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/adapters/datasource"
	"github.com/spinhouse/prompt-engine/pkg/logging"
	"github.com/spinhouse/prompt-engine/pkg/models"
)

// Adapter provides SQL Server value sampling and schema discovery.
type Adapter struct {
	db             *sql.DB
	maxValueLength int
	logger         *zap.Logger
}

var _ datasource.Adapter = (*Adapter)(nil)

// New creates a SQL Server adapter and verifies connectivity.
// If logger is nil, a no-op logger is used.
func New(ctx context.Context, cfg *datasource.Config, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := buildConnectionString(cfg)
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	logger.Debug("Connected to sqlserver datasource",
		zap.String("connection", logging.SanitizeConnectionString(connStr)))

	return &Adapter{
		db:             db,
		maxValueLength: cfg.EffectiveMaxValueLength(),
		logger:         logger.Named("mssql-adapter"),
	}, nil
}

func buildConnectionString(cfg *datasource.Config) string {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	q := url.Values{}
	q.Set("database", cfg.Database)
	u.RawQuery = q.Encode()
	return u.String()
}

// Close releases the database connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// quoteName escapes a SQL Server identifier with square brackets.
// QUOTENAME semantics: ] is escaped as ]].
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

// buildFullyQualifiedName builds [schema].[table], defaulting to dbo.
func buildFullyQualifiedName(schemaName, tableName string) string {
	if schemaName == "" {
		schemaName = "dbo"
	}
	return quoteName(schemaName) + "." + quoteName(tableName)
}

// SampleDistinctValues returns up to limit distinct non-null short values
// from a column, sorted alphabetically.
func (a *Adapter) SampleDistinctValues(ctx context.Context, schemaName, tableName, columnName string, limit int) ([]string, error) {
	col := quoteName(columnName)
	query := fmt.Sprintf(`
	SET NOCOUNT ON;
	SELECT DISTINCT TOP (%d) CAST(%s AS NVARCHAR(MAX)) AS val
	FROM %s WITH (NOLOCK)
	WHERE %s IS NOT NULL
	  AND LEN(CAST(%s AS NVARCHAR(MAX))) <= %d
	ORDER BY 1
	`,
		limit, col, buildFullyQualifiedName(schemaName, tableName), col, col, a.maxValueLength,
	)

	rows, err := a.db.QueryContext(ctx, query)
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

// GetSchema returns every user table with its columns. Column order follows
// ordinal position.
func (a *Adapter) GetSchema(ctx context.Context) ([]models.TableMetadata, error) {
	pkCols, err := a.keyColumns(ctx, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	fkCols, err := a.keyColumns(ctx, "FOREIGN KEY")
	if err != nil {
		return nil, err
	}

	const query = `
	SELECT
		c.TABLE_SCHEMA,
		c.TABLE_NAME,
		c.COLUMN_NAME,
		c.DATA_TYPE,
		CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END
	FROM INFORMATION_SCHEMA.COLUMNS c
	JOIN INFORMATION_SCHEMA.TABLES t
	  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
	WHERE t.TABLE_TYPE = 'BASE TABLE'
	ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION
	`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query schema catalogue: %w", err)
	}
	defer rows.Close()

	byTable := make(map[string]*models.TableMetadata)
	var order []string
	for rows.Next() {
		var (
			schemaName, tableName, colName, dataType string
			isNullable                               bool
		)
		if err := rows.Scan(&schemaName, &tableName, &colName, &dataType, &isNullable); err != nil {
			return nil, fmt.Errorf("scan schema column: %w", err)
		}

		key := schemaName + "." + tableName
		tbl, ok := byTable[key]
		if !ok {
			tbl = &models.TableMetadata{
				SchemaName: schemaName,
				Name:       tableName,
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

// keyColumns returns "schema.table.column" keys for the given constraint type.
func (a *Adapter) keyColumns(ctx context.Context, constraintType string) (map[string]bool, error) {
	const query = `
	SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME
	FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
	JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
	  ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
	 AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA
	WHERE tc.CONSTRAINT_TYPE = @p1
	`

	rows, err := a.db.QueryContext(ctx, query, constraintType)
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
