package duckdb

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/infrastructure/pool"
	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/repositories"
)

// DefaultSchema is DuckDB's default schema.
const DefaultSchema = "main"

// metadataRepository implements repositories.MetadataRepository for DuckDB.
type metadataRepository struct {
	pool   pool.ConnectionPool
	schema string
	logger zerolog.Logger
}

// NewMetadataRepository creates a metadata repository scoped to one schema.
func NewMetadataRepository(pool pool.ConnectionPool, schema string, logger zerolog.Logger) repositories.MetadataRepository {
	if schema == "" {
		schema = DefaultSchema
	}
	return &metadataRepository{
		pool:   pool,
		schema: schema,
		logger: logger,
	}
}

// ListTables returns base table names.
func (r *metadataRepository) ListTables(ctx context.Context) ([]string, error) {
	r.logger.Debug().Str("schema", r.schema).Msg("Listing tables")

	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`, r.schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSchemaFetchFailed, "failed to query tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.CodeSchemaFetchFailed, "failed to scan table")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeSchemaFetchFailed, "error iterating tables")
	}
	return tables, nil
}

// GetColumns returns a table's columns in ordinal order.
func (r *metadataRepository) GetColumns(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	r.logger.Debug().Str("table", table).Msg("Getting columns")

	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name = ?
		ORDER BY ordinal_position`, r.schema, table)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeSchemaFetchFailed, "failed to query columns for %s", table)
	}
	defer rows.Close()

	columns := []models.ColumnInfo{}
	for rows.Next() {
		var col models.ColumnInfo
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, errors.Wrap(err, errors.CodeSchemaFetchFailed, "failed to scan column")
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeSchemaFetchFailed, "error iterating columns")
	}
	return columns, nil
}

// CountRows returns the row count of a table.
func (r *metadataRepository) CountRows(ctx context.Context, table string) (int64, error) {
	db, err := r.pool.Get(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}

	var n int64
	query := "SELECT COUNT(*) FROM " + quoteIdent(r.schema) + "." + quoteIdent(table)
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, errors.CodeSchemaFetchFailed, "failed to count rows in %s", table)
	}
	return n, nil
}

// quoteIdent quotes an identifier for DuckDB.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
