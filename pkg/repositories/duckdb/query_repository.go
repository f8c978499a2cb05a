// Package duckdb provides DuckDB-specific repository implementations.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/infrastructure/pool"
	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/repositories"
)

// queryRepository implements repositories.QueryRepository for DuckDB.
type queryRepository struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewQueryRepository creates a new DuckDB query repository.
func NewQueryRepository(pool pool.ConnectionPool, logger zerolog.Logger) repositories.QueryRepository {
	return &queryRepository{
		pool:   pool,
		logger: logger,
	}
}

// Query executes a statement and materializes every row.
func (r *queryRepository) Query(ctx context.Context, query string, args ...interface{}) (*models.StoreResult, error) {
	r.logger.Debug().
		Str("query", pool.TruncateQuery(query)).
		Int("args_count", len(args)).
		Msg("Executing query")

	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get connection from pool")
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	ev := r.logger.Debug()
	if elapsed > r.pool.SlowQueryThreshold() {
		ev = r.logger.Warn().Bool("slow_query", true)
	}
	ev.Dur("duration", elapsed).
		Int("rows", len(res.Rows)).
		Str("query", pool.TruncateQuery(query)).
		Msg("Query executed")

	return res, nil
}

// scanRows reads all rows into maps keyed by column name. Repeated column
// names get a numeric suffix so no value is lost.
func scanRows(rows *sql.Rows) (*models.StoreResult, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	fields := make([]models.Field, len(colTypes))
	seen := make(map[string]int, len(colTypes))
	for i, ct := range colTypes {
		name := ct.Name()
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		fields[i] = models.Field{Name: name, DataType: ct.DatabaseTypeName()}
	}

	result := &models.StoreResult{Fields: fields, Rows: []models.Row{}}
	values := make([]interface{}, len(fields))
	ptrs := make([]interface{}, len(fields))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(models.Row, len(fields))
		for i, f := range fields {
			row[f.Name] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}

// normalizeValue maps driver-specific values onto JSON-friendly Go values.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case duckdb.Decimal:
		return t.Float64()
	case *big.Int:
		if t == nil {
			return nil
		}
		if t.IsInt64() {
			return t.Int64()
		}
		f, _ := new(big.Float).SetInt(t).Float64()
		return f
	case []byte:
		return string(t)
	case duckdb.Interval:
		return fmt.Sprintf("%d months %d days %d us", t.Months, t.Days, t.Micros)
	default:
		return v
	}
}
