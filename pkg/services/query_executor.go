package services

import (
	"context"
	"strings"
	"time"

	"github.com/TFMV/inquire/pkg/cache"
	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/repositories"
)

const (
	// SchemaCacheKey is the reserved cache key for the assembled schema.
	SchemaCacheKey = "database_schema"
	// DefaultSchemaTTL is how long the assembled schema stays cached.
	DefaultSchemaTTL = 30 * time.Minute
)

// queryExecutor implements QueryExecutor.
type queryExecutor struct {
	repo      repositories.QueryRepository
	meta      repositories.MetadataRepository
	cache     cache.Cache
	schemaTTL time.Duration
	logger    Logger
	metrics   MetricsCollector
}

// NewQueryExecutor creates a new query executor. A non-positive schemaTTL
// selects DefaultSchemaTTL.
func NewQueryExecutor(
	repo repositories.QueryRepository,
	meta repositories.MetadataRepository,
	c cache.Cache,
	schemaTTL time.Duration,
	logger Logger,
	metrics MetricsCollector,
) QueryExecutor {
	if schemaTTL <= 0 {
		schemaTTL = DefaultSchemaTTL
	}
	return &queryExecutor{
		repo:      repo,
		meta:      meta,
		cache:     c,
		schemaTTL: schemaTTL,
		logger:    logger,
		metrics:   metrics,
	}
}

// Execute runs sql, serving and filling the cache when useCache is set.
func (e *queryExecutor) Execute(ctx context.Context, sql string, useCache bool) (*models.QueryResult, error) {
	query := strings.TrimSpace(sql)
	if query == "" {
		e.metrics.IncrementCounter("query_validation_errors")
		return nil, errors.ErrEmptyQuery
	}

	if useCache {
		if v, ok := e.cache.Get(ctx, query); ok {
			if res, ok := v.(*models.QueryResult); ok {
				e.metrics.IncrementCounter("query_cache_hits")
				e.logger.Debug("Serving query from cache", "query", query, "rows", res.RowCount())
				return res, nil
			}
		}
		e.metrics.IncrementCounter("query_cache_misses")
	}

	timer := e.metrics.StartTimer("query_execution")
	start := time.Now()
	raw, err := e.repo.Query(ctx, query)
	executionTime := time.Since(start)
	timer.Stop()

	if err != nil {
		e.metrics.IncrementCounter("query_execution_errors")
		e.logger.Error("Query execution failed",
			"error", err,
			"query", query,
			"execution_time", executionTime)
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "query execution failed")
	}

	result, err := models.FromStore(raw)
	if err != nil {
		e.metrics.IncrementCounter("query_execution_errors")
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "malformed result")
	}

	if useCache {
		e.cache.Put(ctx, query, result)
	}

	e.metrics.IncrementCounter("successful_queries")
	e.metrics.RecordHistogram("query_execution_time", executionTime.Seconds())
	e.metrics.RecordHistogram("query_result_rows", float64(result.RowCount()))

	e.logger.Info("Query executed successfully",
		"query", query,
		"rows", result.RowCount(),
		"execution_time", executionTime)

	return result, nil
}

// GetSchema returns every base table with its columns and row count. Errors
// are logged and produce an empty list.
func (e *queryExecutor) GetSchema(ctx context.Context) []models.TableInfo {
	if v, ok := e.cache.Get(ctx, SchemaCacheKey); ok {
		if tables, ok := v.([]models.TableInfo); ok {
			return tables
		}
	}

	tables, err := e.loadSchema(ctx)
	if err != nil {
		e.metrics.IncrementCounter("schema_fetch_errors")
		e.logger.Error("Failed to fetch database schema", "error", err)
		return []models.TableInfo{}
	}

	e.cache.PutWithTTL(ctx, SchemaCacheKey, tables, e.schemaTTL)
	e.logger.Debug("Database schema loaded", "tables", len(tables))
	return tables
}

func (e *queryExecutor) loadSchema(ctx context.Context) ([]models.TableInfo, error) {
	names, err := e.meta.ListTables(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSchemaFetchFailed, "failed to list tables")
	}

	tables := make([]models.TableInfo, 0, len(names))
	for _, name := range names {
		cols, err := e.meta.GetColumns(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeSchemaFetchFailed, "failed to read columns of %s", name)
		}
		count, err := e.meta.CountRows(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeSchemaFetchFailed, "failed to count rows of %s", name)
		}
		tables = append(tables, models.TableInfo{
			Name:     name,
			Columns:  cols,
			RowCount: count,
		})
	}
	return tables, nil
}

// ClearCache drops every cached entry, including the schema.
func (e *queryExecutor) ClearCache(ctx context.Context) int {
	n := e.cache.Clear(ctx)
	e.logger.Info("Query cache cleared", "evicted", n)
	return n
}

// CacheStats returns cache statistics.
func (e *queryExecutor) CacheStats() cache.Stats {
	return e.cache.Stats()
}
