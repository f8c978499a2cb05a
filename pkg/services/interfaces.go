// Package services contains business logic implementations.
package services

import (
	"context"
	"time"

	"github.com/TFMV/inquire/pkg/cache"
	"github.com/TFMV/inquire/pkg/models"
)

// QueryExecutor runs SQL against the store with result caching.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string, useCache bool) (*models.QueryResult, error)
	GetSchema(ctx context.Context) []models.TableInfo
	ClearCache(ctx context.Context) int
	CacheStats() cache.Stats
}

// Resolver turns a question into a single outcome.
type Resolver interface {
	Resolve(ctx context.Context, question string) *models.ResolutionOutcome
}

// Analyzer explains an existing result and suggests a chart.
type Analyzer interface {
	Analyze(ctx context.Context, result *models.QueryResult, question, sql string) *models.AnalysisOutcome
}

// OrderService defines order operations.
type OrderService interface {
	CreateOrder(ctx context.Context, order *models.NewOrder) (int64, error)
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() time.Duration
}
