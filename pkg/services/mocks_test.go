package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TFMV/inquire/pkg/cache"
	"github.com/TFMV/inquire/pkg/llm"
	"github.com/TFMV/inquire/pkg/models"
)

// mockLogger implements Logger
type mockLogger struct {
	debugFunc func(msg string, keysAndValues ...interface{})
	infoFunc  func(msg string, keysAndValues ...interface{})
	warnFunc  func(msg string, keysAndValues ...interface{})
	errorFunc func(msg string, keysAndValues ...interface{})
}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {
	if m.debugFunc != nil {
		m.debugFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	if m.infoFunc != nil {
		m.infoFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	if m.warnFunc != nil {
		m.warnFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	if m.errorFunc != nil {
		m.errorFunc(msg, keysAndValues...)
	}
}

// mockMetricsCollector implements MetricsCollector and remembers counters.
type mockMetricsCollector struct {
	mu       sync.Mutex
	counters map[string]int
}

func newMockMetrics() *mockMetricsCollector {
	return &mockMetricsCollector{counters: make(map[string]int)}
}

func (m *mockMetricsCollector) IncrementCounter(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

func (m *mockMetricsCollector) RecordHistogram(name string, value float64, labels ...string) {}

func (m *mockMetricsCollector) RecordGauge(name string, value float64, labels ...string) {}

func (m *mockMetricsCollector) StartTimer(name string) Timer {
	return &mockTimer{}
}

func (m *mockMetricsCollector) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// mockTimer implements Timer
type mockTimer struct{}

func (m *mockTimer) Stop() time.Duration {
	return 0
}

// mockQueryRepo implements repositories.QueryRepository
type mockQueryRepo struct {
	mu        sync.Mutex
	calls     []string
	queryFunc func(ctx context.Context, query string) (*models.StoreResult, error)
}

func (m *mockQueryRepo) Query(ctx context.Context, query string, args ...interface{}) (*models.StoreResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.mu.Unlock()
	return m.queryFunc(ctx, query)
}

func (m *mockQueryRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockMetadataRepo implements repositories.MetadataRepository
type mockMetadataRepo struct {
	listTablesFunc func(ctx context.Context) ([]string, error)
	getColumnsFunc func(ctx context.Context, table string) ([]models.ColumnInfo, error)
	countRowsFunc  func(ctx context.Context, table string) (int64, error)
}

func (m *mockMetadataRepo) ListTables(ctx context.Context) ([]string, error) {
	return m.listTablesFunc(ctx)
}

func (m *mockMetadataRepo) GetColumns(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	return m.getColumnsFunc(ctx, table)
}

func (m *mockMetadataRepo) CountRows(ctx context.Context, table string) (int64, error) {
	return m.countRowsFunc(ctx, table)
}

// mockOrderRepo implements repositories.OrderRepository
type mockOrderRepo struct {
	createOrderFunc func(ctx context.Context, order *models.NewOrder) (int64, error)
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *models.NewOrder) (int64, error) {
	return m.createOrderFunc(ctx, order)
}

func storeResult(fields []string, rows ...models.Row) *models.StoreResult {
	res := &models.StoreResult{Rows: rows}
	for _, f := range fields {
		res.Fields = append(res.Fields, models.Field{Name: f})
	}
	if res.Rows == nil {
		res.Rows = []models.Row{}
	}
	return res
}

// mockExecutor implements QueryExecutor
type mockExecutor struct {
	mu          sync.Mutex
	executed    []string
	executeFunc func(ctx context.Context, sql string) (*models.QueryResult, error)
}

func (m *mockExecutor) Execute(ctx context.Context, sql string, useCache bool) (*models.QueryResult, error) {
	m.mu.Lock()
	m.executed = append(m.executed, sql)
	m.mu.Unlock()
	return m.executeFunc(ctx, sql)
}

func (m *mockExecutor) GetSchema(ctx context.Context) []models.TableInfo {
	return []models.TableInfo{}
}

func (m *mockExecutor) ClearCache(ctx context.Context) int {
	return 0
}

func (m *mockExecutor) CacheStats() cache.Stats {
	return cache.Stats{}
}

// scriptedCompleter answers completion calls in order and records requests.
type scriptedCompleter struct {
	mu        sync.Mutex
	requests  []llm.Request
	responses []completion
}

type completion struct {
	text string
	err  error
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next.text, next.err
}

func mustResult(columns []string, rows ...models.Row) *models.QueryResult {
	res, err := models.NewQueryResult(columns, rows)
	if err != nil {
		panic(err)
	}
	return res
}
