package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/TFMV/inquire/pkg/cache"
	"github.com/TFMV/inquire/pkg/models"
)

// MockResolver is a mock implementation of services.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, question string) *models.ResolutionOutcome {
	args := m.Called(ctx, question)
	return args.Get(0).(*models.ResolutionOutcome)
}

// MockQueryExecutor is a mock implementation of services.QueryExecutor
type MockQueryExecutor struct {
	mock.Mock
}

func (m *MockQueryExecutor) Execute(ctx context.Context, sql string, useCache bool) (*models.QueryResult, error) {
	args := m.Called(ctx, sql, useCache)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResult), args.Error(1)
}

func (m *MockQueryExecutor) GetSchema(ctx context.Context) []models.TableInfo {
	args := m.Called(ctx)
	return args.Get(0).([]models.TableInfo)
}

func (m *MockQueryExecutor) ClearCache(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

func (m *MockQueryExecutor) CacheStats() cache.Stats {
	args := m.Called()
	return args.Get(0).(cache.Stats)
}

// MockAnalyzer is a mock implementation of services.Analyzer
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, result *models.QueryResult, question, sql string) *models.AnalysisOutcome {
	args := m.Called(ctx, result, question, sql)
	return args.Get(0).(*models.AnalysisOutcome)
}

// MockOrderService is a mock implementation of services.OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, order *models.NewOrder) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type nopMetrics struct{}

func (nopMetrics) IncrementCounter(string, ...string)          {}
func (nopMetrics) RecordHistogram(string, float64, ...string) {}
func (nopMetrics) RecordGauge(string, float64, ...string)     {}
func (nopMetrics) StartTimer(string) Timer                    { return nopTimer{} }

type nopTimer struct{}

func (nopTimer) Stop() {}
