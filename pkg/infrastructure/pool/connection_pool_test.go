package pool

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	tests := []struct {
		name   string
		config Config
	}{
		{name: "default config", config: Config{}},
		{
			name: "custom config",
			config: Config{
				DSN:                  ":memory:",
				MaxOpenConnections:   10,
				MaxIdleConnections:   5,
				ConnMaxLifetime:      time.Hour,
				ConnMaxIdleTime:      30 * time.Minute,
				HealthCheckPeriod:    time.Minute,
				ConnectionTimeout:    10 * time.Second,
				EnableCircuitBreaker: true,
				SlowQueryThreshold:   250 * time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.config, logger)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Greater(t, p.SlowQueryThreshold(), time.Duration(0))
			require.NoError(t, p.Close())
		})
	}
}

func TestConnectionPool_Get(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	p, err := New(Config{DSN: ":memory:"}, logger)
	require.NoError(t, err)
	defer p.Close()

	t.Run("get connection", func(t *testing.T) {
		ctx := context.Background()
		db, err := p.Get(ctx)
		require.NoError(t, err)

		var result int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT 1").Scan(&result))
		assert.Equal(t, 1, result)
	})

	t.Run("connections share one in-memory database", func(t *testing.T) {
		ctx := context.Background()
		db, err := p.Get(ctx)
		require.NoError(t, err)

		_, err = db.ExecContext(ctx, "CREATE TABLE shared_probe (id INTEGER)")
		require.NoError(t, err)

		conn, err := db.Conn(ctx)
		require.NoError(t, err)
		defer conn.Close()

		var n int
		require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM shared_probe").Scan(&n))
		assert.Equal(t, 0, n)
	})

	t.Run("get after close", func(t *testing.T) {
		require.NoError(t, p.Close())

		_, err := p.Get(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection pool is closed")
	})
}

func TestConnectionPool_Stats(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	p, err := New(Config{DSN: ":memory:", EnableCircuitBreaker: true}, logger)
	require.NoError(t, err)
	defer p.Close()

	stats := p.Stats()
	assert.Equal(t, int64(0), stats.WaitCount)
	assert.Equal(t, HealthHealthy, stats.HealthCheckStatus)
	assert.Equal(t, "closed", stats.CircuitBreakerState)
	assert.False(t, stats.CircuitOpen())

	_, err = p.Get(context.Background())
	require.NoError(t, err)

	stats = p.Stats()
	assert.GreaterOrEqual(t, stats.OpenConnections, 1)
	assert.Equal(t, int64(1), stats.WaitCount)
}

func TestConnectionPool_HealthCheck(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	p, err := New(Config{DSN: ":memory:", HealthCheckPeriod: time.Second}, logger)
	require.NoError(t, err)

	require.NoError(t, p.HealthCheck(context.Background()))
	assert.Equal(t, HealthHealthy, p.Stats().HealthCheckStatus)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "second close is a no-op")

	err = p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection pool is closed")
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(2, 20*time.Millisecond)
	assert.True(t, cb.CanExecute())

	cb.RecordFailure()
	assert.Equal(t, CircuitBreakerClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, CircuitBreakerOpen, cb.State())
	assert.False(t, cb.CanExecute())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, cb.CanExecute())
	assert.Equal(t, CircuitBreakerHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitBreakerClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{":memory:", ":memory:"},
		{"short.db", "***"},
		{"/var/lib/inquire/sales.duckdb", "/va***kdb"},
		{"md:sales?motherduck_token=abc", "md:sales?motherduck_token=%2A%2A%2A%2A%2A"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, maskDSN(tt.in))
		})
	}
}

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, TruncateQuery(short))

	long := "SELECT " + string(make([]byte, 200))
	out := TruncateQuery(long)
	assert.Len(t, out, 103)
	assert.True(t, len(out) < len(long))

	exact := strings.Repeat("x", 100)
	assert.Equal(t, exact, TruncateQuery(exact))
}

func TestTruncateQuery_MultiByte(t *testing.T) {
	query := "SELECT '" + strings.Repeat("é", 120) + "'"
	out := TruncateQuery(query)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, 100, utf8.RuneCountInString(strings.TrimSuffix(out, "...")))
	assert.Equal(t, "SELECT '"+strings.Repeat("é", 92)+"...", out)
}
