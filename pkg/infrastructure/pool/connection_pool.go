// Package pool provides database connection pooling for DuckDB.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"

	pkgerrors "github.com/TFMV/inquire/pkg/errors"
)

// Config represents pool configuration.
type Config struct {
	DSN                string        `json:"dsn"`
	MotherDuckToken    string        `json:"-"`
	MaxOpenConnections int           `json:"max_open_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	HealthCheckPeriod  time.Duration `json:"health_check_period"`
	ConnectionTimeout  time.Duration `json:"connection_timeout"`

	EnableCircuitBreaker    bool          `json:"enable_circuit_breaker"`
	CircuitBreakerThreshold int           `json:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `json:"circuit_breaker_timeout"`
	SlowQueryThreshold      time.Duration `json:"slow_query_threshold"`
}

// ConnectionPool manages database connections.
type ConnectionPool interface {
	// Get returns a database connection.
	Get(ctx context.Context) (*sql.DB, error)
	// Stats returns pool statistics.
	Stats() PoolStats
	// HealthCheck performs a health check on the pool.
	HealthCheck(ctx context.Context) error
	// SlowQueryThreshold is the duration above which queries are logged as slow.
	SlowQueryThreshold() time.Duration
	// Close closes the connection pool.
	Close() error
}

// HealthStatus is the outcome of the most recent store probe.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// PoolStats represents connection pool statistics.
type PoolStats struct {
	OpenConnections     int           `json:"open_connections"`
	InUse               int           `json:"in_use"`
	Idle                int           `json:"idle"`
	WaitCount           int64         `json:"wait_count"`
	WaitDuration        time.Duration `json:"wait_duration"`
	LastHealthCheck     time.Time     `json:"last_health_check"`
	HealthCheckStatus   HealthStatus  `json:"health_check_status"`
	CircuitBreakerState string        `json:"circuit_breaker_state,omitempty"`
}

// CircuitOpen reports whether the breaker is currently refusing connections.
func (s PoolStats) CircuitOpen() bool {
	return s.CircuitBreakerState == CircuitBreakerOpen.String()
}

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerClosed:
		return "closed"
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops handing out connections after repeated ping failures.
type CircuitBreaker struct {
	state           atomic.Int32 // CircuitBreakerState
	failures        atomic.Int64
	lastFailureTime atomic.Int64
	threshold       int
	timeout         time.Duration
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		timeout:   timeout,
	}
}

// CanExecute checks if the circuit breaker allows execution.
func (cb *CircuitBreaker) CanExecute() bool {
	switch CircuitBreakerState(cb.state.Load()) {
	case CircuitBreakerClosed, CircuitBreakerHalfOpen:
		return true
	case CircuitBreakerOpen:
		if time.Since(time.Unix(0, cb.lastFailureTime.Load())) > cb.timeout {
			return cb.state.CompareAndSwap(int32(CircuitBreakerOpen), int32(CircuitBreakerHalfOpen))
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful operation.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.failures.Store(0)
	cb.state.Store(int32(CircuitBreakerClosed))
}

// RecordFailure records a failed operation.
func (cb *CircuitBreaker) RecordFailure() {
	failures := cb.failures.Add(1)
	cb.lastFailureTime.Store(time.Now().UnixNano())

	if failures >= int64(cb.threshold) {
		cb.state.Store(int32(CircuitBreakerOpen))
	}
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(cb.state.Load())
}

type connectionPool struct {
	db     *sql.DB
	config Config
	logger zerolog.Logger

	closed atomic.Bool

	lastHealthCheck atomic.Int64 // unix seconds
	healthStatus    atomic.Value // HealthStatus

	cancel context.CancelFunc

	waitCount    atomic.Int64
	waitDuration atomic.Int64

	circuitBreaker *CircuitBreaker
}

// New opens a DuckDB database and verifies it with a health check.
func New(cfg Config, logger zerolog.Logger) (ConnectionPool, error) {
	if cfg.DSN == "" {
		cfg.DSN = ":memory:"
	}
	if cfg.MaxOpenConnections <= 0 {
		cfg.MaxOpenConnections = 25
	}
	if cfg.MaxIdleConnections <= 0 {
		cfg.MaxIdleConnections = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 10 * time.Minute
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 30 * time.Second
	}
	if cfg.CircuitBreakerThreshold <= 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.CircuitBreakerTimeout <= 0 {
		cfg.CircuitBreakerTimeout = 60 * time.Second
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = time.Second
	}

	logger.Info().
		Str("dsn", maskDSN(cfg.DSN)).
		Int("max_open", cfg.MaxOpenConnections).
		Int("max_idle", cfg.MaxIdleConnections).
		Dur("conn_lifetime", cfg.ConnMaxLifetime).
		Bool("circuit_breaker", cfg.EnableCircuitBreaker).
		Msg("Creating DuckDB connection pool")

	// go-duckdb treats an empty DSN as an in-memory database shared by all connections.
	dsn := ResolveDSN(cfg.DSN, cfg.MotherDuckToken)
	if dsn == ":memory:" {
		dsn = ""
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithCancel(context.Background())

	p := &connectionPool{
		db:     db,
		config: cfg,
		logger: logger,
		cancel: cancel,
	}
	if cfg.EnableCircuitBreaker {
		p.circuitBreaker = NewCircuitBreaker(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout)
	}
	p.healthStatus.Store(HealthUnknown)

	connCtx, connCancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer connCancel()

	if err := p.HealthCheck(connCtx); err != nil {
		db.Close()
		cancel()
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "initial health check failed")
	}

	if cfg.HealthCheckPeriod > 0 {
		go p.healthCheckRoutine(ctx)
	}

	logger.Info().Msg("DuckDB connection pool created successfully")
	return p, nil
}

// Get returns the pooled database after verifying it is reachable.
func (p *connectionPool) Get(ctx context.Context) (*sql.DB, error) {
	if p.closed.Load() {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "connection pool is closed")
	}
	if p.circuitBreaker != nil && !p.circuitBreaker.CanExecute() {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "circuit breaker is open")
	}

	start := time.Now()
	p.waitCount.Add(1)
	defer func() {
		p.waitDuration.Add(int64(time.Since(start)))
	}()

	if err := p.db.PingContext(ctx); err != nil {
		p.logger.Error().Err(err).Msg("Database ping failed")
		if p.circuitBreaker != nil {
			p.circuitBreaker.RecordFailure()
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "database connection failed")
	}

	if p.circuitBreaker != nil {
		p.circuitBreaker.RecordSuccess()
	}
	return p.db, nil
}

// Stats returns pool statistics.
func (p *connectionPool) Stats() PoolStats {
	dbStats := p.db.Stats()

	stats := PoolStats{
		OpenConnections:   dbStats.OpenConnections,
		InUse:             dbStats.InUse,
		Idle:              dbStats.Idle,
		WaitCount:         p.waitCount.Load(),
		WaitDuration:      time.Duration(p.waitDuration.Load()),
		LastHealthCheck:   time.Unix(p.lastHealthCheck.Load(), 0),
		HealthCheckStatus: p.health(),
	}
	if p.circuitBreaker != nil {
		stats.CircuitBreakerState = p.circuitBreaker.State().String()
	}
	return stats
}

// SlowQueryThreshold returns the configured slow query threshold.
func (p *connectionPool) SlowQueryThreshold() time.Duration {
	return p.config.SlowQueryThreshold
}

// HealthCheck runs a probe query against the store. Probe results feed the
// circuit breaker, so a remote database that stops answering is cut off
// before request handlers start waiting on it.
func (p *connectionPool) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return pkgerrors.New(pkgerrors.CodeUnavailable, "connection pool is closed")
	}

	var probe int
	err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&probe)
	if err == nil && probe != 1 {
		err = errors.New("unexpected probe result")
	}
	if err != nil {
		p.setHealth(HealthUnhealthy, err)
		if p.circuitBreaker != nil {
			p.circuitBreaker.RecordFailure()
		}
		return pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "store health check failed")
	}

	p.setHealth(HealthHealthy, nil)
	if p.circuitBreaker != nil {
		p.circuitBreaker.RecordSuccess()
	}
	return nil
}

// Close closes the connection pool.
func (p *connectionPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.logger.Info().Msg("Closing DuckDB connection pool")
	p.cancel()

	if err := p.db.Close(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to close database")
	}
	return nil
}

// healthCheckRoutine performs periodic health checks until ctx is cancelled.
func (p *connectionPool) healthCheckRoutine(ctx context.Context) {
	ticker := time.NewTicker(p.config.HealthCheckPeriod)
	defer ticker.Stop()

	p.logger.Info().Dur("period", p.config.HealthCheckPeriod).Msg("Health check routine started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Health check routine stopped")
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := p.HealthCheck(probeCtx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("Periodic health check failed")
			}
			cancel()
		}
	}
}

func (p *connectionPool) setHealth(status HealthStatus, cause error) {
	p.lastHealthCheck.Store(time.Now().Unix())
	previous := p.health()
	p.healthStatus.Store(status)

	if status != previous && previous != HealthUnknown {
		event := p.logger.Info()
		if status == HealthUnhealthy {
			event = p.logger.Warn().Err(cause)
		}
		event.
			Str("from", string(previous)).
			Str("to", string(status)).
			Msg("Store health changed")
	}
}

func (p *connectionPool) health() HealthStatus {
	if v, ok := p.healthStatus.Load().(HealthStatus); ok {
		return v
	}
	return HealthUnknown
}

// maskDSN hides credentials in URL-like DSNs and masks the middle of plain
// file paths so logs stay recognisable without leaking secrets.
func maskDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return dsn
	}

	u, err := url.Parse(dsn)
	if err == nil && looksLikeURL(u) {
		if ui := u.User; ui != nil {
			user := ui.Username()
			if _, hasPass := ui.Password(); hasPass {
				u.User = url.UserPassword(user, "*****")
			} else {
				u.User = url.User(user)
			}
		}

		q := u.Query()
		for k := range q {
			if isSensitiveKey(k) {
				q.Set(k, "*****")
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	runes := []rune(dsn)
	if len(runes) <= 10 {
		return "***"
	}
	return string(runes[:3]) + "***" + string(runes[len(runes)-3:])
}

func looksLikeURL(u *url.URL) bool {
	return u.Scheme != "" || u.Host != "" || u.User != nil || u.RawQuery != ""
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "pass"),
		strings.Contains(key, "token"),
		strings.Contains(key, "secret"),
		strings.HasSuffix(key, "key"):
		return true
	default:
		return false
	}
}

// TruncateQuery shortens long queries for logging to 100 characters,
// cutting on a rune boundary.
func TruncateQuery(query string) string {
	const maxRunes = 100
	n := 0
	for i := range query {
		if n == maxRunes {
			return query[:i] + "..."
		}
		n++
	}
	return query
}
