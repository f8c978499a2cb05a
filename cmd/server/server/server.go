// Package server wires the inquire components into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/TFMV/inquire/cmd/server/config"
	"github.com/TFMV/inquire/cmd/server/middleware"
	"github.com/TFMV/inquire/pkg/cache"
	"github.com/TFMV/inquire/pkg/handlers"
	"github.com/TFMV/inquire/pkg/infrastructure/metrics"
	"github.com/TFMV/inquire/pkg/infrastructure/pool"
	"github.com/TFMV/inquire/pkg/llm"
	"github.com/TFMV/inquire/pkg/repositories"
	"github.com/TFMV/inquire/pkg/repositories/duckdb"
	"github.com/TFMV/inquire/pkg/services"
)

// HealthServiceName is the service reported by the gRPC health server.
const HealthServiceName = "inquire"

// Server owns every long-lived component.
type Server struct {
	// Configuration
	config *config.Config
	logger zerolog.Logger

	// Metrics
	metrics       metrics.Collector
	registry      *prometheus.Registry
	metricsServer *metrics.MetricsServer

	// Core components
	pool   pool.ConnectionPool
	cache  *cache.LRUCache
	seeder repositories.Seeder

	// Services
	executor services.QueryExecutor
	resolver services.Resolver
	analyzer services.Analyzer
	orders   services.OrderService

	// Transport
	auth         *middleware.AuthMiddleware
	router       chi.Router
	httpServer   *http.Server
	healthServer *health.Server
	grpcServer   *grpc.Server

	// State
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds the server from cfg. Completion is backed by Gemini when an API
// key is configured and by llm.Unavailable otherwise.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	srv := &Server{
		config: cfg,
		logger: logger,
	}

	auth, err := middleware.NewAuthMiddleware(cfg.Auth, logger.With().Str("component", "auth_middleware").Logger())
	if err != nil {
		return nil, err
	}
	srv.auth = auth

	if cfg.Metrics.Enabled {
		srv.registry = prometheus.NewRegistry()
		srv.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		srv.metrics = metrics.NewPrometheusCollector(cfg.Metrics.Namespace, srv.registry)
		srv.metricsServer = metrics.NewMetricsServer(cfg.Metrics.Address, srv.registry)
	} else {
		srv.metrics = metrics.NewNoOpCollector()
	}

	// Create connection pool
	poolCfg := pool.Config{
		DSN:                     cfg.Database.DSN,
		MotherDuckToken:         cfg.Database.MotherDuckToken,
		MaxOpenConnections:      cfg.ConnectionPool.MaxOpenConnections,
		MaxIdleConnections:      cfg.ConnectionPool.MaxIdleConnections,
		ConnMaxLifetime:         cfg.ConnectionPool.ConnMaxLifetime,
		ConnMaxIdleTime:         cfg.ConnectionPool.ConnMaxIdleTime,
		HealthCheckPeriod:       cfg.ConnectionPool.HealthCheckPeriod,
		ConnectionTimeout:       cfg.ConnectionPool.ConnectionTimeout,
		SlowQueryThreshold:      cfg.ConnectionPool.SlowQueryThreshold,
		EnableCircuitBreaker:    cfg.ConnectionPool.EnableCircuitBreaker,
		CircuitBreakerThreshold: cfg.ConnectionPool.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   cfg.ConnectionPool.CircuitBreakerTimeout,
	}

	srv.pool, err = pool.New(poolCfg, logger.With().Str("component", "pool").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	srv.cache = cache.New(cache.DefaultConfig().
		WithCapacity(cfg.Cache.Capacity).
		WithTTL(cfg.Cache.TTL))

	// Create repositories
	repoLogger := logger.With().Str("component", "repository").Logger()
	queryRepo := duckdb.NewQueryRepository(srv.pool, repoLogger)
	metadataRepo := duckdb.NewMetadataRepository(srv.pool, cfg.Database.Schema, repoLogger)
	orderRepo := duckdb.NewOrderRepository(srv.pool, repoLogger)
	srv.seeder = duckdb.NewSeeder(srv.pool, repoLogger)

	// Create services
	serviceMetrics := &serviceMetricsAdapter{collector: srv.metrics}
	completer := NewCompleter(cfg.LLM, logger)

	srv.executor = services.NewQueryExecutor(queryRepo, metadataRepo, srv.cache, cfg.Cache.SchemaTTL,
		newLoggerAdapter(logger, "query_executor"), serviceMetrics)
	srv.resolver = services.NewResolver(completer, srv.executor,
		newLoggerAdapter(logger, "resolver"), serviceMetrics)
	srv.analyzer = services.NewAnalyzer(completer,
		newLoggerAdapter(logger, "analyzer"), serviceMetrics)
	srv.orders = services.NewOrderService(orderRepo,
		newLoggerAdapter(logger, "order_service"), serviceMetrics)

	srv.router = srv.routes()
	srv.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           srv.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.Health.Enabled {
		srv.healthServer = health.NewServer()
		srv.grpcServer = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(srv.grpcServer, srv.healthServer)
		srv.healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	return srv, nil
}

// NewCompleter returns the Gemini client for cfg, or llm.Unavailable when no
// API key is set.
func NewCompleter(cfg config.LLMConfig, logger zerolog.Logger) llm.Completer {
	if cfg.APIKey == "" {
		logger.Warn().Msg("No LLM API key configured, questions will be answered by fallback rules")
		return llm.Unavailable{}
	}
	return llm.NewGeminiClient(llm.GeminiConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, nil, logger)
}

func (s *Server) routes() chi.Router {
	handlerMetrics := handlers.NewMetricsAdapter(s.metrics)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(s.logger.With().Str("component", "http").Logger()).Handler)
	r.Use(middleware.NewMetricsMiddleware(s.metrics).Handler)
	r.Use(middleware.NewRecoveryMiddleware(s.logger.With().Str("component", "recovery_middleware").Logger()).Handler)
	r.Use(chimw.Heartbeat("/health"))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler)

	handlers.NewChatHandler(s.resolver, s.executor,
		newLoggerAdapter(s.logger, "chat_handler"), handlerMetrics).RegisterRoutes(r)
	handlers.NewAnalysisHandler(s.executor, s.analyzer,
		newLoggerAdapter(s.logger, "analysis_handler"), handlerMetrics).RegisterRoutes(r)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.auth.Handler)
		handlers.NewOrderHandler(s.orders,
			newLoggerAdapter(s.logger, "order_handler"), handlerMetrics).RegisterRoutes(r)
	})

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Resolver returns the question resolver.
func (s *Server) Resolver() services.Resolver {
	return s.resolver
}

// Seed loads the demo dataset unless it is already present.
func (s *Server) Seed(ctx context.Context) (bool, error) {
	return s.seeder.Seed(ctx)
}

// Start launches background work and every listener. It returns once the
// listeners are bound; serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.config.Cache.CleanupInterval > 0 {
		s.cache.StartJanitor(ctx, s.config.Cache.CleanupInterval)
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	s.serve("http", func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	s.logger.Info().Str("address", s.config.Address).Msg("HTTP server listening")

	if s.metricsServer != nil {
		s.serve("metrics", s.metricsServer.Start)
		s.logger.Info().Str("address", s.config.Metrics.Address).Msg("Metrics server listening")
	}

	if s.grpcServer != nil {
		hln, err := net.Listen("tcp", s.config.Health.Address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.config.Health.Address, err)
		}
		s.serve("health", func() error { return s.grpcServer.Serve(hln) })
		s.logger.Info().Str("address", s.config.Health.Address).Msg("gRPC health server listening")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watchHealth(ctx)
	}()

	return nil
}

func (s *Server) serve(name string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			s.logger.Error().Err(err).Str("listener", name).Msg("Server error")
		}
	}()
}

// watchHealth mirrors store health into the gRPC health service and pool
// statistics into gauges.
func (s *Server) watchHealth(ctx context.Context) {
	period := s.config.ConnectionPool.HealthCheckPeriod
	if period <= 0 {
		period = time.Minute
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		s.checkHealth(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) checkHealth(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := s.pool.HealthCheck(checkCtx); err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		s.logger.Warn().Err(err).Msg("Store health check failed")
	}
	if s.healthServer != nil {
		s.healthServer.SetServingStatus(HealthServiceName, status)
	}

	stats := s.pool.Stats()
	s.metrics.RecordGauge("pool_open_connections", float64(stats.OpenConnections))
	s.metrics.RecordGauge("pool_in_use_connections", float64(stats.InUse))
	s.metrics.RecordGauge("pool_idle_connections", float64(stats.Idle))
	s.metrics.RecordGauge("pool_circuit_open", boolGauge(stats.CircuitOpen()))
	s.metrics.RecordGauge("cache_entries", float64(s.cache.Len()))
}

// Close shuts everything down, waiting at most until ctx is done.
func (s *Server) Close(ctx context.Context) error {
	var firstErr error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
			firstErr = err
		}
		if s.metricsServer != nil {
			if err := s.metricsServer.Stop(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Error stopping metrics server")
			}
		}
		if s.grpcServer != nil {
			s.healthServer.Shutdown()
			s.grpcServer.GracefulStop()
		}

		s.wg.Wait()

		if err := s.cache.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing cache")
		}
		if err := s.pool.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing connection pool")
			if firstErr == nil {
				firstErr = err
			}
		}

		s.logger.Info().Msg("Server closed")
	})
	return firstErr
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
