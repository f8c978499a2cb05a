// Package main provides the entry point for the inquire server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/inquire/cmd/server/config"
	"github.com/TFMV/inquire/cmd/server/server"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// envFileErr is the result of loading .env, reported once logging is set up.
var envFileErr error

var rootCmd = &cobra.Command{
	Use:   "inquire",
	Short: "Inquire natural-language analytics server",
	Long: `Inquire answers questions about a sales database in plain language.

Questions are turned into SQL by a text-completion model, run against DuckDB,
and returned with an explanation and a chart suggestion. Without a model the
answers come from a fixed set of keyword rules.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with the specified configuration.

Example:
  inquire serve --config ./config.yaml
  inquire serve --address 0.0.0.0:3001 --database ./inquire.duckdb --seed`,
	RunE: runServer,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and populate the demo tables",
	RunE:  runSeed,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and print the outcome as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	// Load .env before viper reads the environment.
	envFileErr = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file path")
	flags.String("database", "inquire.duckdb", "DuckDB database path")
	flags.String("schema", "main", "database schema to introspect")
	flags.String("motherduck-token", "", "MotherDuck token for motherduck:// or md: databases")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("llm-api-key", "", "Gemini API key (empty disables generation)")
	flags.String("llm-model", "gemini-1.5-flash", "Gemini model")
	flags.Duration("llm-timeout", 60*time.Second, "completion request timeout")
	flags.Int("cache-capacity", 100, "maximum cached query results")
	flags.Duration("cache-ttl", 5*time.Minute, "cached query result lifetime")

	serveCmd.Flags().String("address", "0.0.0.0:3001", "HTTP listen address")
	serveCmd.Flags().Bool("seed", false, "seed the demo dataset before serving")
	serveCmd.Flags().Bool("metrics", true, "enable Prometheus metrics")
	serveCmd.Flags().String("metrics-address", ":9090", "metrics server address")
	serveCmd.Flags().Bool("health", true, "enable the gRPC health service")
	serveCmd.Flags().String("health-address", ":8086", "gRPC health service address")
	serveCmd.Flags().Bool("auth", false, "require authentication on admin routes")
	serveCmd.Flags().String("auth-type", "jwt", "admin authentication type (jwt, bearer)")
	serveCmd.Flags().String("jwt-secret", "", "HMAC secret for admin tokens")
	serveCmd.Flags().String("jwt-public-key", "", "PEM file with the RSA or ECDSA key that verifies admin tokens")
	serveCmd.Flags().StringSlice("cors-origins", []string{"http://localhost:3000"}, "allowed CORS origins")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")

	// Bind flags to viper
	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("INQUIRE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, seedCmd, askCmd)

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Inquire\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogging(cfg.LogLevel)
	reportEnvFile(logger, envFileErr)
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("Starting inquire")

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.GetBool("seed") {
		if err := seed(ctx, srv, logger); err != nil {
			srv.Close(context.Background())
			return err
		}
	}

	if err := srv.Start(ctx); err != nil {
		srv.Close(context.Background())
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	logger.Info().Msg("Server shutdown complete")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	srv, logger, err := newOfflineServer()
	if err != nil {
		return err
	}
	defer srv.Close(context.Background())

	return seed(cmd.Context(), srv, logger)
}

func runAsk(cmd *cobra.Command, args []string) error {
	srv, _, err := newOfflineServer()
	if err != nil {
		return err
	}
	defer srv.Close(context.Background())

	outcome := srv.Resolver().Resolve(cmd.Context(), args[0])

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

// newOfflineServer builds the components without starting any listener.
func newOfflineServer() (*server.Server, zerolog.Logger, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Metrics.Enabled = false
	cfg.Health.Enabled = false

	logger := setupLogging(cfg.LogLevel)
	reportEnvFile(logger, envFileErr)
	srv, err := server.New(cfg, logger)
	if err != nil {
		return nil, logger, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, logger, nil
}

func seed(ctx context.Context, srv *server.Server, logger zerolog.Logger) error {
	seeded, err := srv.Seed(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	if seeded {
		logger.Info().Msg("Demo dataset created")
	} else {
		logger.Info().Msg("Demo dataset already present")
	}
	return nil
}

// loadConfig builds the configuration from flags, INQUIRE_* environment
// variables and the optional config file, whose keys mirror the flag names.
// Listener settings are read only when serving.
func loadConfig(serving bool) (*config.Config, error) {
	// Load config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.LogLevel = viper.GetString("log-level")
	cfg.Database.DSN = viper.GetString("database")
	cfg.Database.Schema = viper.GetString("schema")
	cfg.Database.MotherDuckToken = firstNonEmpty(viper.GetString("motherduck-token"), os.Getenv("MOTHERDUCK_TOKEN"))
	cfg.LLM.APIKey = firstNonEmpty(viper.GetString("llm-api-key"), os.Getenv("GEMINI_API_KEY"))
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.Timeout = viper.GetDuration("llm-timeout")
	cfg.Cache.Capacity = viper.GetInt("cache-capacity")
	cfg.Cache.TTL = viper.GetDuration("cache-ttl")

	if serving {
		cfg.Address = viper.GetString("address")
		cfg.Metrics.Enabled = viper.GetBool("metrics")
		cfg.Metrics.Address = viper.GetString("metrics-address")
		cfg.Health.Enabled = viper.GetBool("health")
		cfg.Health.Address = viper.GetString("health-address")
		cfg.Auth.Enabled = viper.GetBool("auth")
		cfg.Auth.Type = viper.GetString("auth-type")
		cfg.Auth.JWTAuth.Secret = viper.GetString("jwt-secret")
		cfg.Auth.JWTAuth.PublicKeyFile = viper.GetString("jwt-public-key")
		cfg.CORS.AllowedOrigins = viper.GetStringSlice("cors-origins")
		cfg.ShutdownTimeout = viper.GetDuration("shutdown-timeout")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// reportEnvFile logs the outcome of loading .env. A missing file is normal
// outside development.
func reportEnvFile(logger zerolog.Logger, err error) {
	switch {
	case err == nil:
		logger.Debug().Msg("Loaded .env file")
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug().Msg("No .env file found, using environment variables")
	default:
		logger.Debug().Err(err).Msg("Failed to load .env file")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func setupLogging(level string) zerolog.Logger {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
		// Enable caller info for debug level
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "inquire")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}
