package duckdb

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/infrastructure/pool"
	"github.com/TFMV/inquire/pkg/repositories"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/seed.sql
var seedSQL string

// seeder implements repositories.Seeder for DuckDB.
type seeder struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewSeeder creates a seeder for the demo sales dataset. The scripts use
// unqualified names, so the tables always land in DefaultSchema, the schema
// unqualified queries resolve to.
func NewSeeder(pool pool.ConnectionPool, logger zerolog.Logger) repositories.Seeder {
	return &seeder{
		pool:   pool,
		logger: logger,
	}
}

// Seed creates the tables and loads the demo rows unless customers already exists.
func (s *seeder) Seed(ctx context.Context) (bool, error) {
	db, err := s.pool.Get(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}

	var existing int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = 'customers'`, DefaultSchema).Scan(&existing); err != nil {
		return false, errors.Wrap(err, errors.CodeInternal, "failed to check for existing tables")
	}
	if existing > 0 {
		s.logger.Info().Msg("Database already seeded")
		return false, nil
	}

	logger := s.logger.With().Str("transaction_id", uuid.New().String()).Logger()
	err = withTx(ctx, db, logger, func(tx *sql.Tx) error {
		for _, stmt := range splitStatements(schemaSQL + "\n" + seedSQL) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, errors.CodeInternal, "seed statement failed: %s", pool.TruncateQuery(stmt))
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info().Msg("Database seeded successfully")
	return true, nil
}

// splitStatements splits a script on semicolons. The embedded scripts contain
// no semicolons inside literals.
func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
