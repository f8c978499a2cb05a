package duckdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/infrastructure/pool"
	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/repositories"
)

// orderRepository implements repositories.OrderRepository for DuckDB.
type orderRepository struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewOrderRepository creates a new DuckDB order repository.
func NewOrderRepository(pool pool.ConnectionPool, logger zerolog.Logger) repositories.OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger,
	}
}

// CreateOrder inserts the order and its items in one transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.NewOrder) (int64, error) {
	txID := uuid.New().String()
	logger := r.logger.With().Str("transaction_id", txID).Logger()

	db, err := r.pool.Get(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}

	var orderID int64
	err = withTx(ctx, db, logger, func(tx *sql.Tx) error {
		orderDate := order.OrderDate
		if orderDate.IsZero() {
			orderDate = time.Now().UTC()
		}

		if err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (customer_id, order_date, status, total_amount) VALUES (?, ?, ?, ?) RETURNING id`,
			order.CustomerID, orderDate, order.Status, order.TotalAmount,
		).Scan(&orderID); err != nil {
			return errors.Wrap(err, errors.CodeTransactionFailed, "failed to insert order")
		}

		for i, item := range order.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, qty, unit_price) VALUES (?, ?, ?, ?)`,
				orderID, item.ProductID, item.Quantity, item.UnitPrice,
			); err != nil {
				return errors.Wrapf(err, errors.CodeTransactionFailed, "failed to insert order item %d", i).
					WithDetail("product_id", item.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info().
		Int64("order_id", orderID).
		Int("items", len(order.Items)).
		Msg("Order created")
	return orderID, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func withTx(ctx context.Context, db *sql.DB, logger zerolog.Logger, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeTransactionFailed, "failed to begin transaction")
	}
	logger.Debug().Msg("Transaction started")

	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return
		}
		logger.Warn().Err(err).Msg("Transaction rolled back")
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeTransactionFailed, "failed to commit transaction")
	}
	logger.Debug().Msg("Transaction committed")
	return nil
}
