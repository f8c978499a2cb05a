// Package repositories defines interfaces for data access operations.
package repositories

import (
	"context"

	"github.com/TFMV/inquire/pkg/models"
)

// QueryRepository runs ad-hoc statements against the store.
type QueryRepository interface {
	// Query runs a statement and returns its rows. A nil result with a nil
	// error means the store produced nothing.
	Query(ctx context.Context, query string, args ...interface{}) (*models.StoreResult, error)
}

// MetadataRepository reads catalog information.
type MetadataRepository interface {
	// ListTables returns the names of base tables in the configured schema.
	ListTables(ctx context.Context) ([]string, error)
	// GetColumns returns the columns of a table in ordinal order.
	GetColumns(ctx context.Context, table string) ([]models.ColumnInfo, error)
	// CountRows returns the number of rows in a table.
	CountRows(ctx context.Context, table string) (int64, error)
}

// OrderRepository writes orders.
type OrderRepository interface {
	// CreateOrder inserts an order and all of its items atomically and
	// returns the new order id.
	CreateOrder(ctx context.Context, order *models.NewOrder) (int64, error)
}

// Seeder prepares the demo dataset.
type Seeder interface {
	// Seed creates and populates the tables. It reports false when the data
	// was already present.
	Seed(ctx context.Context) (bool, error)
}
