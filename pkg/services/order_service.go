package services

import (
	"context"
	"math"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/repositories"
)

var validOrderStatuses = map[string]bool{
	models.OrderStatusCompleted: true,
	models.OrderStatusPending:   true,
	models.OrderStatusCancelled: true,
}

// orderService implements OrderService.
type orderService struct {
	repo    repositories.OrderRepository
	logger  Logger
	metrics MetricsCollector
}

// NewOrderService creates a new order service.
func NewOrderService(repo repositories.OrderRepository, logger Logger, metrics MetricsCollector) OrderService {
	return &orderService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateOrder validates the order and stores it with its items atomically.
// An empty status becomes Completed and a zero total is computed from the
// items.
func (s *orderService) CreateOrder(ctx context.Context, order *models.NewOrder) (int64, error) {
	timer := s.metrics.StartTimer("order_creation")
	defer timer.Stop()

	if err := s.validate(order); err != nil {
		s.metrics.IncrementCounter("order_validation_errors")
		return 0, err
	}
	if order.Status == "" {
		order.Status = models.OrderStatusCompleted
	}
	if order.TotalAmount == 0 {
		order.TotalAmount = math.Round(order.ItemsTotal()*100) / 100
	}

	id, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		s.metrics.IncrementCounter("order_creation_errors")
		s.logger.Error("Failed to create order",
			"error", err,
			"customer_id", order.CustomerID,
			"items", len(order.Items))
		if errors.GetCode(err) == errors.CodeInternal {
			return 0, errors.Wrap(err, errors.CodeTransactionFailed, "failed to add order")
		}
		return 0, err
	}

	s.metrics.IncrementCounter("orders_created")
	s.logger.Info("Order created",
		"order_id", id,
		"customer_id", order.CustomerID,
		"total_amount", order.TotalAmount)
	return id, nil
}

func (s *orderService) validate(order *models.NewOrder) error {
	if order == nil {
		return errors.ErrInvalidOrder
	}
	if order.CustomerID <= 0 {
		return errors.New(errors.CodeInvalidRequest, "customer id is required")
	}
	if order.Status != "" && !validOrderStatuses[order.Status] {
		return errors.New(errors.CodeInvalidRequest, "unknown order status").
			WithDetail("status", order.Status)
	}
	if order.TotalAmount < 0 {
		return errors.New(errors.CodeInvalidRequest, "total amount cannot be negative")
	}
	if len(order.Items) == 0 {
		return errors.New(errors.CodeInvalidRequest, "order needs at least one item")
	}
	for i, item := range order.Items {
		if item.ProductID <= 0 {
			return errors.New(errors.CodeInvalidRequest, "product id is required").WithDetail("item", i)
		}
		if item.Quantity <= 0 {
			return errors.New(errors.CodeInvalidRequest, "quantity must be positive").WithDetail("item", i)
		}
		if item.UnitPrice < 0 {
			return errors.New(errors.CodeInvalidRequest, "unit price cannot be negative").WithDetail("item", i)
		}
	}
	return nil
}
