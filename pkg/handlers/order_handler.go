package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/services"
)

// CreateOrderResponse is the body returned for a created order.
type CreateOrderResponse struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"orderId"`
}

// OrderHandler serves order administration.
type OrderHandler struct {
	service services.OrderService
	logger  Logger
	metrics MetricsCollector
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service services.OrderService, logger Logger, metrics MetricsCollector) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// RegisterRoutes registers order routes relative to the admin prefix.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
}

// CreateOrder stores an order with its items.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.NewOrder
	if err := decodeJSON(w, r, &order); err != nil {
		WriteError(w, err)
		return
	}

	id, err := h.service.CreateOrder(r.Context(), &order)
	if err != nil {
		h.logger.Error("Failed to add order", "error", err)
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusCreated, CreateOrderResponse{Success: true, OrderID: id})
}
