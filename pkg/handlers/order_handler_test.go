package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/models"
)

const orderBody = `{
	"customerId": 4,
	"orderDate": "2024-03-01",
	"status": "Pending",
	"items": [{"productId": 2, "quantity": 3, "unitPrice": 9.99}]
}`

func setupOrderRouter() (*chi.Mux, *MockOrderService) {
	service := &MockOrderService{}
	r := chi.NewRouter()
	r.Route("/api/admin", NewOrderHandler(service, nopLogger{}, nopMetrics{}).RegisterRoutes)
	return r, service
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	router, service := setupOrderRouter()

	service.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *models.NewOrder) bool {
		return o.CustomerID == 4 &&
			o.Status == models.OrderStatusPending &&
			o.OrderDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) &&
			len(o.Items) == 1 && o.Items[0].Quantity == 3
	})).Return(int64(42), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/orders", strings.NewReader(orderBody)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp CreateOrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, CreateOrderResponse{Success: true, OrderID: 42}, resp)
	service.AssertExpectations(t)
}

func TestOrderHandler_CreateOrderErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		expected   int
	}{
		{
			name:     "invalid json",
			body:     `{"customerId":`,
			expected: http.StatusBadRequest,
		},
		{
			name:     "invalid date",
			body:     `{"customerId": 4, "orderDate": "March 1st", "items": []}`,
			expected: http.StatusBadRequest,
		},
		{
			name:       "validation",
			body:       `{"customerId": 4, "items": []}`,
			serviceErr: errors.New(errors.CodeInvalidRequest, "order needs at least one item"),
			expected:   http.StatusBadRequest,
		},
		{
			name:       "transaction",
			body:       orderBody,
			serviceErr: errors.Wrap(stderrors.New("constraint violated"), errors.CodeTransactionFailed, "failed to add order"),
			expected:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, service := setupOrderRouter()
			if tt.serviceErr != nil {
				service.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(0), tt.serviceErr)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/orders", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expected, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			if tt.serviceErr == nil {
				service.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
			}
		})
	}
}
