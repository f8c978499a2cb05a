package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Order statuses used by the demo dataset.
const (
	OrderStatusCompleted = "Completed"
	OrderStatusPending   = "Pending"
	OrderStatusCancelled = "Cancelled"
)

// NewOrderItem is one line of an order being created.
type NewOrderItem struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// NewOrder is an order with its line items, written atomically.
type NewOrder struct {
	CustomerID  int64          `json:"customerId"`
	OrderDate   time.Time      `json:"orderDate"`
	Status      string         `json:"status"`
	TotalAmount float64        `json:"totalAmount"`
	Items       []NewOrderItem `json:"items"`
}

// ItemsTotal sums quantity times unit price over all items.
func (o *NewOrder) ItemsTotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}

// orderDateLayouts are the accepted orderDate formats.
var orderDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// UnmarshalJSON accepts orderDate as a plain date or a timestamp.
func (o *NewOrder) UnmarshalJSON(data []byte) error {
	type plain NewOrder
	aux := struct {
		OrderDate string `json:"orderDate"`
		*plain
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.OrderDate == "" {
		o.OrderDate = time.Time{}
		return nil
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, aux.OrderDate); err == nil {
			o.OrderDate = t
			return nil
		}
	}
	return fmt.Errorf("invalid orderDate %q", aux.OrderDate)
}
