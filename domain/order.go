package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is backend-defined; only pending and completed are produced
// by this module, any other value is carried through untouched.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// OrderItem holds the price at the moment the order was created, so later
// catalog price changes never alter a placed order.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []OrderItem     `json:"items"`
}

var (
	ErrNullOrder      = errors.New("order is null")
	ErrMissingOrderID = errors.New("order has no id")
)

// UnmarshalJSON defaults status to pending and items to an empty list. A null
// order or one without an id is rejected.
func (o *Order) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return ErrNullOrder
	}
	type plain Order
	var wire plain
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.ID == "" {
		return ErrMissingOrderID
	}
	if wire.Status == "" {
		wire.Status = OrderStatusPending
	}
	if wire.Items == nil {
		wire.Items = []OrderItem{}
	}
	*o = Order(wire)
	return nil
}

// CreateOrderRequest is the body submitted to the backend; ID and CreatedAt
// are assigned there.
type CreateOrderRequest struct {
	UserID string          `json:"user_id"`
	Status OrderStatus     `json:"status"`
	Total  decimal.Decimal `json:"total"`
	Items  []OrderItem     `json:"items"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}
