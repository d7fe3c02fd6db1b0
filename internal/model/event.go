package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderCreated = "order_created"

// OrderEvent is emitted after an order has been committed.
type OrderEvent struct {
	Type       string          `json:"type"`
	Sequence   uint64          `json:"sequence"`
	OrderID    int64           `json:"order_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []LineItem      `json:"products"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewOrderCreated builds the event for a freshly committed order.
func NewOrderCreated(o Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       EventOrderCreated,
		OrderID:    o.ID,
		TotalPrice: o.TotalPrice,
		Items:      o.Items,
		OccurredAt: at.UTC(),
	}
}
