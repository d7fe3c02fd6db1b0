// Package model defines domain types used by the service.
package model

import "github.com/shopspring/decimal"

func init() {
	// Prices and totals go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusCompleted
}

// Product is a catalog entry. Stock never goes below zero.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// ProductInput is the body of a create-product request.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock"`
}

// LineItem is one product/quantity pair of an order.
type LineItem struct {
	OrderID   int64 `json:"-"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Order is an order header together with its line items.
type Order struct {
	ID         int64           `json:"id"`
	Items      []LineItem      `json:"products"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     OrderStatus     `json:"status"`
}

// OrderItemInput is a requested product/quantity pair.
type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderInput is the body of a create-order request.
type OrderInput struct {
	Products []OrderItemInput `json:"products"`
}

// ProductIDs returns the distinct product ids in first-seen order.
func (in OrderInput) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(in.Products))
	ids := make([]int64, 0, len(in.Products))
	for _, it := range in.Products {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}
