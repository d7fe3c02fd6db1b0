package model

import (
	"errors"
	"fmt"
)

// ErrorKind tags a DomainError. The HTTP layer maps kinds to statuses.
type ErrorKind string

const (
	KindProductNotFound   ErrorKind = "product_not_found"
	KindOrderNotFound     ErrorKind = "order_not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
)

// DomainError is an expected, user-facing failure carrying the ids and
// quantities that caused it.
type DomainError struct {
	Kind      ErrorKind
	ProductID int64
	OrderID   int64
	Available int
	Requested int
}

func (e *DomainError) Error() string {
	switch e.Kind {
	case KindProductNotFound:
		return fmt.Sprintf("Product with id %d not found", e.ProductID)
	case KindOrderNotFound:
		return fmt.Sprintf("Order with id %d not found", e.OrderID)
	case KindInsufficientStock:
		return fmt.Sprintf("Insufficient stock for product id %d: %d available, %d requested",
			e.ProductID, e.Available, e.Requested)
	}
	return string(e.Kind)
}

// Is matches any DomainError of the same kind, so errors.Is works against
// the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Kind == e.Kind
}

var (
	ErrProductNotFound   = &DomainError{Kind: KindProductNotFound}
	ErrOrderNotFound     = &DomainError{Kind: KindOrderNotFound}
	ErrInsufficientStock = &DomainError{Kind: KindInsufficientStock}
)

func ProductNotFound(id int64) error {
	return &DomainError{Kind: KindProductNotFound, ProductID: id}
}

func OrderNotFound(id int64) error {
	return &DomainError{Kind: KindOrderNotFound, OrderID: id}
}

func InsufficientStock(productID int64, available, requested int) error {
	return &DomainError{
		Kind:      KindInsufficientStock,
		ProductID: productID,
		Available: available,
		Requested: requested,
	}
}

// AsDomainError unwraps err to a DomainError if it carries one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
