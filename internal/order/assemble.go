// Package order implements order placement: product resolution, stock
// validation, order assembly and cached order reads.
package order

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/order-management-api/internal/model"
)

// ProductLoader loads products in one batch. *store.Tx implements it.
type ProductLoader interface {
	ProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)
}

// ResolveProducts loads every product the items reference with a single
// lookup. When any are missing it fails with ProductNotFound for the
// lowest missing id.
func ResolveProducts(ctx context.Context, l ProductLoader, items []model.OrderItemInput) (map[int64]model.Product, error) {
	ids := model.OrderInput{Products: items}.ProductIDs()
	products, err := l.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, model.ProductNotFound(slices.Min(missing))
	}
	return products, nil
}

// ValidateStock fails with InsufficientStock when p cannot cover qty.
func ValidateStock(p model.Product, qty int) error {
	if p.Stock < qty {
		return model.InsufficientStock(p.ID, p.Stock, qty)
	}
	return nil
}

// assemble walks items in input order, checking each against the stock
// left over by the previous ones, and returns the line items and total.
// Repeated product ids collapse into the line of their first occurrence.
// products is not modified.
func assemble(orderID int64, items []model.OrderItemInput, products map[int64]model.Product) ([]model.LineItem, decimal.Decimal, error) {
	remaining := make(map[int64]int, len(products))
	for id, p := range products {
		remaining[id] = p.Stock
	}
	total := decimal.Zero
	lines := make([]model.LineItem, 0, len(items))
	pos := make(map[int64]int, len(items))

	for _, it := range items {
		p := products[it.ProductID]
		p.Stock = remaining[it.ProductID]
		if err := ValidateStock(p, it.Quantity); err != nil {
			return nil, decimal.Zero, err
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		remaining[it.ProductID] = p.Stock - it.Quantity

		if i, ok := pos[it.ProductID]; ok {
			lines[i].Quantity += it.Quantity
			continue
		}
		pos[it.ProductID] = len(lines)
		lines = append(lines, model.LineItem{OrderID: orderID, ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, total, nil
}
