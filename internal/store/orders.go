package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fairyhunter13/order-management-api/internal/model"
)

// ListOrders returns every order with its line items, ordered by id.
// Line items for all orders are fetched in one query.
func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, total_price, status FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := []model.Order{}
	index := make(map[int64]int)
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.TotalPrice, &o.Status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Items = []model.LineItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := s.db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity FROM order_products ORDER BY order_id, line_no`)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer items.Close()
	for items.Next() {
		var li model.LineItem
		if err := items.Scan(&li.OrderID, &li.ProductID, &li.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[li.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, li)
		}
	}
	if err := items.Err(); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return orders, nil
}

// GetOrder returns the order with its line items, or an OrderNotFound
// error.
func (s *Store) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	return getOrder(ctx, s.db, s.dialect, id)
}

func getOrder(ctx context.Context, q querier, d dialect, id int64) (model.Order, error) {
	var o model.Order
	err := q.QueryRowContext(ctx, d.rebind(`SELECT id, total_price, status FROM orders WHERE id = ?`), id).
		Scan(&o.ID, &o.TotalPrice, &o.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, model.OrderNotFound(id)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}

	rows, err := q.QueryContext(ctx,
		d.rebind(`SELECT order_id, product_id, quantity FROM order_products WHERE order_id = ? ORDER BY line_no`), id)
	if err != nil {
		return model.Order{}, fmt.Errorf("get order %d items: %w", id, err)
	}
	defer rows.Close()
	o.Items = []model.LineItem{}
	for rows.Next() {
		var li model.LineItem
		if err := rows.Scan(&li.OrderID, &li.ProductID, &li.Quantity); err != nil {
			return model.Order{}, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, li)
	}
	if err := rows.Err(); err != nil {
		return model.Order{}, fmt.Errorf("get order %d items: %w", id, err)
	}
	return o, nil
}
