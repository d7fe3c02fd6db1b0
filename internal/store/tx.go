package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/order-management-api/internal/model"
)

// Tx exposes the writes of order creation inside one transaction.
type Tx struct {
	tx      *sql.Tx
	dialect dialect
}

// ProductsByIDs loads the given products in a single query. Ids with no
// matching row are simply absent from the result.
func (t *Tx) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	out := make(map[int64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := t.dialect.rebind(`SELECT ` + productColumns + ` FROM products WHERE id IN (` + placeholders(len(ids)) + `)`)
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return out, nil
}

// InsertOrder creates an order header and returns its id. The id is
// visible to the rest of the transaction before commit.
func (t *Tx) InsertOrder(ctx context.Context, status model.OrderStatus, total decimal.Decimal) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("insert order: unknown status %q", status)
	}
	var id int64
	err := t.tx.QueryRowContext(ctx,
		t.dialect.rebind(`INSERT INTO orders (total_price, status) VALUES (?, ?) RETURNING id`),
		total, string(status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

// DeductStock subtracts qty from the product's stock only if at least qty
// is available. It reports false when the guard rejected the update.
func (t *Tx) DeductStock(ctx context.Context, productID int64, qty int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		t.dialect.rebind(`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`),
		qty, productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("deduct stock for product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deduct stock for product %d: %w", productID, err)
	}
	return n == 1, nil
}

// ProductStock reads the current stock of a product.
func (t *Tx) ProductStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind(`SELECT stock FROM products WHERE id = ?`), productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ProductNotFound(productID)
	}
	if err != nil {
		return 0, fmt.Errorf("read stock for product %d: %w", productID, err)
	}
	return stock, nil
}

// InsertLineItems writes all items with one multi-row INSERT. Their slice
// position becomes the line number.
func (t *Tx) InsertLineItems(ctx context.Context, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO order_products (order_id, product_id, quantity, line_no) VALUES `)
	args := make([]any, 0, len(items)*4)
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, it.OrderID, it.ProductID, it.Quantity, i)
	}
	if _, err := t.tx.ExecContext(ctx, t.dialect.rebind(b.String()), args...); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// SetOrderTotal writes the final total onto an order header.
func (t *Tx) SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, t.dialect.rebind(`UPDATE orders SET total_price = ? WHERE id = ?`), total, orderID)
	if err != nil {
		return fmt.Errorf("set order %d total: %w", orderID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.OrderNotFound(orderID)
	}
	return nil
}
