package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fairyhunter13/order-management-api/internal/model"
)

const productColumns = `id, name, description, price, stock`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (model.Product, error) {
	var p model.Product
	err := r.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock)
	return p, err
}

// ListProducts returns every product ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct returns the product with the given id or a ProductNotFound
// error.
func (s *Store) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	return getProduct(ctx, s.db, s.dialect, id)
}

func getProduct(ctx context.Context, q querier, d dialect, id int64) (model.Product, error) {
	row := q.QueryRowContext(ctx, d.rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, model.ProductNotFound(id)
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// CreateProduct inserts a product and returns it with its new id.
func (s *Store) CreateProduct(ctx context.Context, in model.ProductInput) (model.Product, error) {
	p := model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO products (name, description, price, stock) VALUES (?, ?, ?, ?) RETURNING id`),
		p.Name, p.Description, p.Price, p.Stock,
	)
	if err := row.Scan(&p.ID); err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}
