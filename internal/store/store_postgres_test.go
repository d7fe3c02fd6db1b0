//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/order-management-api/internal/model"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "orders",
			"POSTGRES_PASSWORD": "orders",
			"POSTGRES_DB":       "orders",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://orders:orders@%s:%s/orders?sslmode=disable", host, port.Port())
}

func TestPostgresOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, startPostgres(t), Options{MaxOpenConns: 4})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))
	assert.Equal(t, "postgres", s.Dialect())

	stock := 5
	p, err := s.CreateProduct(ctx, model.ProductInput{Name: "C", Price: decimal.RequireFromString("2.50"), Stock: &stock})
	require.NoError(t, err)

	var orderID int64
	err = s.InTx(ctx, func(tx *Tx) error {
		found, err := tx.ProductsByIDs(ctx, []int64{p.ID})
		if err != nil {
			return err
		}
		require.Contains(t, found, p.ID)
		if orderID, err = tx.InsertOrder(ctx, model.OrderStatusPending, decimal.Zero); err != nil {
			return err
		}
		ok, err := tx.DeductStock(ctx, p.ID, 6)
		require.NoError(t, err)
		require.False(t, ok)
		ok, err = tx.DeductStock(ctx, p.ID, 4)
		require.NoError(t, err)
		require.True(t, ok)
		if err := tx.InsertLineItems(ctx, []model.LineItem{{OrderID: orderID, ProductID: p.ID, Quantity: 4}}); err != nil {
			return err
		}
		return tx.SetOrderTotal(ctx, orderID, decimal.RequireFromString("10.00"))
	})
	require.NoError(t, err)

	o, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(o.TotalPrice))
	require.Len(t, o.Items, 1)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}
