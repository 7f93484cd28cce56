//go:build integration

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/testsupport"
)

func TestProductRepository_Postgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := NewProductRepository(testsupport.Postgres(ctx, t))
	now := time.Now().UTC()
	owner := int64(100)

	p := &domain.Product{Name: "Dew Berry", Description: "fresh", Price: decimal.RequireFromString("10.50"), OwnerID: &owner, CreatedAt: now, UpdatedAt: now}
	p.SetStock(2)
	require.NoError(t, repo.Create(ctx, p))
	require.NotZero(t, p.ID)

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.50", got.Price.StringFixed(2))
	assert.Equal(t, domain.ProductStatusAvailable, got.Status)

	missing, err := repo.FindByID(ctx, p.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.DecrementStock(ctx, p.ID, 3, now)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	require.NoError(t, repo.DecrementStock(ctx, p.ID, 2, now))
	got, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, domain.ProductStatusOutOfStock, got.Status)

	require.NoError(t, repo.IncrementStock(ctx, p.ID, 1, now))
	got, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusAvailable, got.Status)

	stale := *got
	stale.Stock = 40
	stale.Price = decimal.RequireFromString("11.00")
	require.NoError(t, repo.Update(ctx, &stale, nil))
	assert.Equal(t, 1, stale.Stock, "stock is read back, not written")
	got, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
	assert.Equal(t, "11.00", got.Price.StringFixed(2))

	require.NoError(t, repo.SetStock(ctx, p.ID, 0, now))
	got, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusOutOfStock, got.Status)

	err = repo.IncrementStock(ctx, p.ID, domain.MaxQuantity, now)
	require.NoError(t, err)
	err = repo.IncrementStock(ctx, p.ID, 1, now)
	assert.ErrorIs(t, err, domain.ErrStockOutOfRange)
	require.NoError(t, repo.SetStock(ctx, p.ID, 1, now))

	deleted, err := repo.SoftDelete(ctx, p.ID, now)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.SoftDelete(ctx, p.ID, now)
	require.NoError(t, err)
	assert.False(t, deleted)

	active, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)
	trash, err := repo.List(ctx, ListFilter{OwnerID: &owner, Deleted: true})
	require.NoError(t, err)
	assert.Len(t, trash, 1)

	locked, err := repo.LockActive(ctx, []int64{p.ID})
	require.NoError(t, err)
	assert.Empty(t, locked, "deleted products cannot be ordered")

	restored, err := repo.Restore(ctx, p.ID, now)
	require.NoError(t, err)
	assert.True(t, restored)
	got, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
}
