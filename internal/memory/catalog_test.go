package memory

import (
	"context"
	"testing"

	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CreateItem_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.CreateItem(ctx, "", "", "", decimal.NewFromInt(1), 1)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = f.catalog.CreateItem(ctx, "Widget", "", "", decimal.RequireFromString("-0.01"), 1)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = f.catalog.CreateItem(ctx, "Widget", "", "", decimal.NewFromInt(1), -1)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestCatalog_GetAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 5)

	got, err := f.catalog.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, int32(5), got.AvailableStock)

	// Partial update: only the named fields change.
	name := "Widget Pro"
	updated, err := f.catalog.UpdateItem(ctx, item.ID, domain.ItemUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", updated.Name)
	assert.True(t, updated.UnitPrice.Equal(item.UnitPrice))

	_, err = f.catalog.GetItem(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCatalog_ListItems_Paging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C", "D"} {
		f.seedItem(t, name, "1.00", 1)
	}

	items, err := f.catalog.ListItems(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Name)

	items, err = f.catalog.ListItems(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].Name)

	items, err = f.catalog.ListItems(ctx, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalog_DeleteItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 5)

	require.NoError(t, f.catalog.DeleteItem(ctx, item.ID))
	assert.ErrorIs(t, f.catalog.DeleteItem(ctx, item.ID), domain.ErrItemNotFound)
}

func TestCatalog_DeleteItem_InCartConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 5)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 1)
	require.NoError(t, err)

	err = f.catalog.DeleteItem(ctx, item.ID)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

	// Once the line is gone the item can be deleted.
	_, err = f.carts.RemoveItem(ctx, cart.ID, item.ID, 0, true)
	require.NoError(t, err)
	assert.NoError(t, f.catalog.DeleteItem(ctx, item.ID))
}

func TestCatalog_AdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 5)
	f.sink.Reset()

	newStock, err := f.catalog.AdjustStock(ctx, item.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(15), newStock)

	change, ok := f.sink.LastForItem(item.ID)
	require.True(t, ok)
	assert.Equal(t, int32(15), change.AvailableStock)

	// Corrections may go down but never below zero.
	newStock, err = f.catalog.AdjustStock(ctx, item.ID, -15)
	require.NoError(t, err)
	assert.Equal(t, int32(0), newStock)

	_, err = f.catalog.AdjustStock(ctx, item.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.catalog.AdjustStock(ctx, item.ID, 0)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
