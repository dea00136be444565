package memory

import (
	"context"
	"testing"

	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedItem(t, "Widget", "10.00", 10)
	gadget := f.seedItem(t, "Gadget", "5.00", 8)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, widget.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.ID, gadget.ID, 1)
	require.NoError(t, err)

	order, err := f.checkout.Checkout(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", order.UserID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("25.00")),
		"total = %s", order.TotalAmount)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Widget", order.Lines[0].Name)
	assert.Equal(t, int32(2), order.Lines[0].Quantity)
	assert.True(t, order.Lines[0].UnitPriceAtPurchase.Equal(decimal.RequireFromString("10.00")))

	// Checkout consumes the reservations: the cart empties but available
	// stock does not change.
	detail, err := f.carts.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Lines)
	assert.Equal(t, int32(8), f.availableStock(t, widget.ID))
	assert.Equal(t, int32(7), f.availableStock(t, gadget.ID))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.checkout.Checkout(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	// Same after the cart has been emptied by a previous checkout.
	item := f.seedItem(t, "Widget", "10.00", 5)
	cart := f.userCart(t, "alice")
	_, err = f.carts.AddItem(ctx, cart.ID, item.ID, 1)
	require.NoError(t, err)
	_, err = f.checkout.Checkout(ctx, "alice")
	require.NoError(t, err)

	_, err = f.checkout.Checkout(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckout_RequiresUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Checkout(context.Background(), "")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestCheckout_SnapshotsPriceAtCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 1)
	require.NoError(t, err)

	// Price rises while the item sits in the cart; checkout charges the
	// price current at checkout time.
	raised := decimal.RequireFromString("12.50")
	_, err = f.catalog.UpdateItem(ctx, item.ID, domain.ItemUpdate{UnitPrice: &raised})
	require.NoError(t, err)

	order, err := f.checkout.Checkout(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(raised))

	// Later price changes do not rewrite the stored order.
	lowered := decimal.RequireFromString("1.00")
	_, err = f.catalog.UpdateItem(ctx, item.ID, domain.ItemUpdate{UnitPrice: &lowered})
	require.NoError(t, err)

	stored, err := f.checkout.GetOrder(ctx, "alice", order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(raised))
	assert.True(t, stored.Lines[0].UnitPriceAtPurchase.Equal(raised))
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	for i := 0; i < 3; i++ {
		_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 1)
		require.NoError(t, err)
		_, err = f.checkout.Checkout(ctx, "alice")
		require.NoError(t, err)
	}

	orders, err := f.checkout.ListOrders(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, orders, 3)

	// Newest first.
	for i := 0; i < len(orders)-1; i++ {
		assert.False(t, orders[i].CreatedAt.Before(orders[i+1].CreatedAt))
	}

	// Other users see nothing.
	orders, err = f.checkout.ListOrders(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGetOrder_ScopedToUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 1)
	require.NoError(t, err)
	order, err := f.checkout.Checkout(ctx, "alice")
	require.NoError(t, err)

	got, err := f.checkout.GetOrder(ctx, "alice", order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.checkout.GetOrder(ctx, "bob", order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.checkout.GetOrder(ctx, "alice", newUUID(t))
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
