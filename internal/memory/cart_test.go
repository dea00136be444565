package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_GetOrCreate_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cart1, created1, err := f.carts.GetOrCreate(ctx, domain.UserKey("alice"))
	require.NoError(t, err)
	assert.True(t, created1)

	cart2, created2, err := f.carts.GetOrCreate(ctx, domain.UserKey("alice"))
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, cart1.ID, cart2.ID)

	// A session key with the same string is a different owner.
	cart3, created3, err := f.carts.GetOrCreate(ctx, domain.SessionKey("alice"))
	require.NoError(t, err)
	assert.True(t, created3)
	assert.NotEqual(t, cart1.ID, cart3.ID)
}

func TestCartService_GetOrCreate_InvalidOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.carts.GetOrCreate(ctx, domain.OwnerKey{})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)

	_, _, err = f.carts.GetOrCreate(ctx, domain.OwnerKey{UserID: "u", SessionID: "s"})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestCartService_AddItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	detail, err := f.carts.AddItem(ctx, cart.ID, item.ID, 2)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, int32(2), detail.Lines[0].Quantity)
	assert.Equal(t, int32(8), f.availableStock(t, item.ID))

	// Adding the same item again merges into the existing line.
	detail, err = f.carts.AddItem(ctx, cart.ID, item.ID, 3)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, int32(5), detail.Lines[0].Quantity)
	assert.Equal(t, int32(5), f.availableStock(t, item.ID))
}

func TestCartService_AddItem_InsufficientStock_LeavesCartUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 3)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 2)
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, cart.ID, item.ID, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	detail, err := f.carts.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, int32(2), detail.Lines[0].Quantity)
	assert.Equal(t, int32(1), f.availableStock(t, item.ID))
}

func TestCartService_AddItem_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 5)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.carts.AddItem(ctx, cart.ID, 404, 1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.carts.AddItem(ctx, newUUID(t), item.ID, 1)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestCartService_RemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 5)
	require.NoError(t, err)

	// Partial removal releases only the removed units.
	detail, err := f.carts.RemoveItem(ctx, cart.ID, item.ID, 2, false)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, int32(3), detail.Lines[0].Quantity)
	assert.Equal(t, int32(7), f.availableStock(t, item.ID))

	// Removing more than the line holds caps at the line quantity.
	detail, err = f.carts.RemoveItem(ctx, cart.ID, item.ID, 99, false)
	require.NoError(t, err)
	assert.Empty(t, detail.Lines)
	assert.Equal(t, int32(10), f.availableStock(t, item.ID))

	_, err = f.carts.RemoveItem(ctx, cart.ID, item.ID, 1, false)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)
}

func TestCartService_RemoveItem_RemoveAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 4)
	require.NoError(t, err)

	detail, err := f.carts.RemoveItem(ctx, cart.ID, item.ID, 0, true)
	require.NoError(t, err)
	assert.Empty(t, detail.Lines)
	assert.Equal(t, int32(10), f.availableStock(t, item.ID))
}

func TestCartService_SetQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 2)
	require.NoError(t, err)

	// Growing the line reserves only the difference.
	detail, err := f.carts.SetQuantity(ctx, cart.ID, item.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, int32(6), detail.Lines[0].Quantity)
	assert.Equal(t, int32(4), f.availableStock(t, item.ID))

	// Shrinking releases the difference.
	detail, err = f.carts.SetQuantity(ctx, cart.ID, item.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), detail.Lines[0].Quantity)
	assert.Equal(t, int32(9), f.availableStock(t, item.ID))

	// Growing past the margin fails and leaves the line alone.
	_, err = f.carts.SetQuantity(ctx, cart.ID, item.ID, 99)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	detail, err = f.carts.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), detail.Lines[0].Quantity)
}

func TestCartService_SetQuantityZero_RemovesLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 10)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, item.ID, 4)
	require.NoError(t, err)

	detail, err := f.carts.SetQuantity(ctx, cart.ID, item.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, detail.Lines)
	assert.Equal(t, int32(10), f.availableStock(t, item.ID))

	_, err = f.carts.SetQuantity(ctx, cart.ID, item.ID, 1)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)
}

func TestCartService_UnknownItem_ReadsAsNotInCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.userCart(t, "alice")

	// An item that exists nowhere surfaces the same way as one missing from
	// the cart; only AddItem distinguishes the unknown item.
	_, err := f.carts.RemoveItem(ctx, cart.ID, 404, 1, false)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)

	_, err = f.carts.RemoveItem(ctx, cart.ID, 404, 0, true)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)

	_, err = f.carts.SetQuantity(ctx, cart.ID, 404, 2)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)
}

func TestCartService_RemoveAllLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedItem(t, "Widget", "10.00", 10)
	gadget := f.seedItem(t, "Gadget", "5.00", 8)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, widget.ID, 3)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.ID, gadget.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.carts.RemoveAllLines(ctx, cart.ID))

	detail, err := f.carts.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Lines)
	assert.True(t, detail.Subtotal.IsZero())
	assert.Equal(t, int32(10), f.availableStock(t, widget.ID))
	assert.Equal(t, int32(8), f.availableStock(t, gadget.ID))
}

func TestCartService_Detail_Totals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedItem(t, "Widget", "10.00", 10)
	gadget := f.seedItem(t, "Gadget", "5.00", 8)
	cart := f.userCart(t, "alice")

	_, err := f.carts.AddItem(ctx, cart.ID, widget.ID, 2)
	require.NoError(t, err)
	detail, err := f.carts.AddItem(ctx, cart.ID, gadget.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, int32(3), detail.ItemCount)
	assert.True(t, detail.Subtotal.Equal(decimal.RequireFromString("25.00")),
		"subtotal = %s", detail.Subtotal)
	require.Len(t, detail.Lines, 2)
	assert.True(t, detail.Lines[0].LineSubtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, detail.Lines[1].LineSubtotal.Equal(decimal.RequireFromString("5.00")))
}

// Two shoppers race to add 3 units each with only 5 in stock: exactly one
// add succeeds, the loser's cart stays empty, and stock ends at 2.
func TestCartService_ConcurrentAdd_ExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "Widget", "10.00", 5)
	carts := []*domain.Cart{f.userCart(t, "alice"), f.userCart(t, "bob")}

	var wg sync.WaitGroup
	errs := make([]error, len(carts))
	for i, cart := range carts {
		wg.Add(1)
		go func(i int, cartID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.carts.AddItem(ctx, cartID, item.ID, 3)
		}(i, cart.ID)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, int32(2), f.availableStock(t, item.ID))

	var held int32
	for _, cart := range carts {
		detail, err := f.carts.GetCart(ctx, cart.ID)
		require.NoError(t, err)
		held += detail.ItemCount
	}
	assert.Equal(t, int32(3), held)
}

// Available stock plus units held in carts must stay constant under
// concurrent add and remove traffic.
func TestCartService_ConcurrentAddRemove_ConservesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const initialStock = 50
	item := f.seedItem(t, "Widget", "10.00", initialStock)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		userID := string(rune('a' + i))
		cart := f.userCart(t, userID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := f.carts.AddItem(ctx, cart.ID, item.ID, 2); err == nil {
					f.carts.RemoveItem(ctx, cart.ID, item.ID, 1, false)
				}
			}
		}()
	}
	wg.Wait()

	var held int32
	for i := 0; i < 8; i++ {
		cart := f.userCart(t, string(rune('a'+i)))
		detail, err := f.carts.GetCart(ctx, cart.ID)
		require.NoError(t, err)
		held += detail.ItemCount
	}

	available := f.availableStock(t, item.ID)
	assert.Equal(t, int32(initialStock), available+held)
	assert.GreaterOrEqual(t, available, int32(0))
}
