package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rhowell/njord/internal/domain"
	"github.com/rhowell/njord/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fixture wires every in-memory service against one store and a recording
// sink, the same shape the server assembles at startup.
type fixture struct {
	store    *Store
	sink     *notify.MockSink
	ledger   *Ledger
	catalog  *Catalog
	carts    *CartService
	checkout *CheckoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewStore()
	sink := notify.NewMockSink()
	ledger := NewLedger(store, sink)
	return &fixture{
		store:    store,
		sink:     sink,
		ledger:   ledger,
		catalog:  NewCatalog(store, sink),
		carts:    NewCartService(store, ledger),
		checkout: NewCheckoutService(store),
	}
}

// seedItem creates a catalog item and returns it.
func (f *fixture) seedItem(t *testing.T, name, price string, stock int32) *domain.Item {
	t.Helper()
	item, err := f.catalog.CreateItem(context.Background(), name, "", "",
		decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	return item
}

// userCart returns the cart for a user, creating it on first use.
func (f *fixture) userCart(t *testing.T, userID string) *domain.Cart {
	t.Helper()
	cart, _, err := f.carts.GetOrCreate(context.Background(), domain.UserKey(userID))
	require.NoError(t, err)
	return cart
}

// newUUID returns a random cart ID that is not in the store.
func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

// availableStock reads an item's current available stock.
func (f *fixture) availableStock(t *testing.T, itemID int64) int32 {
	t.Helper()
	item, err := f.catalog.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	return item.AvailableStock
}
