package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rhowell/njord/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_TryReserve(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", "9.99", 10)

	newStock, err := f.ledger.TryReserve(context.Background(), item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(7), newStock)
	assert.Equal(t, int32(7), f.availableStock(t, item.ID))

	change, ok := f.sink.LastForItem(item.ID)
	require.True(t, ok)
	assert.Equal(t, int32(7), change.AvailableStock)
}

func TestLedger_TryReserve_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", "9.99", 2)
	f.sink.Reset()

	_, err := f.ledger.TryReserve(context.Background(), item.ID, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, item.ID, ise.ItemID)
	assert.Equal(t, int32(5), ise.Requested)
	assert.Equal(t, int32(2), ise.Available)

	// Rejected reservations leave stock untouched and emit nothing.
	assert.Equal(t, int32(2), f.availableStock(t, item.ID))
	assert.Empty(t, f.sink.Events())
}

func TestLedger_TryReserve_InvalidQuantity(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", "9.99", 5)

	for _, qty := range []int32{0, -1} {
		_, err := f.ledger.TryReserve(context.Background(), item.ID, qty)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}
	assert.Equal(t, int32(5), f.availableStock(t, item.ID))
}

func TestLedger_TryReserve_UnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.TryReserve(context.Background(), 404, 1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestLedger_Release(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", "9.99", 10)

	_, err := f.ledger.TryReserve(context.Background(), item.ID, 4)
	require.NoError(t, err)

	newStock, err := f.ledger.Release(context.Background(), item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(10), newStock)

	_, err = f.ledger.Release(context.Background(), item.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestLedger_ConcurrentReserve_ExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", "9.99", 5)

	// Two buyers race for 3 units each with only 5 available: exactly one
	// succeeds and stock ends at 2.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.TryReserve(context.Background(), item.ID, 3)
		}(i)
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
}

func TestLedger_ConcurrentReserve_NeverOversells(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", "9.99", 5)

	var wg sync.WaitGroup
	var successes int32
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.ledger.TryReserve(context.Background(), item.ID, 1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), successes)
	assert.Equal(t, int32(0), f.availableStock(t, item.ID))
}
