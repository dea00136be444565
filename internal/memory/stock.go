package memory

import (
	"context"
	"time"

	"github.com/rhowell/njord/internal/domain"
)

// Ledger implements domain.StockLedger over the in-memory store.
// The per-item record lock makes check-then-decrement a single atomic step.
type Ledger struct {
	store *Store
	sink  domain.NotificationSink
}

// NewLedger creates a ledger that emits stock-change events to sink.
func NewLedger(store *Store, sink domain.NotificationSink) *Ledger {
	return &Ledger{store: store, sink: sink}
}

// TryReserve implements domain.StockLedger.
func (l *Ledger) TryReserve(ctx context.Context, itemID int64, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}

	rec := l.store.getItem(itemID)
	if rec == nil {
		return 0, domain.ErrItemNotFound
	}

	rec.mu.Lock()
	if qty > rec.item.AvailableStock {
		available := rec.item.AvailableStock
		rec.mu.Unlock()
		return 0, &domain.InsufficientStockError{
			ItemID:    itemID,
			Requested: qty,
			Available: available,
		}
	}
	rec.item.AvailableStock -= qty
	rec.item.UpdatedAt = time.Now().UTC()
	newStock := rec.item.AvailableStock
	rec.mu.Unlock()

	l.emit(ctx, itemID, newStock)
	return newStock, nil
}

// Release implements domain.StockLedger.
func (l *Ledger) Release(ctx context.Context, itemID int64, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}

	rec := l.store.getItem(itemID)
	if rec == nil {
		return 0, domain.ErrItemNotFound
	}

	rec.mu.Lock()
	rec.item.AvailableStock += qty
	rec.item.UpdatedAt = time.Now().UTC()
	newStock := rec.item.AvailableStock
	rec.mu.Unlock()

	l.emit(ctx, itemID, newStock)
	return newStock, nil
}

// emit publishes a stock-change event outside the item lock.
func (l *Ledger) emit(ctx context.Context, itemID int64, newStock int32) {
	l.sink.Publish(ctx, domain.StockChange{
		ItemID:         itemID,
		AvailableStock: newStock,
		OccurredAt:     time.Now().UTC(),
	})
}

var _ domain.StockLedger = (*Ledger)(nil)
