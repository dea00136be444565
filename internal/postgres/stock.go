package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhowell/njord/internal/domain"
)

// Ledger implements domain.StockLedger on PostgreSQL. Each operation is one
// transaction holding the item's row lock across check and write; the
// stock-change event is published only after commit. CartService runs the
// same locked steps inside its own transactions via reserveLocked and
// releaseLocked, and routes its post-commit events through publish.
type Ledger struct {
	pool *pgxpool.Pool
	sink domain.NotificationSink
}

// NewLedger creates a ledger that emits stock-change events to sink.
func NewLedger(pool *pgxpool.Pool, sink domain.NotificationSink) *Ledger {
	return &Ledger{pool: pool, sink: sink}
}

// TryReserve implements domain.StockLedger.
func (l *Ledger) TryReserve(ctx context.Context, itemID int64, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, storageErr(err, "stock.reserve")
	}
	defer tx.Rollback(ctx)

	newStock, err := l.reserveLocked(ctx, tx, itemID, qty)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr(err, "stock.reserve")
	}

	l.publish(ctx, stockChange(itemID, newStock))
	return newStock, nil
}

// Release implements domain.StockLedger.
func (l *Ledger) Release(ctx context.Context, itemID int64, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, storageErr(err, "stock.release")
	}
	defer tx.Rollback(ctx)

	newStock, err := l.releaseLocked(ctx, tx, itemID, qty)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr(err, "stock.release")
	}

	l.publish(ctx, stockChange(itemID, newStock))
	return newStock, nil
}

// publish emits a stock-change event for a committed mutation.
func (l *Ledger) publish(ctx context.Context, change domain.StockChange) {
	l.sink.Publish(ctx, change)
}

// reserveLocked performs the check-then-decrement step inside the caller's
// transaction. The row lock taken here is held until the tx ends, so cart
// operations can combine a reservation with their line write atomically.
func (l *Ledger) reserveLocked(ctx context.Context, tx pgx.Tx, itemID int64, qty int32) (int32, error) {
	stock, err := lockItemStock(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}
	if qty > stock {
		return 0, &domain.InsufficientStockError{
			ItemID:    itemID,
			Requested: qty,
			Available: stock,
		}
	}

	newStock := stock - qty
	if err := setItemStock(ctx, tx, itemID, newStock); err != nil {
		return 0, err
	}
	return newStock, nil
}

// releaseLocked increments a locked item's stock inside the caller's
// transaction.
func (l *Ledger) releaseLocked(ctx context.Context, tx pgx.Tx, itemID int64, qty int32) (int32, error) {
	stock, err := lockItemStock(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}

	newStock := stock + qty
	if err := setItemStock(ctx, tx, itemID, newStock); err != nil {
		return 0, err
	}
	return newStock, nil
}

var _ domain.StockLedger = (*Ledger)(nil)
