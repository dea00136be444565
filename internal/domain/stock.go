package domain

import (
	"context"
	"fmt"
	"time"
)

// Stock domain errors.
var (
	ErrInvalidQuantity   = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrInsufficientStock = &Error{Code: ECONFLICT, Message: "Insufficient stock"}
)

// InsufficientStockError reports a reservation that would oversell an item.
// It matches ErrInsufficientStock under errors.Is while carrying the numbers
// callers need to render a useful message.
type InsufficientStockError struct {
	ItemID    int64
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// StockLedger serializes all reads and writes of an item's available stock.
// Reservations on the same item are linearizable: two concurrent TryReserve
// calls never both succeed when their combined quantity exceeds the margin.
type StockLedger interface {
	// TryReserve atomically checks and decrements an item's available stock.
	// Returns the new available stock on success. Fails with ErrItemNotFound,
	// ErrInvalidQuantity (qty <= 0) or an *InsufficientStockError.
	TryReserve(ctx context.Context, itemID int64, qty int32) (int32, error)

	// Release atomically returns previously reserved units to an item's
	// available stock and returns the new value. qty must be > 0.
	Release(ctx context.Context, itemID int64, qty int32) (int32, error)
}

// StockChange is the event emitted after every successful stock mutation.
type StockChange struct {
	ItemID         int64     `json:"item_id"`
	AvailableStock int32     `json:"available_stock"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NotificationSink receives best-effort stock-change events. Delivery is
// fire-and-forget: implementations must never block a stock mutation on the
// sink, and publish failures are swallowed by the caller.
type NotificationSink interface {
	Publish(ctx context.Context, change StockChange)
}
