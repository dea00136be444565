package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
)

// Postgres error code for foreign key violations.
const fkViolation = "23503"

// storageErr wraps an unexpected database failure as EUNAVAILABLE.
// Expected conditions (no rows, FK violations) are mapped at call sites.
func storageErr(err error, op string) error {
	return domain.Unavailable(err, op, "storage unavailable")
}

// isFKViolation reports whether err is a foreign key violation.
func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == fkViolation
}

// parseDecimal converts a NUMERIC value selected as text.
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// lockItemStock locks an item row and returns its available stock.
// The lock is held until the transaction ends; this is the serialization
// point for all stock mutations on the item.
func lockItemStock(ctx context.Context, tx pgx.Tx, itemID int64) (int32, error) {
	var stock int32
	err := tx.QueryRow(ctx,
		`SELECT available_stock FROM items WHERE id = $1 FOR UPDATE`, itemID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrItemNotFound
		}
		return 0, storageErr(err, "stock.lock")
	}
	return stock, nil
}

// setItemStock writes a locked item's new available stock.
func setItemStock(ctx context.Context, tx pgx.Tx, itemID int64, stock int32) error {
	_, err := tx.Exec(ctx,
		`UPDATE items SET available_stock = $2, updated_at = now() WHERE id = $1`,
		itemID, stock)
	if err != nil {
		return storageErr(err, "stock.update")
	}
	return nil
}

// stockChange builds the event emitted after a committed stock mutation.
func stockChange(itemID int64, newStock int32) domain.StockChange {
	return domain.StockChange{
		ItemID:         itemID,
		AvailableStock: newStock,
		OccurredAt:     time.Now().UTC(),
	}
}
