package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
)

// Catalog implements domain.CatalogService on PostgreSQL.
type Catalog struct {
	pool *pgxpool.Pool
	sink domain.NotificationSink
}

// NewCatalog creates a postgres-backed catalog. Stock adjustments emit
// events to sink.
func NewCatalog(pool *pgxpool.Pool, sink domain.NotificationSink) *Catalog {
	return &Catalog{pool: pool, sink: sink}
}

// CreateItem implements domain.CatalogService.
func (c *Catalog) CreateItem(ctx context.Context, name, description, pictureURL string, unitPrice decimal.Decimal, initialStock int32) (*domain.Item, error) {
	if name == "" {
		return nil, domain.Invalid("catalog.create", "name is required")
	}
	if unitPrice.IsNegative() {
		return nil, domain.Invalid("catalog.create", "unit price must not be negative")
	}
	if initialStock < 0 {
		return nil, domain.Invalid("catalog.create", "initial stock must not be negative")
	}

	item := domain.Item{
		Name:           name,
		Description:    description,
		PictureURL:     pictureURL,
		UnitPrice:      unitPrice,
		AvailableStock: initialStock,
	}
	err := c.pool.QueryRow(ctx,
		`INSERT INTO items (name, description, picture_url, unit_price, available_stock)
		 VALUES ($1, $2, $3, $4::numeric, $5)
		 RETURNING id, created_at, updated_at`,
		name, description, pictureURL, unitPrice.StringFixed(2), initialStock).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, storageErr(err, "catalog.create")
	}
	return &item, nil
}

// GetItem implements domain.CatalogService.
func (c *Catalog) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	return scanItem(c.pool.QueryRow(ctx,
		`SELECT id, name, description, picture_url, unit_price::text, available_stock, created_at, updated_at
		 FROM items WHERE id = $1`, itemID))
}

// ListItems implements domain.CatalogService.
func (c *Catalog) ListItems(ctx context.Context, limit, offset int32) ([]domain.Item, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := c.pool.Query(ctx,
		`SELECT id, name, description, picture_url, unit_price::text, available_stock, created_at, updated_at
		 FROM items ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, storageErr(err, "catalog.list")
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "catalog.list")
	}
	return items, nil
}

// UpdateItem implements domain.CatalogService.
func (c *Catalog) UpdateItem(ctx context.Context, itemID int64, update domain.ItemUpdate) (*domain.Item, error) {
	if update.UnitPrice != nil && update.UnitPrice.IsNegative() {
		return nil, domain.Invalid("catalog.update", "unit price must not be negative")
	}

	sets := []string{"updated_at = now()"}
	args := []any{itemID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if update.Name != nil {
		sets = append(sets, "name = "+arg(*update.Name))
	}
	if update.Description != nil {
		sets = append(sets, "description = "+arg(*update.Description))
	}
	if update.PictureURL != nil {
		sets = append(sets, "picture_url = "+arg(*update.PictureURL))
	}
	if update.UnitPrice != nil {
		sets = append(sets, "unit_price = "+arg(update.UnitPrice.StringFixed(2))+"::numeric")
	}

	query := fmt.Sprintf(
		`UPDATE items SET %s WHERE id = $1
		 RETURNING id, name, description, picture_url, unit_price::text, available_stock, created_at, updated_at`,
		strings.Join(sets, ", "))

	item, err := scanItem(c.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem implements domain.CatalogService. The foreign keys from
// cart_items and order_items surface as a conflict.
func (c *Catalog) DeleteItem(ctx context.Context, itemID int64) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	if err != nil {
		if isFKViolation(err) {
			return domain.Conflict("catalog.delete",
				fmt.Sprintf("item %d is referenced by carts or orders", itemID))
		}
		return storageErr(err, "catalog.delete")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// AdjustStock implements domain.CatalogService. Runs under the same item row
// lock as the ledger so restocks serialize with reservations.
func (c *Catalog) AdjustStock(ctx context.Context, itemID int64, delta int32) (int32, error) {
	if delta == 0 {
		return 0, domain.Invalid("catalog.adjust_stock", "delta must not be zero")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, storageErr(err, "catalog.adjust_stock")
	}
	defer tx.Rollback(ctx)

	stock, err := lockItemStock(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}
	if stock+delta < 0 {
		return 0, &domain.InsufficientStockError{
			ItemID:    itemID,
			Requested: -delta,
			Available: stock,
		}
	}

	newStock := stock + delta
	if err := setItemStock(ctx, tx, itemID, newStock); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr(err, "catalog.adjust_stock")
	}

	c.sink.Publish(ctx, stockChange(itemID, newStock))
	return newStock, nil
}

// scanItem reads a full item row.
func scanItem(row pgx.Row) (*domain.Item, error) {
	var item domain.Item
	var priceStr string
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.PictureURL,
		&priceStr, &item.AvailableStock, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, storageErr(err, "catalog.get")
	}
	item.UnitPrice, err = parseDecimal(priceStr)
	if err != nil {
		return nil, storageErr(err, "catalog.get")
	}
	return &item, nil
}

var _ domain.CatalogService = (*Catalog)(nil)
