package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Catalog domain errors.
var (
	ErrItemNotFound = &Error{Code: ENOTFOUND, Message: "Item not found"}
)

// Item is a catalog entry with its available (unreserved) stock.
// AvailableStock is only ever mutated through the StockLedger; the catalog
// owns everything else.
type Item struct {
	ID             int64
	Name           string
	Description    string
	PictureURL     string
	UnitPrice      decimal.Decimal
	AvailableStock int32
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItemUpdate carries a partial catalog update. Nil fields are left unchanged.
type ItemUpdate struct {
	Name        *string
	Description *string
	PictureURL  *string
	UnitPrice   *decimal.Decimal
}

// CatalogService manages catalog entries. It is the only component allowed
// to create or delete items, and the only one allowed to change physical
// stock (via AdjustStock).
type CatalogService interface {
	// CreateItem adds a new item with its initial physical stock.
	CreateItem(ctx context.Context, name, description, pictureURL string, unitPrice decimal.Decimal, initialStock int32) (*Item, error)

	// GetItem retrieves a single item by ID.
	GetItem(ctx context.Context, itemID int64) (*Item, error)

	// ListItems returns items ordered by ID with limit/offset paging.
	ListItems(ctx context.Context, limit, offset int32) ([]Item, error)

	// UpdateItem applies a partial update. Price changes do not affect
	// lines already in carts; checkout snapshots the price at its own time.
	UpdateItem(ctx context.Context, itemID int64, update ItemUpdate) (*Item, error)

	// DeleteItem removes an item from the catalog.
	DeleteItem(ctx context.Context, itemID int64) error

	// AdjustStock changes an item's physical stock by delta (restock or
	// correction) and returns the new available stock. The resulting
	// available stock must not go negative.
	AdjustStock(ctx context.Context, itemID int64, delta int32) (int32, error)
}
