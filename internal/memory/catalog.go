package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
)

// Catalog implements domain.CatalogService over the in-memory store.
type Catalog struct {
	store *Store
	sink  domain.NotificationSink
}

// NewCatalog creates a catalog. Stock adjustments emit events to sink.
func NewCatalog(store *Store, sink domain.NotificationSink) *Catalog {
	return &Catalog{store: store, sink: sink}
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

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	now := time.Now().UTC()
	item := domain.Item{
		ID:             c.store.nextItemID,
		Name:           name,
		Description:    description,
		PictureURL:     pictureURL,
		UnitPrice:      unitPrice,
		AvailableStock: initialStock,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	c.store.nextItemID++
	c.store.items[item.ID] = &itemRecord{item: item}

	return &item, nil
}

// GetItem implements domain.CatalogService.
func (c *Catalog) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	rec := c.store.getItem(itemID)
	if rec == nil {
		return nil, domain.ErrItemNotFound
	}

	rec.mu.Lock()
	item := rec.item
	rec.mu.Unlock()
	return &item, nil
}

// ListItems implements domain.CatalogService.
func (c *Catalog) ListItems(ctx context.Context, limit, offset int32) ([]domain.Item, error) {
	if limit <= 0 {
		limit = 100
	}

	c.store.mu.RLock()
	ids := make([]int64, 0, len(c.store.items))
	for id := range c.store.items {
		ids = append(ids, id)
	}
	c.store.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]domain.Item, 0, limit)
	for i := int(offset); i < len(ids) && len(items) < int(limit); i++ {
		rec := c.store.getItem(ids[i])
		if rec == nil {
			continue
		}
		rec.mu.Lock()
		items = append(items, rec.item)
		rec.mu.Unlock()
	}
	return items, nil
}

// UpdateItem implements domain.CatalogService.
func (c *Catalog) UpdateItem(ctx context.Context, itemID int64, update domain.ItemUpdate) (*domain.Item, error) {
	if update.UnitPrice != nil && update.UnitPrice.IsNegative() {
		return nil, domain.Invalid("catalog.update", "unit price must not be negative")
	}

	rec := c.store.getItem(itemID)
	if rec == nil {
		return nil, domain.ErrItemNotFound
	}

	rec.mu.Lock()
	if update.Name != nil {
		rec.item.Name = *update.Name
	}
	if update.Description != nil {
		rec.item.Description = *update.Description
	}
	if update.PictureURL != nil {
		rec.item.PictureURL = *update.PictureURL
	}
	if update.UnitPrice != nil {
		rec.item.UnitPrice = *update.UnitPrice
	}
	rec.item.UpdatedAt = time.Now().UTC()
	item := rec.item
	rec.mu.Unlock()

	return &item, nil
}

// DeleteItem implements domain.CatalogService. Items referenced by live cart
// lines or order lines cannot be deleted, matching the foreign keys in the
// postgres backend.
func (c *Catalog) DeleteItem(ctx context.Context, itemID int64) error {
	if c.store.getItem(itemID) == nil {
		return domain.ErrItemNotFound
	}
	if c.store.itemInAnyCart(itemID) || c.store.itemInAnyOrder(itemID) {
		return domain.Conflict("catalog.delete",
			fmt.Sprintf("item %d is referenced by carts or orders", itemID))
	}

	c.store.mu.Lock()
	delete(c.store.items, itemID)
	c.store.mu.Unlock()
	return nil
}

// AdjustStock implements domain.CatalogService. This is the external-catalog
// hook that changes physical stock; cart flow never calls it.
func (c *Catalog) AdjustStock(ctx context.Context, itemID int64, delta int32) (int32, error) {
	if delta == 0 {
		return 0, domain.Invalid("catalog.adjust_stock", "delta must not be zero")
	}

	rec := c.store.getItem(itemID)
	if rec == nil {
		return 0, domain.ErrItemNotFound
	}

	rec.mu.Lock()
	if rec.item.AvailableStock+delta < 0 {
		available := rec.item.AvailableStock
		rec.mu.Unlock()
		return 0, &domain.InsufficientStockError{
			ItemID:    itemID,
			Requested: -delta,
			Available: available,
		}
	}
	rec.item.AvailableStock += delta
	rec.item.UpdatedAt = time.Now().UTC()
	newStock := rec.item.AvailableStock
	rec.mu.Unlock()

	c.sink.Publish(ctx, domain.StockChange{
		ItemID:         itemID,
		AvailableStock: newStock,
		OccurredAt:     time.Now().UTC(),
	})
	return newStock, nil
}

var _ domain.CatalogService = (*Catalog)(nil)
