// Package memory implements the domain services against process-local state.
// It backs tests and the BACKEND=memory development mode with the exact
// semantics of the postgres backend: per-item stock mutations are serialized,
// per-cart line edits are serialized, and checkout is all-or-nothing.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rhowell/njord/internal/domain"
)

// itemRecord pairs a catalog item with the lock that serializes its stock.
// The record lock, not Store.mu, is the linearization point for reservations.
type itemRecord struct {
	mu   sync.Mutex
	item domain.Item
}

// cartRecord pairs a cart with its lines. lineOrder preserves insertion
// order so checkout produces deterministic order lines.
type cartRecord struct {
	mu        sync.Mutex
	cart      domain.Cart
	lines     map[int64]int32
	lineOrder []int64
}

func (c *cartRecord) setLine(itemID int64, qty int32) {
	if _, ok := c.lines[itemID]; !ok {
		c.lineOrder = append(c.lineOrder, itemID)
	}
	c.lines[itemID] = qty
}

func (c *cartRecord) deleteLine(itemID int64) {
	delete(c.lines, itemID)
	for i, id := range c.lineOrder {
		if id == itemID {
			c.lineOrder = append(c.lineOrder[:i], c.lineOrder[i+1:]...)
			break
		}
	}
}

// Store owns all in-memory state. Store.mu guards the maps themselves;
// the per-record locks guard record contents.
type Store struct {
	mu         sync.RWMutex
	items      map[int64]*itemRecord
	nextItemID int64

	carts          map[uuid.UUID]*cartRecord
	cartsByUser    map[string]uuid.UUID
	cartsBySession map[string]uuid.UUID

	orders       map[uuid.UUID]*domain.Order
	ordersByUser map[string][]uuid.UUID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items:          make(map[int64]*itemRecord),
		nextItemID:     1,
		carts:          make(map[uuid.UUID]*cartRecord),
		cartsByUser:    make(map[string]uuid.UUID),
		cartsBySession: make(map[string]uuid.UUID),
		orders:         make(map[uuid.UUID]*domain.Order),
		ordersByUser:   make(map[string][]uuid.UUID),
	}
}

// getItem returns the record for an item, or nil.
func (s *Store) getItem(itemID int64) *itemRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[itemID]
}

// getCart returns the record for a cart, or nil.
func (s *Store) getCart(cartID uuid.UUID) *cartRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carts[cartID]
}

// getOrCreateCart returns the owner's cart record, creating it on first use.
// The second return reports whether a new cart was created.
func (s *Store) getOrCreateCart(owner domain.OwnerKey) (*cartRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing uuid.UUID
	var found bool
	if owner.UserID != "" {
		existing, found = s.cartsByUser[owner.UserID]
	} else {
		existing, found = s.cartsBySession[owner.SessionID]
	}
	if found {
		return s.carts[existing], false
	}

	now := time.Now().UTC()
	rec := &cartRecord{
		cart: domain.Cart{
			ID:        uuid.New(),
			UserID:    owner.UserID,
			SessionID: owner.SessionID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		lines: make(map[int64]int32),
	}
	s.carts[rec.cart.ID] = rec
	if owner.UserID != "" {
		s.cartsByUser[owner.UserID] = rec.cart.ID
	} else {
		s.cartsBySession[owner.SessionID] = rec.cart.ID
	}
	return rec, true
}

// itemInAnyCart reports whether any live cart line references the item.
// Callers must not hold any cart lock.
func (s *Store) itemInAnyCart(itemID int64) bool {
	s.mu.RLock()
	recs := make([]*cartRecord, 0, len(s.carts))
	for _, rec := range s.carts {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	for _, rec := range recs {
		rec.mu.Lock()
		_, ok := rec.lines[itemID]
		rec.mu.Unlock()
		if ok {
			return true
		}
	}
	return false
}

// itemInAnyOrder reports whether any order line references the item.
func (s *Store) itemInAnyOrder(itemID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, order := range s.orders {
		for _, line := range order.Lines {
			if line.ItemID == itemID {
				return true
			}
		}
	}
	return false
}
