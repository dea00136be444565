package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
)

// CartService implements domain.CartService over the in-memory store.
// All stock changes go through the injected ledger; the cart record lock
// serializes edits to the same cart. Lock order is always cart then item.
type CartService struct {
	store  *Store
	ledger domain.StockLedger
}

// NewCartService creates a cart service backed by the given ledger.
func NewCartService(store *Store, ledger domain.StockLedger) *CartService {
	return &CartService{store: store, ledger: ledger}
}

// GetOrCreate implements domain.CartService.
func (s *CartService) GetOrCreate(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, bool, error) {
	if err := owner.Validate(); err != nil {
		return nil, false, err
	}

	rec, created := s.store.getOrCreateCart(owner)
	rec.mu.Lock()
	cart := rec.cart
	rec.mu.Unlock()
	return &cart, created, nil
}

// GetCart implements domain.CartService.
func (s *CartService) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.CartDetail, error) {
	rec := s.store.getCart(cartID)
	if rec == nil {
		return nil, domain.ErrCartNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return s.detailLocked(rec)
}

// AddItem implements domain.CartService.
func (s *CartService) AddItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty int32) (*domain.CartDetail, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	rec := s.store.getCart(cartID)
	if rec == nil {
		return nil, domain.ErrCartNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	// Reserve before touching the line; a ledger failure leaves the cart as-is.
	if _, err := s.ledger.TryReserve(ctx, itemID, qty); err != nil {
		return nil, err
	}

	rec.setLine(itemID, rec.lines[itemID]+qty)
	rec.cart.UpdatedAt = time.Now().UTC()
	return s.detailLocked(rec)
}

// RemoveItem implements domain.CartService.
func (s *CartService) RemoveItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty int32, removeAll bool) (*domain.CartDetail, error) {
	if !removeAll && qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	rec := s.store.getCart(cartID)
	if rec == nil {
		return nil, domain.ErrCartNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	current, ok := rec.lines[itemID]
	if !ok {
		return nil, domain.ErrItemNotInCart
	}

	release := qty
	if removeAll || qty >= current {
		release = current
	}
	if _, err := s.ledger.Release(ctx, itemID, release); err != nil {
		return nil, err
	}

	if release == current {
		rec.deleteLine(itemID)
	} else {
		rec.setLine(itemID, current-release)
	}
	rec.cart.UpdatedAt = time.Now().UTC()
	return s.detailLocked(rec)
}

// SetQuantity implements domain.CartService. Only the difference between the
// current and requested quantity moves through the ledger, so the line never
// transiently frees stock to a concurrent competitor.
func (s *CartService) SetQuantity(ctx context.Context, cartID uuid.UUID, itemID int64, newQty int32) (*domain.CartDetail, error) {
	if newQty < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	rec := s.store.getCart(cartID)
	if rec == nil {
		return nil, domain.ErrCartNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	current, ok := rec.lines[itemID]
	if !ok {
		return nil, domain.ErrItemNotInCart
	}

	diff := newQty - current
	switch {
	case diff > 0:
		if _, err := s.ledger.TryReserve(ctx, itemID, diff); err != nil {
			return nil, err
		}
	case diff < 0:
		if _, err := s.ledger.Release(ctx, itemID, -diff); err != nil {
			return nil, err
		}
	}

	if newQty == 0 {
		rec.deleteLine(itemID)
	} else {
		rec.setLine(itemID, newQty)
	}
	rec.cart.UpdatedAt = time.Now().UTC()
	return s.detailLocked(rec)
}

// RemoveAllLines implements domain.CartService.
func (s *CartService) RemoveAllLines(ctx context.Context, cartID uuid.UUID) error {
	rec := s.store.getCart(cartID)
	if rec == nil {
		return domain.ErrCartNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	for _, itemID := range append([]int64(nil), rec.lineOrder...) {
		if _, err := s.ledger.Release(ctx, itemID, rec.lines[itemID]); err != nil {
			return err
		}
		rec.deleteLine(itemID)
	}
	rec.cart.UpdatedAt = time.Now().UTC()
	return nil
}

// detailLocked resolves the cart's lines against the current catalog
// snapshot. Callers must hold the cart lock.
func (s *CartService) detailLocked(rec *cartRecord) (*domain.CartDetail, error) {
	detail := &domain.CartDetail{
		Cart:     rec.cart,
		Lines:    make([]domain.CartLineDetail, 0, len(rec.lines)),
		Subtotal: decimal.Zero,
	}

	for _, itemID := range rec.lineOrder {
		qty := rec.lines[itemID]
		itemRec := s.store.getItem(itemID)
		if itemRec == nil {
			return nil, domain.ErrItemNotFound
		}
		itemRec.mu.Lock()
		name := itemRec.item.Name
		pictureURL := itemRec.item.PictureURL
		price := itemRec.item.UnitPrice
		itemRec.mu.Unlock()

		lineSubtotal := price.Mul(decimal.NewFromInt32(qty))
		detail.Lines = append(detail.Lines, domain.CartLineDetail{
			ItemID:       itemID,
			Name:         name,
			PictureURL:   pictureURL,
			UnitPrice:    price,
			Quantity:     qty,
			LineSubtotal: lineSubtotal,
		})
		detail.Subtotal = detail.Subtotal.Add(lineSubtotal)
		detail.ItemCount += qty
	}

	return detail, nil
}

var _ domain.CartService = (*CartService)(nil)
