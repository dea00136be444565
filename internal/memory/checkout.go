package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
)

// CheckoutService implements domain.CheckoutService over the in-memory store.
// Checkout never touches the ledger: the cart's reservations simply become
// the order's consumption.
type CheckoutService struct {
	store *Store
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(store *Store) *CheckoutService {
	return &CheckoutService{store: store}
}

// Checkout implements domain.CheckoutService.
func (s *CheckoutService) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	if userID == "" {
		return nil, domain.Invalid("checkout", "user ID is required")
	}

	rec, _ := s.store.getOrCreateCart(domain.UserKey(userID))

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	// Build the whole order before mutating anything so a missing item
	// leaves cart and stock exactly as they were.
	order := domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.Zero,
		CreatedAt:   time.Now().UTC(),
		Lines:       make([]domain.OrderLine, 0, len(rec.lines)),
	}

	for _, itemID := range rec.lineOrder {
		qty := rec.lines[itemID]
		itemRec := s.store.getItem(itemID)
		if itemRec == nil {
			return nil, domain.ErrItemNotFound
		}
		itemRec.mu.Lock()
		name := itemRec.item.Name
		price := itemRec.item.UnitPrice
		itemRec.mu.Unlock()

		order.Lines = append(order.Lines, domain.OrderLine{
			ItemID:              itemID,
			Name:                name,
			Quantity:            qty,
			UnitPriceAtPurchase: price,
		})
		order.TotalAmount = order.TotalAmount.Add(price.Mul(decimal.NewFromInt32(qty)))
	}

	s.store.mu.Lock()
	s.store.orders[order.ID] = &order
	s.store.ordersByUser[userID] = append(s.store.ordersByUser[userID], order.ID)
	s.store.mu.Unlock()

	// Clear the cart without releasing stock; the order owns the units now.
	rec.lines = make(map[int64]int32)
	rec.lineOrder = nil
	rec.cart.UpdatedAt = time.Now().UTC()

	return &order, nil
}

// ListOrders implements domain.CheckoutService.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	s.store.mu.RLock()
	ids := append([]uuid.UUID(nil), s.store.ordersByUser[userID]...)
	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		if order := s.store.orders[id]; order != nil {
			orders = append(orders, *order)
		}
	}
	s.store.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// GetOrder implements domain.CheckoutService.
func (s *CheckoutService) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	order := s.store.orders[orderID]
	if order == nil || order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	out := *order
	return &out, nil
}

var _ domain.CheckoutService = (*CheckoutService)(nil)
