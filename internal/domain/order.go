package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order domain errors.
var (
	ErrOrderNotFound = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrEmptyCart     = &Error{Code: EINVALID, Message: "Cart is empty"}
)

// OrderStatus is the lifecycle state of an order. Within this core orders
// are created pending and never mutated afterwards.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)

// Order is the immutable record produced by checkout. TotalAmount equals the
// sum of line quantity times unit price at purchase.
type Order struct {
	ID          uuid.UUID
	UserID      string
	Status      OrderStatus
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	Lines       []OrderLine
}

// OrderLine snapshots one cart line at checkout time. UnitPriceAtPurchase is
// independent of later catalog price changes.
type OrderLine struct {
	ItemID              int64
	Name                string
	Quantity            int32
	UnitPriceAtPurchase decimal.Decimal
}

// CheckoutService converts a cart's reservations into permanent orders.
type CheckoutService interface {
	// Checkout atomically turns the user's cart into an order: snapshot
	// current prices, create the order and its lines, clear the cart without
	// releasing stock. Any failure rolls the whole operation back. Session
	// (guest) carts cannot check out.
	Checkout(ctx context.Context, userID string) (*Order, error)

	// ListOrders returns the user's orders, newest first, with lines.
	ListOrders(ctx context.Context, userID string) ([]Order, error)

	// GetOrder retrieves one of the user's orders; ErrOrderNotFound when the
	// order does not exist or belongs to someone else.
	GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*Order, error)
}
