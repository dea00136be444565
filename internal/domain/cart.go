package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart domain errors.
var (
	ErrCartNotFound  = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrItemNotInCart = &Error{Code: ENOTFOUND, Message: "Item not in cart"}
	ErrInvalidOwner  = &Error{Code: EINVALID, Message: "Exactly one of user ID or session ID must be set"}
)

// OwnerKey identifies the owner of a cart: an authenticated user or an
// anonymous session, never both. The zero value is invalid.
type OwnerKey struct {
	UserID    string
	SessionID string
}

// UserKey builds an owner key for an authenticated user.
func UserKey(userID string) OwnerKey {
	return OwnerKey{UserID: userID}
}

// SessionKey builds an owner key for an anonymous session.
func SessionKey(sessionID string) OwnerKey {
	return OwnerKey{SessionID: sessionID}
}

// Validate enforces the exactly-one-set invariant.
func (k OwnerKey) Validate() error {
	if (k.UserID == "") == (k.SessionID == "") {
		return ErrInvalidOwner
	}
	return nil
}

// Cart is the mutable per-owner container of stock reservations.
// Exactly one of UserID/SessionID is non-empty.
type Cart struct {
	ID        uuid.UUID
	UserID    string
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a live reservation: Quantity units of ItemID already deducted
// from the item's available stock on behalf of this cart. Quantity is always
// greater than zero; a line that would reach zero is deleted instead.
type CartLine struct {
	ItemID   int64
	Quantity int32
}

// CartLineDetail is a cart line joined to its current item snapshot for
// display. LineSubtotal uses the item's current price, which may differ from
// the price when the line was added.
type CartLineDetail struct {
	ItemID       int64
	Name         string
	PictureURL   string
	UnitPrice    decimal.Decimal
	Quantity     int32
	LineSubtotal decimal.Decimal
}

// CartDetail aggregates a cart with resolved lines and totals.
type CartDetail struct {
	Cart      Cart
	Lines     []CartLineDetail
	Subtotal  decimal.Decimal
	ItemCount int32
}

// CartService maintains one cart per owner key and keeps its lines
// consistent with the stock ledger's reservations.
type CartService interface {
	// GetOrCreate returns the owner's cart, creating it on first use.
	// Idempotent: repeated calls with the same key return the same cart.
	// The bool reports whether this call created the cart.
	GetOrCreate(ctx context.Context, owner OwnerKey) (*Cart, bool, error)

	// GetCart retrieves a cart with lines resolved to their item snapshot.
	// Pure read; no stock mutation.
	GetCart(ctx context.Context, cartID uuid.UUID) (*CartDetail, error)

	// AddItem reserves qty units of an item and merges them into the cart.
	// On any ledger failure the cart is left untouched.
	AddItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty int32) (*CartDetail, error)

	// RemoveItem removes qty units of an item from the cart, releasing the
	// same amount of stock. removeAll (or qty >= line quantity) deletes the
	// whole line.
	RemoveItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty int32, removeAll bool) (*CartDetail, error)

	// SetQuantity moves a line to exactly newQty units, reserving or
	// releasing only the difference. newQty of 0 deletes the line.
	SetQuantity(ctx context.Context, cartID uuid.UUID, itemID int64, newQty int32) (*CartDetail, error)

	// RemoveAllLines releases every line's reservation and clears the cart.
	RemoveAllLines(ctx context.Context, cartID uuid.UUID) error
}
