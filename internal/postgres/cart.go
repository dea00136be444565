package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhowell/njord/internal/domain"
	"github.com/shopspring/decimal"
)

// CartService implements domain.CartService on PostgreSQL. Every operation
// that moves stock runs the ledger's locked reserve/release step and the
// cart-line write in the same transaction, so a failure at either point
// rolls back both. Item rows are always locked before cart line rows.
type CartService struct {
	pool   *pgxpool.Pool
	ledger *Ledger
}

// NewCartService creates a cart service backed by the given ledger.
func NewCartService(pool *pgxpool.Pool, ledger *Ledger) *CartService {
	return &CartService{pool: pool, ledger: ledger}
}

// GetOrCreate implements domain.CartService.
func (s *CartService) GetOrCreate(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, bool, error) {
	if err := owner.Validate(); err != nil {
		return nil, false, err
	}

	cart, err := s.findByOwner(ctx, owner)
	if err == nil {
		return cart, false, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return nil, false, err
	}

	// Insert, tolerating a concurrent winner for the same owner key.
	id := uuid.New()
	var userID, sessionID *string
	if owner.UserID != "" {
		userID = &owner.UserID
	} else {
		sessionID = &owner.SessionID
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO carts (id, user_id, session_id) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		id, userID, sessionID)
	if err != nil {
		return nil, false, storageErr(err, "cart.get_or_create")
	}

	cart, err = s.findByOwner(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	return cart, tag.RowsAffected() == 1, nil
}

// findByOwner loads the owner's cart.
func (s *CartService) findByOwner(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, error) {
	query := `SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE user_id = $1`
	key := owner.UserID
	if owner.UserID == "" {
		query = `SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE session_id = $1`
		key = owner.SessionID
	}

	var cart domain.Cart
	var userID, sessionID *string
	err := s.pool.QueryRow(ctx, query, key).
		Scan(&cart.ID, &userID, &sessionID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, storageErr(err, "cart.find")
	}
	if userID != nil {
		cart.UserID = *userID
	}
	if sessionID != nil {
		cart.SessionID = *sessionID
	}
	return &cart, nil
}

// GetCart implements domain.CartService.
func (s *CartService) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.CartDetail, error) {
	return loadCartDetail(ctx, s.pool, cartID)
}

// AddItem implements domain.CartService.
func (s *CartService) AddItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty int32) (*domain.CartDetail, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr(err, "cart.add_item")
	}
	defer tx.Rollback(ctx)

	if err := cartExists(ctx, tx, cartID); err != nil {
		return nil, err
	}

	newStock, err := s.ledger.reserveLocked(ctx, tx, itemID, qty)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO cart_items (cart_id, item_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, item_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		cartID, itemID, qty)
	if err != nil {
		return nil, storageErr(err, "cart.add_item")
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr(err, "cart.add_item")
	}

	s.ledger.publish(ctx, stockChange(itemID, newStock))
	return s.GetCart(ctx, cartID)
}

// RemoveItem implements domain.CartService.
func (s *CartService) RemoveItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty int32, removeAll bool) (*domain.CartDetail, error) {
	if !removeAll && qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr(err, "cart.remove_item")
	}
	defer tx.Rollback(ctx)

	if err := cartExists(ctx, tx, cartID); err != nil {
		return nil, err
	}

	// Item row first, line row second: same order as every other writer.
	// A missing item row reads as a missing line; live lines hold a foreign
	// key, so their item cannot disappear.
	if _, err := lockItemStock(ctx, tx, itemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil, domain.ErrItemNotInCart
		}
		return nil, err
	}

	current, err := lockCartLine(ctx, tx, cartID, itemID)
	if err != nil {
		return nil, err
	}

	release := qty
	if removeAll || qty >= current {
		release = current
	}

	newStock, err := s.ledger.releaseLocked(ctx, tx, itemID, release)
	if err != nil {
		return nil, err
	}

	if release == current {
		_, err = tx.Exec(ctx,
			`DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE cart_items SET quantity = quantity - $3, updated_at = now()
			 WHERE cart_id = $1 AND item_id = $2`, cartID, itemID, release)
	}
	if err != nil {
		return nil, storageErr(err, "cart.remove_item")
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr(err, "cart.remove_item")
	}

	s.ledger.publish(ctx, stockChange(itemID, newStock))
	return s.GetCart(ctx, cartID)
}

// SetQuantity implements domain.CartService. Only the diff moves through the
// ledger step, inside the same transaction that rewrites the line.
func (s *CartService) SetQuantity(ctx context.Context, cartID uuid.UUID, itemID int64, newQty int32) (*domain.CartDetail, error) {
	if newQty < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr(err, "cart.set_quantity")
	}
	defer tx.Rollback(ctx)

	if err := cartExists(ctx, tx, cartID); err != nil {
		return nil, err
	}

	if _, err := lockItemStock(ctx, tx, itemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil, domain.ErrItemNotInCart
		}
		return nil, err
	}

	current, err := lockCartLine(ctx, tx, cartID, itemID)
	if err != nil {
		return nil, err
	}

	var newStock int32
	var changed bool
	diff := newQty - current
	switch {
	case diff > 0:
		newStock, err = s.ledger.reserveLocked(ctx, tx, itemID, diff)
		changed = true
	case diff < 0:
		newStock, err = s.ledger.releaseLocked(ctx, tx, itemID, -diff)
		changed = true
	}
	if err != nil {
		return nil, err
	}

	if newQty == 0 {
		_, err = tx.Exec(ctx,
			`DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE cart_items SET quantity = $3, updated_at = now()
			 WHERE cart_id = $1 AND item_id = $2`, cartID, itemID, newQty)
	}
	if err != nil {
		return nil, storageErr(err, "cart.set_quantity")
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr(err, "cart.set_quantity")
	}

	if changed {
		s.ledger.publish(ctx, stockChange(itemID, newStock))
	}
	return s.GetCart(ctx, cartID)
}

// RemoveAllLines implements domain.CartService.
func (s *CartService) RemoveAllLines(ctx context.Context, cartID uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr(err, "cart.clear")
	}
	defer tx.Rollback(ctx)

	if err := cartExists(ctx, tx, cartID); err != nil {
		return err
	}

	// Item id order keeps multi-item lock acquisition deterministic.
	rows, err := tx.Query(ctx,
		`SELECT item_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY item_id FOR UPDATE`,
		cartID)
	if err != nil {
		return storageErr(err, "cart.clear")
	}

	type lineQty struct {
		itemID int64
		qty    int32
	}
	var lines []lineQty
	for rows.Next() {
		var l lineQty
		if err := rows.Scan(&l.itemID, &l.qty); err != nil {
			rows.Close()
			return storageErr(err, "cart.clear")
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storageErr(err, "cart.clear")
	}

	changes := make([]domain.StockChange, 0, len(lines))
	for _, l := range lines {
		newStock, err := s.ledger.releaseLocked(ctx, tx, l.itemID, l.qty)
		if err != nil {
			return err
		}
		changes = append(changes, stockChange(l.itemID, newStock))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return storageErr(err, "cart.clear")
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err, "cart.clear")
	}

	for _, change := range changes {
		s.ledger.publish(ctx, change)
	}
	return nil
}

// cartExists verifies the cart row inside the current transaction.
func cartExists(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists)
	if err != nil {
		return storageErr(err, "cart.exists")
	}
	if !exists {
		return domain.ErrCartNotFound
	}
	return nil
}

// lockCartLine locks a cart line and returns its quantity.
func lockCartLine(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, itemID int64) (int32, error) {
	var qty int32
	err := tx.QueryRow(ctx,
		`SELECT quantity FROM cart_items WHERE cart_id = $1 AND item_id = $2 FOR UPDATE`,
		cartID, itemID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrItemNotInCart
		}
		return 0, storageErr(err, "cart.lock_line")
	}
	return qty, nil
}

// touchCart bumps the cart's updated_at.
func touchCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID); err != nil {
		return storageErr(err, "cart.touch")
	}
	return nil
}

// queryer lets detail loading run on the pool or inside a transaction.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadCartDetail reads a cart with lines joined to their item snapshot.
func loadCartDetail(ctx context.Context, q queryer, cartID uuid.UUID) (*domain.CartDetail, error) {
	var detail domain.CartDetail
	var userID, sessionID *string
	err := q.QueryRow(ctx,
		`SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE id = $1`,
		cartID).
		Scan(&detail.Cart.ID, &userID, &sessionID, &detail.Cart.CreatedAt, &detail.Cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, storageErr(err, "cart.get")
	}
	if userID != nil {
		detail.Cart.UserID = *userID
	}
	if sessionID != nil {
		detail.Cart.SessionID = *sessionID
	}

	rows, err := q.Query(ctx,
		`SELECT ci.item_id, ci.quantity, i.name, i.picture_url, i.unit_price::text
		 FROM cart_items ci
		 JOIN items i ON i.id = ci.item_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.created_at, ci.item_id`,
		cartID)
	if err != nil {
		return nil, storageErr(err, "cart.get")
	}
	defer rows.Close()

	detail.Subtotal = decimal.Zero
	for rows.Next() {
		var line domain.CartLineDetail
		var priceStr string
		if err := rows.Scan(&line.ItemID, &line.Quantity, &line.Name, &line.PictureURL, &priceStr); err != nil {
			return nil, storageErr(err, "cart.get")
		}
		line.UnitPrice, err = parseDecimal(priceStr)
		if err != nil {
			return nil, storageErr(err, "cart.get")
		}
		line.LineSubtotal = line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		detail.Subtotal = detail.Subtotal.Add(line.LineSubtotal)
		detail.ItemCount += line.Quantity
		detail.Lines = append(detail.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "cart.get")
	}

	return &detail, nil
}

var _ domain.CartService = (*CartService)(nil)
