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

// CheckoutService implements domain.CheckoutService on PostgreSQL.
// Checkout runs as one transaction: read and lock the cart's lines, snapshot
// current prices, insert the order and its lines, clear the cart. Stock is
// never touched; the cart's reservations become the order's consumption.
type CheckoutService struct {
	pool *pgxpool.Pool
}

// NewCheckoutService creates a postgres-backed checkout service.
func NewCheckoutService(pool *pgxpool.Pool) *CheckoutService {
	return &CheckoutService{pool: pool}
}

// Checkout implements domain.CheckoutService.
func (s *CheckoutService) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	if userID == "" {
		return nil, domain.Invalid("checkout", "user ID is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr(err, "checkout")
	}
	defer tx.Rollback(ctx)

	var cartID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No cart yet means nothing to check out.
			return nil, domain.ErrEmptyCart
		}
		return nil, storageErr(err, "checkout")
	}

	// Lock the lines so no concurrent cart edit interleaves with the
	// snapshot; item rows are read, not locked, since stock does not move.
	rows, err := tx.Query(ctx,
		`SELECT ci.item_id, ci.quantity, i.name, i.unit_price::text
		 FROM cart_items ci
		 JOIN items i ON i.id = ci.item_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.created_at, ci.item_id
		 FOR UPDATE OF ci`,
		cartID)
	if err != nil {
		return nil, storageErr(err, "checkout")
	}

	order := domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.Zero,
	}
	for rows.Next() {
		var line domain.OrderLine
		var priceStr string
		if err := rows.Scan(&line.ItemID, &line.Quantity, &line.Name, &priceStr); err != nil {
			rows.Close()
			return nil, storageErr(err, "checkout")
		}
		line.UnitPriceAtPurchase, err = parseDecimal(priceStr)
		if err != nil {
			rows.Close()
			return nil, storageErr(err, "checkout")
		}
		order.TotalAmount = order.TotalAmount.
			Add(line.UnitPriceAtPurchase.Mul(decimal.NewFromInt32(line.Quantity)))
		order.Lines = append(order.Lines, line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "checkout")
	}

	if len(order.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, status, total_amount)
		 VALUES ($1, $2, $3, $4::numeric)
		 RETURNING created_at`,
		order.ID, order.UserID, string(order.Status), order.TotalAmount.StringFixed(2)).
		Scan(&order.CreatedAt)
	if err != nil {
		return nil, storageErr(err, "checkout")
	}

	for _, line := range order.Lines {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, item_id, name, quantity, unit_price_at_purchase)
			 VALUES ($1, $2, $3, $4, $5::numeric)`,
			order.ID, line.ItemID, line.Name, line.Quantity,
			line.UnitPriceAtPurchase.StringFixed(2))
		if err != nil {
			return nil, storageErr(err, "checkout")
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return nil, storageErr(err, "checkout")
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr(err, "checkout")
	}

	return &order, nil
}

// ListOrders implements domain.CheckoutService.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, status, total_amount::text, created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, storageErr(err, "orders.list")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "orders.list")
	}

	for i := range orders {
		if err := s.loadOrderLines(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetOrder implements domain.CheckoutService.
func (s *CheckoutService) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, status, total_amount::text, created_at
		 FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID)

	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// loadOrderLines fills an order's lines in insertion order.
func (s *CheckoutService) loadOrderLines(ctx context.Context, order *domain.Order) error {
	rows, err := s.pool.Query(ctx,
		`SELECT item_id, name, quantity, unit_price_at_purchase::text
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		order.ID)
	if err != nil {
		return storageErr(err, "orders.lines")
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		var priceStr string
		if err := rows.Scan(&line.ItemID, &line.Name, &line.Quantity, &priceStr); err != nil {
			return storageErr(err, "orders.lines")
		}
		line.UnitPriceAtPurchase, err = parseDecimal(priceStr)
		if err != nil {
			return storageErr(err, "orders.lines")
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return storageErr(err, "orders.lines")
	}
	return nil
}

// scanOrder reads an order header row.
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var status, totalStr string
	err := row.Scan(&order.ID, &order.UserID, &status, &totalStr, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, storageErr(err, "orders.get")
	}
	order.Status = domain.OrderStatus(status)
	order.TotalAmount, err = parseDecimal(totalStr)
	if err != nil {
		return nil, storageErr(err, "orders.get")
	}
	return &order, nil
}

var _ domain.CheckoutService = (*CheckoutService)(nil)
