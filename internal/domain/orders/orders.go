package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx so the repository can
// run standalone or inside the storage container's transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db Querier
}

func NewRepository(q Querier) Store {
	return &Repository{db: q}
}

func (r *Repository) CreateConfirmed(ctx context.Context, order *Order, items []OrderItem) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
INSERT INTO orders (ref, checkout_session_id, user_id, customer_email, customer_name, kind, amount_total_cents, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (checkout_session_id) DO NOTHING
RETURNING id, created_at
`, order.Ref, order.CheckoutSessionID, order.UserID, order.CustomerEmail,
		order.CustomerName, order.Kind, order.AmountTotalCents, order.Currency,
	).Scan(&order.ID, &order.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict path: this session was already recorded.
			return r.GetBySessionID(ctx, order.CheckoutSessionID)
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		if _, err := r.db.Exec(ctx, `
INSERT INTO order_items (order_id, book_id, name, unit_amount_cents, quantity)
VALUES ($1, $2, $3, $4, $5)
`, order.ID, items[i].BookID, items[i].Name, items[i].UnitAmountCents, items[i].Quantity); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	return order, nil
}

func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var o Order
	err := r.db.QueryRow(ctx, `
SELECT id, ref, checkout_session_id, user_id, customer_email, customer_name, kind, amount_total_cents, currency, created_at
FROM orders
WHERE checkout_session_id = $1
`, sessionID).Scan(
		&o.ID, &o.Ref, &o.CheckoutSessionID, &o.UserID, &o.CustomerEmail,
		&o.CustomerName, &o.Kind, &o.AmountTotalCents, &o.Currency, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order by session: %w", err)
	}
	return &o, nil
}

func (r *Repository) GetItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
SELECT id, order_id, book_id, name, unit_amount_cents, quantity
FROM order_items
WHERE order_id = $1
ORDER BY id ASC
`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Name, &it.UnitAmountCents, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Order, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
SELECT id, ref, checkout_session_id, user_id, customer_email, customer_name, kind, amount_total_cents, currency, created_at,
       COUNT(*) OVER() AS total
FROM orders
ORDER BY id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	total := 0
	for rows.Next() {
		var o Order
		var t int
		if err := rows.Scan(
			&o.ID, &o.Ref, &o.CheckoutSessionID, &o.UserID, &o.CustomerEmail,
			&o.CustomerName, &o.Kind, &o.AmountTotalCents, &o.Currency, &o.CreatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *Repository) TopBooks(ctx context.Context, limit int) ([]TopBook, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
SELECT oi.book_id,
       MAX(oi.name) AS name,
       SUM(oi.quantity) AS units_sold,
       SUM(oi.quantity * oi.unit_amount_cents) AS revenue_cents
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.kind = 'purchase'
GROUP BY oi.book_id
ORDER BY units_sold DESC, revenue_cents DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("top books: %w", err)
	}
	defer rows.Close()

	var out []TopBook
	for rows.Next() {
		var tb TopBook
		if err := rows.Scan(&tb.BookID, &tb.Name, &tb.UnitsSold, &tb.RevenueCents); err != nil {
			return nil, fmt.Errorf("scan top book: %w", err)
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}
