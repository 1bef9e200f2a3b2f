package orders

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	QueryTimeoutDuration = time.Second * 5
)

const (
	KindPurchase = "purchase"
	KindDonation = "donation"
)

// Order is a confirmed, paid order recorded after reconciliation. The payment
// processor stays the authority on payment state; this row exists for the
// buyer's library and the admin dashboard.
type Order struct {
	ID                int64     `json:"id"`
	Ref               string    `json:"ref"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	UserID            *int64    `json:"user_id,omitempty"`
	CustomerEmail     string    `json:"customer_email"`
	CustomerName      string    `json:"customer_name"`
	Kind              string    `json:"kind"`
	AmountTotalCents  int64     `json:"amount_total_cents"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

type OrderItem struct {
	ID              int64  `json:"id"`
	OrderID         int64  `json:"order_id"`
	BookID          string `json:"book_id"`
	Name            string `json:"name"`
	UnitAmountCents int64  `json:"unit_amount_cents"`
	Quantity        int    `json:"quantity"`
}

type TopBook struct {
	BookID       string `json:"book_id"`
	Name         string `json:"name"`
	UnitsSold    int64  `json:"units_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type Store interface {
	// CreateConfirmed is idempotent on checkout session id: a second
	// confirmation of the same session records nothing and returns the
	// existing order.
	CreateConfirmed(ctx context.Context, order *Order, items []OrderItem) (*Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
	GetItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	List(ctx context.Context, limit, offset int) ([]Order, int, error)
	TopBooks(ctx context.Context, limit int) ([]TopBook, error)
}
