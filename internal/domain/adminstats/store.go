// Package adminstats exposes read-only aggregate queries backing the admin
// dashboard. Each method is a single scalar query so callers can fan them
// out concurrently.
package adminstats

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var QueryTimeoutDuration = time.Second * 5

type Store interface {
	CountUsers(ctx context.Context) (int64, error)
	CountBooks(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	PaidRevenueCents(ctx context.Context) (int64, error)
	DonationTotalCents(ctx context.Context) (int64, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

func (r *Repository) scalar(ctx context.Context, q string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var n int64
	if err := r.db.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	return r.scalar(ctx, `SELECT COUNT(*) FROM users WHERE is_active = true`)
}

func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	return r.scalar(ctx, `SELECT COUNT(*) FROM books`)
}

func (r *Repository) CountOrders(ctx context.Context) (int64, error) {
	return r.scalar(ctx, `SELECT COUNT(*) FROM orders`)
}

func (r *Repository) PaidRevenueCents(ctx context.Context) (int64, error) {
	return r.scalar(ctx, `
SELECT COALESCE(SUM(amount_total_cents), 0)
FROM orders
WHERE kind = 'purchase'
`)
}

func (r *Repository) DonationTotalCents(ctx context.Context) (int64, error) {
	return r.scalar(ctx, `
SELECT COALESCE(SUM(amount_total_cents), 0)
FROM orders
WHERE kind = 'donation'
`)
}
