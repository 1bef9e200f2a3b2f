// Package storage wires the per-domain repositories to a shared pgx pool and
// provides transaction scoping for the write paths that must be atomic.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyport/internal/domain/adminstats"
	"storyport/internal/domain/books"
	"storyport/internal/domain/orders"
	"storyport/internal/domain/pushtokens"
	"storyport/internal/domain/users"
)

type Container struct {
	pool *pgxpool.Pool

	Users      users.Store
	Books      books.Store
	Orders     orders.Store
	PushTokens pushtokens.Store
	Stats      adminstats.Store
}

func NewContainer(pool *pgxpool.Pool) *Container {
	return &Container{
		pool:       pool,
		Users:      users.NewRepository(pool),
		Books:      books.NewRepository(pool),
		Orders:     orders.NewRepository(pool),
		PushTokens: pushtokens.NewRepository(pool),
		Stats:      adminstats.NewRepository(pool),
	}
}

// Tx carries transaction-scoped repositories. Only the stores involved in
// order recording participate; the rest read committed data through the pool.
type Tx struct {
	Orders orders.Store
}

// WithTx runs fn inside a database transaction, committing on nil error and
// rolling back otherwise.
func (c *Container) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	pgtx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{Orders: orders.NewRepository(pgtx)}); err != nil {
		_ = pgtx.Rollback(ctx)
		return err
	}

	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
