package session

import (
	"context"
	"errors"
)

// Store is a transient, session-scoped key/value slot store. Each session
// token owns its own keyspace; values disappear when the session expires.
// It backs the live cart state, the checkout snapshot slot and the
// email dedup guard.
type Store interface {
	Get(ctx context.Context, token, key string) ([]byte, error)
	Set(ctx context.Context, token, key string, value []byte) error
	Delete(ctx context.Context, token, key string) error
}

var ErrNotFound = errors.New("session value not found")
