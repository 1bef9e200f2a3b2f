package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	_, err := s.Get(ctx, "tok", "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "tok", "cart", []byte("payload")))

	got, err := s.Get(ctx, "tok", "cart")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	// Slots are isolated per token and per key.
	_, err = s.Get(ctx, "other", "cart")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "tok", "cartState")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "tok", "cart"))
	_, err = s.Get(ctx, "tok", "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent slot is a no-op.
	assert.NoError(t, s.Delete(ctx, "tok", "cart"))
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tok", "cart", []byte("payload")))

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, "tok", "cart")
		return err == ErrNotFound
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tok", "cart", []byte("one")))
	require.NoError(t, s.Set(ctx, "tok", "cart", []byte("two")))

	got, err := s.Get(ctx, "tok", "cart")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}
