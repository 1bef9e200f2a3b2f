package cart

import (
	"context"
	"testing"
	"time"

	"storyport/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	return NewService(store, zap.NewNop().Sugar()), store
}

func TestLoadMissingCartIsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Load(context.Background(), "anon-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c := &Cart{}
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 2})
	c.AddItem(LineItem{ID: "book-b", Title: "Book B", UnitPrice: price("9.50")})

	require.NoError(t, svc.Save(ctx, "anon-1", c))

	got, err := svc.Load(ctx, "anon-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, c.Items[0].ID, got.Items[0].ID)
	assert.Equal(t, c.Items[0].Quantity, got.Items[0].Quantity)
	assert.True(t, c.TotalPrice().Equal(got.TotalPrice()))
}

func TestLoadCorruptCartDropsSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "anon-1", "cart", []byte("{not json")))

	c, err := svc.Load(ctx, "anon-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = store.Get(ctx, "anon-1", "cart")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c := &Cart{}
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 2})
	c.AddItem(LineItem{ID: "book-b", Title: "Book B", UnitPrice: price("9.50"), Quantity: 1})

	require.NoError(t, svc.Snapshot(ctx, "anon-1", c))

	restored, err := svc.Restore(ctx, "anon-1", "user:42")
	require.NoError(t, err)
	assert.True(t, restored)

	got, err := svc.Load(ctx, "user:42")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.TotalPrice().Equal(c.TotalPrice()))
}

func TestRestoreConsumesSnapshotOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	c := &Cart{}
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99")})
	require.NoError(t, svc.Snapshot(ctx, "anon-1", c))

	restored, err := svc.Restore(ctx, "anon-1", "user:42")
	require.NoError(t, err)
	require.True(t, restored)

	// The slot is gone; a second sign-in cannot replay the restore.
	_, err = store.Get(ctx, "anon-1", SnapshotKey)
	assert.ErrorIs(t, err, session.ErrNotFound)

	restored, err = svc.Restore(ctx, "anon-1", "user:42")
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestRestoreAbandonsCorruptSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "anon-1", SnapshotKey, []byte("corrupt!!")))

	restored, err := svc.Restore(ctx, "anon-1", "user:42")
	require.NoError(t, err)
	assert.False(t, restored)

	// Corrupt payloads are consumed too, never left to strand.
	_, err = store.Get(ctx, "anon-1", SnapshotKey)
	assert.ErrorIs(t, err, session.ErrNotFound)

	got, err := svc.Load(ctx, "user:42")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRestoreMissingSnapshotIsNoop(t *testing.T) {
	svc, _ := newTestService(t)

	restored, err := svc.Restore(context.Background(), "anon-1", "user:42")
	require.NoError(t, err)
	assert.False(t, restored)
}
