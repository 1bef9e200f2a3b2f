package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"storyport/internal/cart"
	"storyport/internal/payments"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGateway struct {
	mu       sync.Mutex
	requests []payments.SessionRequest
	session  payments.Session
	err      error
	block    chan struct{}
}

func (m *mockGateway) CreateSession(ctx context.Context, req payments.SessionRequest) (payments.Session, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return payments.Session{}, m.err
	}
	m.requests = append(m.requests, req)
	return m.session, nil
}

func (m *mockGateway) GetSession(ctx context.Context, sessionID string) (payments.SessionDetails, error) {
	return payments.SessionDetails{}, nil
}

func newTestInitiator(gw payments.Gateway) *Initiator {
	return NewInitiator(gw, NewFixedRateProvider(), zap.NewNop().Sugar())
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildRequestRejectsEmptyCart(t *testing.T) {
	i := newTestInitiator(&mockGateway{})

	_, err := i.BuildRequest(&cart.Cart{}, "USD")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildRequestRejectsWholeBatchOnInvalidLine(t *testing.T) {
	i := newTestInitiator(&mockGateway{})

	c := &cart.Cart{Items: []cart.LineItem{
		{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 1},
		{ID: "book-b", Title: "", UnitPrice: price("9.50"), Quantity: 1},
	}}

	_, err := i.BuildRequest(c, "USD")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildRequestConvertsMinorUnits(t *testing.T) {
	i := newTestInitiator(&mockGateway{})

	c := &cart.Cart{}
	c.AddItem(cart.LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 1})

	req, err := i.BuildRequest(c, "USD")
	require.NoError(t, err)
	require.Len(t, req.Items, 1)
	assert.Equal(t, int64(1999), req.Items[0].UnitAmountMinor)
}

func TestBuildRequestAppliesExchangeRateExactly(t *testing.T) {
	i := newTestInitiator(&mockGateway{})

	c := &cart.Cart{}
	c.AddItem(cart.LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 1})

	// Minor units first, rate after: 1999 × 5 = 9995, never 9994 or 9996.
	req, err := i.BuildRequest(c, "BRL")
	require.NoError(t, err)
	require.Len(t, req.Items, 1)
	assert.Equal(t, int64(9995), req.Items[0].UnitAmountMinor)
	assert.Equal(t, "BRL", req.Currency)
}

func TestBuildRequestNormalizesImageURLs(t *testing.T) {
	i := newTestInitiator(&mockGateway{})

	c := &cart.Cart{Items: []cart.LineItem{
		{ID: "a", Title: "A", UnitPrice: price("5"), Quantity: 1, CoverImageURL: "http://cdn.example.com/a.png?sig=abc#frag"},
		{ID: "b", Title: "B", UnitPrice: price("5"), Quantity: 1, CoverImageURL: "not a url at all"},
		{ID: "c", Title: "C", UnitPrice: price("5"), Quantity: 1},
	}}

	req, err := i.BuildRequest(c, "USD")
	require.NoError(t, err)
	require.Len(t, req.Items, 3)
	assert.Equal(t, "https://cdn.example.com/a.png", req.Items[0].ImageURL)
	// A bad image drops the image, never the item.
	assert.Empty(t, req.Items[1].ImageURL)
	assert.Empty(t, req.Items[2].ImageURL)
}

func TestNormalizeImageURL(t *testing.T) {
	got, ok := NormalizeImageURL("http://host.test/img.jpg?x=1")
	assert.True(t, ok)
	assert.Equal(t, "https://host.test/img.jpg", got)

	_, ok = NormalizeImageURL("")
	assert.False(t, ok)

	_, ok = NormalizeImageURL("/relative/path.png")
	assert.False(t, ok)
}

func TestSubmitSetsClientReference(t *testing.T) {
	gw := &mockGateway{session: payments.Session{ID: "cs_123", URL: "https://pay.example/cs_123"}}
	i := newTestInitiator(gw)

	c := &cart.Cart{}
	c.AddItem(cart.LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 1})

	session, err := i.Submit(context.Background(), "anon-1", c, "USD")
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.ID)

	require.Len(t, gw.requests, 1)
	assert.Equal(t, "anon-1", gw.requests[0].ClientReference)
}

func TestSubmitRejectsConcurrentCheckout(t *testing.T) {
	gw := &mockGateway{
		session: payments.Session{ID: "cs_123"},
		block:   make(chan struct{}),
	}
	i := newTestInitiator(gw)

	c := &cart.Cart{}
	c.AddItem(cart.LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 1})

	firstDone := make(chan error, 1)
	go func() {
		_, err := i.Submit(context.Background(), "anon-1", c, "USD")
		firstDone <- err
	}()

	// Wait until the first submit holds the guard.
	require.Eventually(t, func() bool {
		i.mu.Lock()
		defer i.mu.Unlock()
		_, busy := i.inFlight["anon-1"]
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err := i.Submit(context.Background(), "anon-1", c, "USD")
	assert.ErrorIs(t, err, ErrCheckoutInFlight)

	close(gw.block)
	require.NoError(t, <-firstDone)

	// Guard released; the same session can submit again.
	_, err = i.Submit(context.Background(), "anon-1", c, "USD")
	assert.NoError(t, err)
}

func TestSubmitDonationValidatesMinimum(t *testing.T) {
	gw := &mockGateway{session: payments.Session{ID: "cs_don"}}
	i := newTestInitiator(gw)

	_, err := i.SubmitDonation(context.Background(), "anon-1", DonationRequest{AmountMinor: 499})
	assert.ErrorIs(t, err, ErrValidation)

	session, err := i.SubmitDonation(context.Background(), "anon-1", DonationRequest{AmountMinor: 500})
	require.NoError(t, err)
	assert.Equal(t, "cs_don", session.ID)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, payments.ModePayment, req.Mode)
	assert.Equal(t, "USD", req.Currency)
	require.Len(t, req.Items, 1)
	assert.Equal(t, int64(500), req.Items[0].UnitAmountMinor)
}

func TestSubmitDonationRecurring(t *testing.T) {
	gw := &mockGateway{session: payments.Session{ID: "cs_don"}}
	i := newTestInitiator(gw)

	_, err := i.SubmitDonation(context.Background(), "anon-1", DonationRequest{AmountMinor: 1000, IsRecurring: true})
	require.NoError(t, err)

	require.Len(t, gw.requests, 1)
	assert.Equal(t, payments.ModeSubscription, gw.requests[0].Mode)
	assert.Equal(t, "month", gw.requests[0].RecurringInterval)
}
