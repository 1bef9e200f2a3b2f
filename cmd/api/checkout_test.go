package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storyport/internal/cart"
	"storyport/internal/checkout"
	"storyport/internal/domain/users"
	"storyport/internal/payments"
	"storyport/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	session payments.Session
	err     error
}

func (g *stubGateway) CreateSession(ctx context.Context, req payments.SessionRequest) (payments.Session, error) {
	if g.err != nil {
		return payments.Session{}, g.err
	}
	return g.session, nil
}

func (g *stubGateway) GetSession(ctx context.Context, sessionID string) (payments.SessionDetails, error) {
	return payments.SessionDetails{}, nil
}

func newCheckoutTestApp(gw payments.Gateway) *application {
	logger := zap.NewNop().Sugar()
	sessions := session.NewMemoryStore(time.Hour)
	carts := cart.NewService(sessions, logger)

	return &application{
		config:   config{checkout: checkoutConfig{currency: "USD"}},
		logger:   logger,
		sessions: sessions,
		carts:    carts,
		checkout: checkout.NewInitiator(gw, checkout.NewFixedRateProvider(), logger),
	}
}

func seedCart(t *testing.T, app *application, token string) *cart.Cart {
	t.Helper()

	c := &cart.Cart{}
	c.AddItem(cart.LineItem{
		ID:        "book-a",
		Title:     "Book A",
		UnitPrice: decimal.RequireFromString("19.99"),
		Quantity:  1,
	})
	require.NoError(t, app.carts.Save(context.Background(), token, c))
	return c
}

func TestStartCheckoutAnonymousSnapshotsAndAsksForSignIn(t *testing.T) {
	app := newCheckoutTestApp(&stubGateway{})
	seedCart(t, app, "anon-1")

	r := httptest.NewRequest(http.MethodPost, "/v1/store/checkout", nil)
	r.Header.Set(sessionTokenHeader, "anon-1")
	w := httptest.NewRecorder()

	app.startCheckoutHandler(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body SignInRequiredResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, http.StatusUnauthorized, body.Status)
	assert.Equal(t, "/login", body.RedirectTo)

	// The cart survives the detour through sign-in via the snapshot slot.
	snap, err := app.sessions.Get(context.Background(), "anon-1", cart.SnapshotKey)
	require.NoError(t, err)
	assert.Contains(t, string(snap), "book-a")
}

func TestStartCheckoutAnonymousEmptyCartIsRejected(t *testing.T) {
	app := newCheckoutTestApp(&stubGateway{})

	r := httptest.NewRequest(http.MethodPost, "/v1/store/checkout", nil)
	r.Header.Set(sessionTokenHeader, "anon-1")
	w := httptest.NewRecorder()

	app.startCheckoutHandler(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing to park, so no snapshot slot is written.
	_, err := app.sessions.Get(context.Background(), "anon-1", cart.SnapshotKey)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStartCheckoutSignedInReturnsHostedSession(t *testing.T) {
	app := newCheckoutTestApp(&stubGateway{
		session: payments.Session{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"},
	})

	user := &users.User{ID: 7, Role: users.RoleCustomer}
	seedCart(t, app, userCartToken(user.ID))

	r := httptest.NewRequest(http.MethodPost, "/v1/store/checkout", nil)
	r = r.WithContext(context.WithValue(r.Context(), userCtx, user))
	w := httptest.NewRecorder()

	app.startCheckoutHandler(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data CheckoutSessionResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "cs_test_1", body.Data.SessionID)
	assert.Equal(t, "https://pay.example/cs_test_1", body.Data.CheckoutURL)
}
