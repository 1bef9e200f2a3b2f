package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeCreateSession(t *testing.T) {
	var gotForm map[string][]string
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "cs_test_1", "url": "https://checkout.stripe.com/pay/cs_test_1"}`))
	}))
	defer srv.Close()

	a := NewStripeAdapterWithBaseURL("sk_test_abc", "https://shop.test/return", "https://shop.test/cart", srv.URL)

	session, err := a.CreateSession(context.Background(), SessionRequest{
		Currency:        "USD",
		Mode:            ModePayment,
		ClientReference: "anon-1",
		Items: []LineItem{
			{ID: "book-a", Name: "Book A", UnitAmountMinor: 1999, Quantity: 2, ImageURL: "https://cdn.test/a.png"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", session.URL)

	assert.Equal(t, "Bearer sk_test_abc", gotAuth)
	assert.Equal(t, "payment", gotForm["mode"][0])
	assert.Equal(t, "https://shop.test/return?session_id={CHECKOUT_SESSION_ID}", gotForm["success_url"][0])
	assert.Equal(t, "anon-1", gotForm["client_reference_id"][0])
	assert.Equal(t, "2", gotForm["line_items[0][quantity]"][0])
	assert.Equal(t, "usd", gotForm["line_items[0][price_data][currency]"][0])
	assert.Equal(t, "1999", gotForm["line_items[0][price_data][unit_amount]"][0])
	assert.Equal(t, "book-a", gotForm["line_items[0][price_data][product_data][metadata][book_id]"][0])
	assert.Equal(t, "https://cdn.test/a.png", gotForm["line_items[0][price_data][product_data][images][0]"][0])
}

func TestStripeCreateSessionSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "month", r.PostForm.Get("line_items[0][price_data][recurring][interval]"))
		w.Write([]byte(`{"id": "cs_sub", "url": "https://checkout.stripe.com/pay/cs_sub"}`))
	}))
	defer srv.Close()

	a := NewStripeAdapterWithBaseURL("sk", "https://s.test/ok", "https://s.test/no", srv.URL)

	_, err := a.CreateSession(context.Background(), SessionRequest{
		Currency:          "USD",
		Mode:              ModeSubscription,
		RecurringInterval: "month",
		Items:             []LineItem{{ID: "donation", Name: "Monthly donation", UnitAmountMinor: 1000, Quantity: 1}},
	})
	require.NoError(t, err)
}

func TestStripeGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		assert.Equal(t, "line_items", r.URL.Query().Get("expand[]"))

		w.Write([]byte(`{
			"id": "cs_test_1",
			"payment_status": "paid",
			"amount_total": 4998,
			"currency": "usd",
			"customer_details": {"email": "reader@example.com", "name": "Reader"},
			"line_items": {"data": [
				{"description": "Book A", "quantity": 2, "amount_total": 3998,
				 "price": {"unit_amount": 1999, "product": {"metadata": {"book_id": "book-a"}}}},
				{"description": "Book B", "quantity": 1, "amount_total": 1000,
				 "price": {"unit_amount": 1000, "product": {"metadata": {"book_id": "book-b"}}}}
			]}
		}`))
	}))
	defer srv.Close()

	a := NewStripeAdapterWithBaseURL("sk", "https://s.test/ok", "https://s.test/no", srv.URL)

	details, err := a.GetSession(context.Background(), "cs_test_1")
	require.NoError(t, err)

	assert.True(t, details.Paid())
	assert.Equal(t, "reader@example.com", details.CustomerEmail)
	assert.Equal(t, "Reader", details.CustomerName)
	assert.Equal(t, int64(4998), details.AmountTotalMinor)
	assert.Equal(t, "USD", details.Currency)
	require.Len(t, details.Items, 2)
	assert.Equal(t, "book-a", details.Items[0].ID)
	assert.Equal(t, "Book A", details.Items[0].Name)
	assert.Equal(t, 2, details.Items[0].Quantity)
}

func TestStripeErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid currency: xyz"}}`))
	}))
	defer srv.Close()

	a := NewStripeAdapterWithBaseURL("sk", "https://s.test/ok", "https://s.test/no", srv.URL)

	_, err := a.CreateSession(context.Background(), SessionRequest{
		Currency: "XYZ",
		Mode:     ModePayment,
		Items:    []LineItem{{ID: "book-a", Name: "Book A", UnitAmountMinor: 1999, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid currency: xyz")
}

func TestManagerGatewayLookup(t *testing.T) {
	m := NewManager()
	stripe := NewStripeAdapter("sk_test", "https://example.com/ok", "https://example.com/cancel")
	m.RegisterGateway("stripe", stripe)

	gw, err := m.Gateway("stripe")
	require.NoError(t, err)
	assert.Equal(t, stripe, gw)

	_, err = m.Gateway("esewa")
	assert.Error(t, err)
}
