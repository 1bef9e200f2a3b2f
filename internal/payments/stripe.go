package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const stripeAPIBase = "https://api.stripe.com"

type StripeAdapter struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string

	baseURL    string
	httpClient *http.Client
}

func NewStripeAdapter(secretKey, successURL, cancelURL string) *StripeAdapter {
	return &StripeAdapter{
		SecretKey:  secretKey,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		baseURL:    stripeAPIBase,
		httpClient: http.DefaultClient,
	}
}

// NewStripeAdapterWithBaseURL points the adapter at a test server.
func NewStripeAdapterWithBaseURL(secretKey, successURL, cancelURL, baseURL string) *StripeAdapter {
	a := NewStripeAdapter(secretKey, successURL, cancelURL)
	a.baseURL = baseURL
	return a
}

func (s *StripeAdapter) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	form := url.Values{}
	form.Set("mode", string(req.Mode))
	// Stripe substitutes the session id into the success URL itself.
	form.Set("success_url", s.SuccessURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", s.CancelURL)

	if req.ClientReference != "" {
		form.Set("client_reference_id", req.ClientReference)
	}
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	for i, item := range req.Items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", strings.ToLower(req.Currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmountMinor, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.ID != "" {
			// Round-trips through GetSession so reconciliation can map the
			// line back to a catalog entry.
			form.Set(prefix+"[price_data][product_data][metadata][book_id]", item.ID)
		}
		if item.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", item.Description)
		}
		if item.ImageURL != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", item.ImageURL)
		}
		if req.Mode == ModeSubscription && req.RecurringInterval != "" {
			form.Set(prefix+"[price_data][recurring][interval]", req.RecurringInterval)
		}
	}

	raw, err := s.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}

	var res struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return Session{}, fmt.Errorf("stripe create session decode: %w body=%s", err, string(raw))
	}

	return Session{ID: res.ID, URL: res.URL}, nil
}

func (s *StripeAdapter) GetSession(ctx context.Context, sessionID string) (SessionDetails, error) {
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID) + "?expand[]=line_items"

	raw, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return SessionDetails{}, err
	}

	var res struct {
		ID              string `json:"id"`
		PaymentStatus   string `json:"payment_status"`
		AmountTotal     int64  `json:"amount_total"`
		Currency        string `json:"currency"`
		CustomerDetails struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"customer_details"`
		LineItems struct {
			Data []struct {
				Description string `json:"description"`
				Quantity    int    `json:"quantity"`
				AmountTotal int64  `json:"amount_total"`
				Price       struct {
					UnitAmount int64 `json:"unit_amount"`
					Product    struct {
						Metadata map[string]string `json:"metadata"`
					} `json:"product"`
				} `json:"price"`
			} `json:"data"`
		} `json:"line_items"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return SessionDetails{}, fmt.Errorf("stripe get session decode: %w body=%s", err, string(raw))
	}

	details := SessionDetails{
		ID:               res.ID,
		PaymentStatus:    res.PaymentStatus,
		CustomerEmail:    res.CustomerDetails.Email,
		CustomerName:     res.CustomerDetails.Name,
		AmountTotalMinor: res.AmountTotal,
		Currency:         strings.ToUpper(res.Currency),
	}
	for _, li := range res.LineItems.Data {
		details.Items = append(details.Items, LineItem{
			ID:              li.Price.Product.Metadata["book_id"],
			Name:            li.Description,
			UnitAmountMinor: li.Price.UnitAmount,
			Quantity:        li.Quantity,
		})
	}

	return details, nil
}

func (s *StripeAdapter) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("stripe request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.SecretKey)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stripe %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		// Stripe wraps failures as {"error": {"message": ...}}; surface the
		// message so callers can relay it.
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if jerr := json.Unmarshal(raw, &apiErr); jerr == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe rejected request: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe request failed: http=%d body=%s", resp.StatusCode, string(raw))
	}

	return raw, nil
}
