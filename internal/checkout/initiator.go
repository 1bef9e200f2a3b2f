package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"storyport/internal/cart"
	"storyport/internal/payments"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrValidation = errors.New("validation failed")

	// ErrCheckoutInFlight rejects a second concurrent submit for the same
	// session deterministically instead of trusting the UI to disable the
	// button.
	ErrCheckoutInFlight = errors.New("a checkout is already in progress for this cart")
)

// Initiator converts a cart into a hosted payment session: validation, minor
// unit conversion, image normalization and the single-flight submit guard all
// live here so every call site behaves identically.
type Initiator struct {
	gateway payments.Gateway
	rates   RateProvider
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewInitiator(gateway payments.Gateway, rates RateProvider, logger *zap.SugaredLogger) *Initiator {
	return &Initiator{
		gateway:  gateway,
		rates:    rates,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

func (i *Initiator) begin(sessionKey string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.inFlight[sessionKey]; busy {
		return ErrCheckoutInFlight
	}
	i.inFlight[sessionKey] = struct{}{}
	return nil
}

func (i *Initiator) end(sessionKey string) {
	i.mu.Lock()
	delete(i.inFlight, sessionKey)
	i.mu.Unlock()
}

// BuildRequest derives the processor request from the cart at the moment of
// submission. The whole batch is rejected on the first invalid line; a bad
// image URL only drops the image, never the item.
func (i *Initiator) BuildRequest(c *cart.Cart, currency string) (payments.SessionRequest, error) {
	if c.IsEmpty() {
		return payments.SessionRequest{}, fmt.Errorf("%w: %s", ErrValidation, cart.ErrEmptyCart)
	}

	rate, err := i.rates.Rate("USD", currency)
	if err != nil {
		return payments.SessionRequest{}, fmt.Errorf("resolve rate: %w", err)
	}

	req := payments.SessionRequest{
		Currency: currency,
		Mode:     payments.ModePayment,
		Items:    make([]payments.LineItem, 0, len(c.Items)),
	}

	for _, item := range c.Items {
		if item.Title == "" {
			return payments.SessionRequest{}, fmt.Errorf("%w: item %q has no name", ErrValidation, item.ID)
		}
		if item.Quantity <= 0 {
			return payments.SessionRequest{}, fmt.Errorf("%w: item %q has non-positive quantity", ErrValidation, item.ID)
		}

		minor := ToMinorUnits(item.UnitPrice)
		// Catalog prices are USD; other currencies scale the minor units by
		// the provider rate (1999 × 5 = 9995, round half-up).
		if !rate.Equal(decimal.NewFromInt(1)) {
			minor = decimal.NewFromInt(minor).Mul(rate).Round(0).IntPart()
		}
		if minor <= 0 {
			return payments.SessionRequest{}, fmt.Errorf("%w: item %q has non-positive price", ErrValidation, item.ID)
		}

		line := payments.LineItem{
			ID:              item.ID,
			Name:            item.Title,
			Description:     item.Description,
			UnitAmountMinor: minor,
			Quantity:        item.Quantity,
		}
		if img, ok := NormalizeImageURL(item.CoverImageURL); ok {
			line.ImageURL = img
		} else if item.CoverImageURL != "" {
			i.logger.Warnw("dropping unparseable cover image", "item", item.ID, "url", item.CoverImageURL)
		}

		req.Items = append(req.Items, line)
	}

	return req, nil
}

// Submit validates, builds and creates the hosted session. The cart is never
// mutated; any failure leaves the caller free to retry. sessionKey scopes the
// in-flight guard (one submit per cart at a time).
func (i *Initiator) Submit(ctx context.Context, sessionKey string, c *cart.Cart, currency string) (payments.Session, error) {
	if err := i.begin(sessionKey); err != nil {
		return payments.Session{}, err
	}
	defer i.end(sessionKey)

	req, err := i.BuildRequest(c, currency)
	if err != nil {
		return payments.Session{}, err
	}
	req.ClientReference = sessionKey

	session, err := i.gateway.CreateSession(ctx, req)
	if err != nil {
		return payments.Session{}, fmt.Errorf("create checkout session: %w", err)
	}

	i.logger.Infow("checkout session created", "session_id", session.ID, "items", len(req.Items), "currency", currency)
	return session, nil
}

// NormalizeImageURL strips query and fragment and forces https. Returns false
// when the URL is empty or does not parse; callers drop the image then.
func NormalizeImageURL(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Scheme = "https"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), true
}
