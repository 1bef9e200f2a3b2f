package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyport/internal/domain/orders"
	"storyport/internal/domain/storage"
	"storyport/internal/notifications"
	"storyport/internal/reconcile"
)

type ConfirmOrderPayload struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

// ConfirmOrderResponse reports the terminal state of a confirmation attempt.
type ConfirmOrderResponse struct {
	State    string `json:"state"`
	Deduped  bool   `json:"deduped"`
	OrderRef string `json:"order_ref,omitempty"`
}

// confirmOrderHandler godoc
//
//	@Summary		Confirm a checkout session after the buyer returns
//	@Description	Re-reads payment state from the processor, dispatches the confirmation email at most once per session, records the order, and clears the cart. Safe to call repeatedly; repeats within the dedup window short-circuit.
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ConfirmOrderPayload	true	"Processor checkout session id"
//	@Success		200		{object}	ConfirmOrderResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		402		{object}	ErrorBadRequestResponse	"Payment has not completed"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/store/orders/confirm [post]
func (app *application) confirmOrderHandler(w http.ResponseWriter, r *http.Request) {
	token, err := app.cartToken(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ConfirmOrderPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	outcome, err := app.reconciler.Confirm(ctx, token, payload.SessionID)
	if err != nil {
		if errors.Is(err, reconcile.ErrPaymentIncomplete) {
			app.logger.Warnw("confirmation attempted on unpaid session", "session_id", payload.SessionID)
			writeJSONError(w, http.StatusPaymentRequired, "payment has not completed")
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	// A fresh (non-deduped) send is the one moment the order gets recorded
	// and the cart cleared.
	if outcome.State == reconcile.StateSent && !outcome.Deduped {
		if err := app.recordOrder(ctx, r, payload.SessionID, outcome); err != nil {
			// The email went out; losing the order row is logged loudly but
			// does not fail the confirmation.
			app.logger.Errorw("failed to record confirmed order", "session_id", payload.SessionID, "error", err)
		}

		if err := app.carts.Clear(ctx, token); err != nil {
			app.logger.Errorw("failed to clear cart after confirmation", "token", token, "error", err)
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, ConfirmOrderResponse{
		State:    string(outcome.State),
		Deduped:  outcome.Deduped,
		OrderRef: outcome.OrderRef,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) recordOrder(ctx context.Context, r *http.Request, sessionID string, outcome reconcile.Outcome) error {
	details := outcome.Details

	kind := orders.KindPurchase
	if len(details.Items) == 1 && details.Items[0].ID == "donation" {
		kind = orders.KindDonation
	}

	order := &orders.Order{
		Ref:               outcome.OrderRef,
		CheckoutSessionID: sessionID,
		CustomerEmail:     details.CustomerEmail,
		CustomerName:      details.CustomerName,
		Kind:              kind,
		AmountTotalCents:  details.AmountTotalMinor,
		Currency:          details.Currency,
	}
	if user := getUserFromContext(r); user != nil {
		order.UserID = &user.ID
	}

	items := make([]orders.OrderItem, 0, len(details.Items))
	for _, it := range details.Items {
		items = append(items, orders.OrderItem{
			BookID:          it.ID,
			Name:            it.Name,
			UnitAmountCents: it.UnitAmountMinor,
			Quantity:        it.Quantity,
		})
	}

	if err := app.store.WithTx(ctx, func(tx *storage.Tx) error {
		_, err := tx.Orders.CreateConfirmed(ctx, order, items)
		return err
	}); err != nil {
		return err
	}

	go app.notifyOrderPaid(order)

	return nil
}

func (app *application) notifyOrderPaid(order *orders.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := notifications.SendOrderPaidNotification(ctx, app.push, app.store, order.Ref, order.AmountTotalCents, order.Currency)
	if err != nil {
		app.logger.Warnw("order push notification failed", "order_ref", order.Ref, "error", err)
	}
}

// checkoutReturnHandler serves the page the processor redirects to. It tries
// the app deep link first, then falls back to the web storefront, carrying
// the session id so either surface can call the confirm endpoint.
func (app *application) checkoutReturnHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	result := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("result")))
	if result != "success" && result != "cancel" {
		result = "success"
	}

	q := url.Values{}
	q.Set("result", result)
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}

	deepLink := fmt.Sprintf("storyport://checkout/return?%s", q.Encode())
	webFallback := fmt.Sprintf("%s/checkout/return?%s", app.config.frontendURL, q.Encode())

	html := fmt.Sprintf(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Returning to Storyport…</title>
    <style>
      body { font-family: system-ui, -apple-system, Segoe UI, Roboto; padding: 24px; }
      .btn { display: inline-block; padding: 12px 16px; border-radius: 10px; background:#111; color:#fff; text-decoration:none; }
      .muted { opacity: 0.7; margin-top: 12px; }
    </style>
  </head>
  <body>
    <h3>Returning to Storyport…</h3>
    <p class="muted">If you are not redirected automatically, tap the button below.</p>
    <p><a class="btn" href="%s">Open in app</a></p>
    <p class="muted">Or continue on the web:</p>
    <p><a href="%s">%s</a></p>

    <script>
      window.location.href = %q;

      setTimeout(function() {
        window.location.href = %q;
      }, 1200);
    </script>
  </body>
</html>`,
		deepLink,
		webFallback,
		webFallback,
		deepLink,
		webFallback,
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}
