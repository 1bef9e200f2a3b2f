package main

import (
	"errors"
	"net/http"

	"storyport/internal/cart"
	"storyport/internal/checkout"
)

// CheckoutSessionResponse points the storefront at the processor's hosted
// payment page.
type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// SignInRequiredResponse is returned when checkout is attempted without
// authentication. The cart has already been snapshotted server-side; after
// sign-in it is rebuilt under the user, so the client only needs to redirect.
type SignInRequiredResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	RedirectTo string `json:"redirect_to"`
}

// startCheckoutHandler godoc
//
//	@Summary		Start checkout for the current cart
//	@Description	Signed-in buyers get a hosted payment URL. Anonymous buyers get their cart snapshotted and a 401 telling the client to route through sign-in; the cart survives the detour.
//	@Tags			checkout
//	@Produce		json
//	@Success		200	{object}	CheckoutSessionResponse
//	@Failure		400	{object}	ErrorBadRequestResponse		"Empty cart or invalid line"
//	@Failure		401	{object}	SignInRequiredResponse		"Sign-in required; cart snapshotted"
//	@Failure		409	{object}	ErrorBadRequestResponse		"A checkout for this session is already in flight"
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Router			/store/checkout [post]
func (app *application) startCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := getUserFromContext(r)

	if user == nil {
		// Anonymous attempt: park the cart in the snapshot slot, then send
		// the client through sign-in.
		token, err := app.cartToken(r)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		c, err := app.carts.Load(ctx, token)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if c.IsEmpty() {
			app.badRequestResponse(w, r, cart.ErrEmptyCart)
			return
		}

		if err := app.carts.Snapshot(ctx, token, c); err != nil {
			app.internalServerError(w, r, err)
			return
		}

		app.logger.Infow("checkout deferred for sign-in", "session_token", token, "items", len(c.Items))

		writeJSON(w, http.StatusUnauthorized, SignInRequiredResponse{
			Success:    false,
			Message:    "sign in to complete your purchase",
			Status:     http.StatusUnauthorized,
			RedirectTo: "/login",
		})
		return
	}

	token := userCartToken(user.ID)

	c, err := app.carts.Load(ctx, token)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	session, err := app.checkout.Submit(ctx, token, c, app.config.checkout.currency)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrEmptyCart), errors.Is(err, checkout.ErrValidation):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, checkout.ErrCheckoutInFlight):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, CheckoutSessionResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// startDonationHandler godoc
//
//	@Summary		Start a donation checkout
//	@Description	Opens a hosted session for a one-time or monthly recurring donation. Donations do not require sign-in and do not touch the cart.
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		checkout.DonationRequest	true	"Donation amount in minor units, optional note, recurring flag"
//	@Success		200		{object}	CheckoutSessionResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		409		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/store/donations [post]
func (app *application) startDonationHandler(w http.ResponseWriter, r *http.Request) {
	token, err := app.cartToken(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload checkout.DonationRequest
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	session, err := app.checkout.SubmitDonation(r.Context(), token, payload)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrValidation):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, checkout.ErrCheckoutInFlight):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, CheckoutSessionResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}
