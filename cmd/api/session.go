package main

import (
	"net/http"

	"github.com/google/uuid"
)

// createSessionHandler godoc
//
//	@Summary		Start an anonymous browsing session
//	@Description	Issues an opaque session token. Send it back in the X-Session-Token header on cart and checkout calls.
//	@Tags			session
//	@Produce		json
//	@Success		201	{object}	map[string]string	"Session token"
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Router			/session [post]
func (app *application) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	token := uuid.New().String()

	if err := app.jsonResponse(w, http.StatusCreated, map[string]string{
		"session_token": token,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// healthCheckHandler godoc
//
//	@Summary		Health check
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "ok",
		"env":     app.config.env,
		"version": version,
	}

	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}
