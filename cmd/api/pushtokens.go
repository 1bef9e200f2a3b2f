package main

import (
	"encoding/json"
	"net/http"
)

type PushTokenPayload struct {
	Token      string          `json:"token" validate:"required,max=255"`
	DeviceInfo json.RawMessage `json:"device_info,omitempty"`
}

// registerPushTokenHandler godoc
//
//	@Summary		Register an Expo push token
//	@Description	Upserts the device token for the signed-in user. Admin devices receive new-order alerts through these tokens.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		PushTokenPayload	true	"Expo push token and optional device info"
//	@Success		204		{string}	string				"No Content"
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/users/push-token [post]
func (app *application) registerPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload PushTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	deviceInfo := payload.DeviceInfo
	if len(deviceInfo) == 0 {
		deviceInfo = json.RawMessage(`{}`)
	}

	if err := app.store.PushTokens.AddOrUpdatePushToken(r.Context(), user.ID, payload.Token, deviceInfo); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type RemovePushTokenPayload struct {
	Token string `json:"token" validate:"required,max=255"`
}

// removePushTokenHandler godoc
//
//	@Summary		Remove an Expo push token
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RemovePushTokenPayload	true	"Expo push token"
//	@Success		204		{string}	string					"No Content"
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/users/push-token [delete]
func (app *application) removePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload RemovePushTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.PushTokens.RemovePushToken(r.Context(), user.ID, payload.Token); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
