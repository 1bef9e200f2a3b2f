package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func completeConfig() config {
	return config{
		frontendURL: "https://storyport.example",
		db:          dbConfig{addr: "postgres://localhost/storyport"},
		auth: authConfig{
			token: tokenConfig{
				secret:        "access-secret",
				refreshSecret: "refresh-secret",
			},
		},
		checkout: checkoutConfig{
			stripeSecret: "sk_test_123",
			successURL:   "https://storyport.example/checkout/return?result=success",
			cancelURL:    "https://storyport.example/checkout/return?result=cancel",
			orderRefSalt: "salt",
		},
	}
}

func TestMissingRequiredConfigAllPresent(t *testing.T) {
	assert.Empty(t, missingRequiredConfig(completeConfig()))
}

func TestMissingRequiredConfigNamesEachAbsentVariable(t *testing.T) {
	cfg := completeConfig()
	cfg.checkout.stripeSecret = ""
	cfg.auth.token.secret = ""
	cfg.frontendURL = ""

	missing := missingRequiredConfig(cfg)

	assert.ElementsMatch(t, []string{"STRIPE_SECRET_KEY", "AUTH_TOKEN_SECRET", "FRONTEND_URL"}, missing)
}
