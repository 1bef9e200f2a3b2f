package mailer

import "embed"

const (
	FromName                     = "Storyport"
	maxRetries                   = 3
	PurchaseConfirmationTemplate = "purchase_confirmation.tmpl"
	DonationReceiptTemplate      = "donation_receipt.tmpl"
	UserWelcomeTemplate          = "user_welcome.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
