package checkout

import (
	"context"
	"fmt"

	"storyport/internal/payments"
)

const (
	// MinDonationMinor is the smallest accepted donation, in minor units.
	MinDonationMinor = 500
	maxNoteLength    = 500
)

type DonationRequest struct {
	AmountMinor int64  `json:"amount" validate:"required"`
	Note        string `json:"note,omitempty" validate:"omitempty,max=500"`
	IsRecurring bool   `json:"isRecurring"`
}

func (d DonationRequest) validate() error {
	if d.AmountMinor < MinDonationMinor {
		return fmt.Errorf("%w: minimum donation is %d minor units", ErrValidation, MinDonationMinor)
	}
	if len(d.Note) > maxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrValidation, maxNoteLength)
	}
	return nil
}

// SubmitDonation opens a hosted session for a one-time or monthly recurring
// donation. Donations are always USD and bypass catalog pricing entirely.
func (i *Initiator) SubmitDonation(ctx context.Context, sessionKey string, req DonationRequest) (payments.Session, error) {
	if err := req.validate(); err != nil {
		return payments.Session{}, err
	}

	if err := i.begin(sessionKey); err != nil {
		return payments.Session{}, err
	}
	defer i.end(sessionKey)

	name := "One-time donation"
	mode := payments.ModePayment
	interval := ""
	if req.IsRecurring {
		name = "Monthly donation"
		mode = payments.ModeSubscription
		interval = "month"
	}

	session, err := i.gateway.CreateSession(ctx, payments.SessionRequest{
		Currency:          "USD",
		Mode:              mode,
		RecurringInterval: interval,
		ClientReference:   sessionKey,
		Items: []payments.LineItem{{
			ID:              "donation",
			Name:            name,
			Description:     req.Note,
			UnitAmountMinor: req.AmountMinor,
			Quantity:        1,
		}},
	})
	if err != nil {
		return payments.Session{}, fmt.Errorf("create donation session: %w", err)
	}

	i.logger.Infow("donation session created", "session_id", session.ID, "amount_minor", req.AmountMinor, "recurring", req.IsRecurring)
	return session, nil
}
