package payments

type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

// LineItem is the wire shape submitted to the processor: integer minor units,
// image already normalized (or dropped) by the checkout initiator.
type LineItem struct {
	ID              string
	Name            string
	Description     string
	UnitAmountMinor int64
	Quantity        int
	ImageURL        string
}

type SessionRequest struct {
	Currency string
	Mode     Mode
	Items    []LineItem

	// RecurringInterval is set only for subscription mode (e.g. "month").
	RecurringInterval string

	// ClientReference ties the processor session back to our cart/session.
	ClientReference string
	CustomerEmail   string
}

type Session struct {
	ID  string
	URL string
}

// SessionDetails is what the processor reports after the buyer returns.
type SessionDetails struct {
	ID               string
	PaymentStatus    string
	CustomerEmail    string
	CustomerName     string
	AmountTotalMinor int64
	Currency         string
	Items            []LineItem
}

func (d SessionDetails) Paid() bool {
	return d.PaymentStatus == "paid"
}
