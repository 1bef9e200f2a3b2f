package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storyport/internal/mailer"
	"storyport/internal/payments"
	"storyport/internal/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State of one checkout session's confirmation, scoped to one browser
// session (tab): Unconfirmed -> Sending -> Sent | Failed.
type State string

const (
	StateUnconfirmed State = "unconfirmed"
	StateSending     State = "sending"
	StateSent        State = "sent"
	StateFailed      State = "failed"
)

// DefaultDedupWindow is how long a Sent record suppresses a repeat dispatch.
const DefaultDedupWindow = 5 * time.Second

var ErrPaymentIncomplete = errors.New("payment has not completed")

// RefGenerator mints the human-facing order reference included in the
// confirmation email and stored on the order row.
type RefGenerator interface {
	Generate() (string, error)
}

type guardRecord struct {
	Sent      bool      `json:"sent"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome reports where a confirmation attempt ended up. Deduped means the
// guard short-circuited: no network call was made and Details/OrderRef are
// empty.
type Outcome struct {
	State    State
	Deduped  bool
	OrderRef string
	Details  payments.SessionDetails
}

// Reconciler confirms payment after the buyer returns from the hosted page
// and dispatches the confirmation email at most once per session id within
// the dedup window. Payment status is always re-read from the gateway; the
// redirect alone is never trusted.
type Reconciler struct {
	gateway payments.Gateway
	mail    mailer.Client
	guard   session.Store
	refs    RefGenerator
	window  time.Duration
	logger  *zap.SugaredLogger

	sfg singleflight.Group
	now func() time.Time
}

func New(gateway payments.Gateway, mail mailer.Client, guard session.Store, refs RefGenerator, window time.Duration, logger *zap.SugaredLogger) *Reconciler {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Reconciler{
		gateway: gateway,
		mail:    mail,
		guard:   guard,
		refs:    refs,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// Confirm runs the state machine for one checkout session id.
//
// Guard first: a Sent record younger than the window transitions straight to
// Sent with no network call. Otherwise the gateway session is fetched; an
// unpaid session fails without writing the guard so a reload retries. A paid
// session dispatches the email, then writes the guard. Concurrent confirms
// for the same id collapse into a single flight.
func (r *Reconciler) Confirm(ctx context.Context, token, sessionID string) (Outcome, error) {
	if sent, ok := r.readGuard(ctx, token, sessionID); ok && sent {
		r.logger.Infow("confirmation suppressed by dedup guard", "session_id", sessionID)
		return Outcome{State: StateSent, Deduped: true}, nil
	}

	v, err, _ := r.sfg.Do(token+"|"+sessionID, func() (any, error) {
		return r.confirmOnce(ctx, token, sessionID)
	})
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	return v.(Outcome), nil
}

func (r *Reconciler) confirmOnce(ctx context.Context, token, sessionID string) (Outcome, error) {
	details, err := r.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch checkout session: %w", err)
	}

	if !details.Paid() {
		return Outcome{}, fmt.Errorf("%w: status=%s", ErrPaymentIncomplete, details.PaymentStatus)
	}

	ref, err := r.refs.Generate()
	if err != nil {
		return Outcome{}, fmt.Errorf("generate order ref: %w", err)
	}

	if err := r.sendConfirmation(details, ref); err != nil {
		// Guard stays unwritten so the buyer can reload and retry.
		return Outcome{}, err
	}

	r.writeGuard(ctx, token, sessionID)

	return Outcome{State: StateSent, OrderRef: ref, Details: details}, nil
}

func (r *Reconciler) sendConfirmation(details payments.SessionDetails, ref string) error {
	username := details.CustomerName
	if username == "" {
		username = details.CustomerEmail
	}

	if isDonation(details) {
		item := details.Items[0]
		vars := struct {
			Username  string
			Recurring bool
			Amount    string
			Note      string
		}{
			Username:  username,
			Recurring: item.Name == "Monthly donation",
			Amount:    formatMinor(details.AmountTotalMinor, details.Currency),
			Note:      item.Description,
		}

		status, err := r.mail.Send(mailer.DonationReceiptTemplate, username, details.CustomerEmail, vars)
		if err != nil {
			return fmt.Errorf("send donation receipt email: %w", err)
		}

		r.logger.Infow("donation receipt sent", "session_id", details.ID, "order_ref", ref, "status_code", status)
		return nil
	}

	type emailLine struct {
		Name       string
		Quantity   int
		UnitAmount string
	}

	lines := make([]emailLine, 0, len(details.Items))
	for _, item := range details.Items {
		lines = append(lines, emailLine{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitAmount: formatMinor(item.UnitAmountMinor, details.Currency),
		})
	}

	vars := struct {
		Username string
		OrderRef string
		Items    []emailLine
		Total    string
	}{
		Username: username,
		OrderRef: ref,
		Items:    lines,
		Total:    formatMinor(details.AmountTotalMinor, details.Currency),
	}

	status, err := r.mail.Send(mailer.PurchaseConfirmationTemplate, username, details.CustomerEmail, vars)
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	r.logger.Infow("confirmation email sent", "session_id", details.ID, "order_ref", ref, "status_code", status)
	return nil
}

func (r *Reconciler) readGuard(ctx context.Context, token, sessionID string) (sent, ok bool) {
	data, err := r.guard.Get(ctx, token, guardKey(sessionID))
	if err != nil {
		if err != session.ErrNotFound {
			r.logger.Warnw("dedup guard read failed", "session_id", sessionID, "error", err)
		}
		return false, false
	}

	var rec guardRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		r.logger.Warnw("corrupt dedup guard dropped", "session_id", sessionID, "error", err)
		_ = r.guard.Delete(ctx, token, guardKey(sessionID))
		return false, false
	}

	if r.now().Sub(rec.Timestamp) >= r.window {
		return false, false
	}
	return rec.Sent, true
}

// writeGuard is best effort: losing it risks a duplicate email, not a lost
// order.
func (r *Reconciler) writeGuard(ctx context.Context, token, sessionID string) {
	data, _ := json.Marshal(guardRecord{Sent: true, Timestamp: r.now()})
	if err := r.guard.Set(ctx, token, guardKey(sessionID), data); err != nil {
		r.logger.Errorw("dedup guard write failed", "session_id", sessionID, "error", err)
	}
}

func isDonation(details payments.SessionDetails) bool {
	return len(details.Items) == 1 && details.Items[0].ID == "donation"
}

func guardKey(sessionID string) string {
	return "emailSent:" + sessionID
}

func formatMinor(minor int64, currency string) string {
	major := decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
	return fmt.Sprintf("%s %s", major.StringFixed(2), currency)
}
