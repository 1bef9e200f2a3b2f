package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storyport/internal/mailer"
	"storyport/internal/payments"
	"storyport/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGateway struct {
	mu      sync.Mutex
	details payments.SessionDetails
	err     error
	calls   int
}

func (m *mockGateway) CreateSession(ctx context.Context, req payments.SessionRequest) (payments.Session, error) {
	return payments.Session{}, errors.New("not used")
}

func (m *mockGateway) GetSession(ctx context.Context, sessionID string) (payments.SessionDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return payments.SessionDetails{}, m.err
	}
	return m.details, nil
}

type mockMailer struct {
	mu        sync.Mutex
	sends     int
	err       error
	to        []string
	templates []string
}

func (m *mockMailer) Send(templateFile, username, email string, data any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.sends++
	m.to = append(m.to, email)
	m.templates = append(m.templates, templateFile)
	return 200, nil
}

type staticRefs struct{ ref string }

func (s staticRefs) Generate() (string, error) { return s.ref, nil }

func paidDetails() payments.SessionDetails {
	return payments.SessionDetails{
		ID:               "cs_123",
		PaymentStatus:    "paid",
		CustomerEmail:    "reader@example.com",
		CustomerName:     "Reader",
		AmountTotalMinor: 2999,
		Currency:         "USD",
		Items: []payments.LineItem{
			{ID: "book-a", Name: "Book A", UnitAmountMinor: 1999, Quantity: 1},
			{ID: "book-b", Name: "Book B", UnitAmountMinor: 500, Quantity: 2},
		},
	}
}

func newTestReconciler(gw *mockGateway, mail *mockMailer) *Reconciler {
	guard := session.NewMemoryStore(time.Hour)
	return New(gw, mail, guard, staticRefs{ref: "SP-TEST1234"}, DefaultDedupWindow, zap.NewNop().Sugar())
}

func TestConfirmSendsEmailOnce(t *testing.T) {
	gw := &mockGateway{details: paidDetails()}
	mail := &mockMailer{}
	r := newTestReconciler(gw, mail)

	ctx := context.Background()

	outcome, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)
	assert.Equal(t, StateSent, outcome.State)
	assert.False(t, outcome.Deduped)
	assert.Equal(t, "SP-TEST1234", outcome.OrderRef)
	assert.Equal(t, "cs_123", outcome.Details.ID)
	assert.Equal(t, 1, mail.sends)
	assert.Equal(t, []string{"reader@example.com"}, mail.to)
}

func TestConfirmDedupesWithinWindow(t *testing.T) {
	gw := &mockGateway{details: paidDetails()}
	mail := &mockMailer{}
	r := newTestReconciler(gw, mail)

	base := time.Now()
	r.now = func() time.Time { return base }

	ctx := context.Background()

	_, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)

	// Second confirm inside the window: short-circuit, no gateway call,
	// no second email.
	r.now = func() time.Time { return base.Add(3 * time.Second) }
	outcome, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)
	assert.Equal(t, StateSent, outcome.State)
	assert.True(t, outcome.Deduped)
	assert.Empty(t, outcome.OrderRef)
	assert.Equal(t, 1, mail.sends)
	assert.Equal(t, 1, gw.calls)
}

func TestConfirmResendsAfterWindowExpires(t *testing.T) {
	gw := &mockGateway{details: paidDetails()}
	mail := &mockMailer{}
	r := newTestReconciler(gw, mail)

	base := time.Now()
	r.now = func() time.Time { return base }

	ctx := context.Background()

	_, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(DefaultDedupWindow + time.Second) }
	outcome, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)
	assert.False(t, outcome.Deduped)
	assert.Equal(t, 2, mail.sends)
}

func TestConfirmUnpaidSessionFailsWithoutGuard(t *testing.T) {
	details := paidDetails()
	details.PaymentStatus = "unpaid"
	gw := &mockGateway{details: details}
	mail := &mockMailer{}
	r := newTestReconciler(gw, mail)

	ctx := context.Background()

	_, err := r.Confirm(ctx, "anon-1", "cs_123")
	assert.ErrorIs(t, err, ErrPaymentIncomplete)
	assert.Equal(t, 0, mail.sends)

	// Payment completes; a reload retries cleanly because no guard was
	// written on the failure.
	gw.mu.Lock()
	gw.details.PaymentStatus = "paid"
	gw.mu.Unlock()

	outcome, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)
	assert.Equal(t, StateSent, outcome.State)
	assert.False(t, outcome.Deduped)
	assert.Equal(t, 1, mail.sends)
}

func TestConfirmMailerFailureLeavesGuardUnwritten(t *testing.T) {
	gw := &mockGateway{details: paidDetails()}
	mail := &mockMailer{err: errors.New("smtp down")}
	r := newTestReconciler(gw, mail)

	ctx := context.Background()

	_, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.Error(t, err)

	// Mailer recovers; the retry dispatches instead of deduping.
	mail.mu.Lock()
	mail.err = nil
	mail.mu.Unlock()

	outcome, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)
	assert.Equal(t, StateSent, outcome.State)
	assert.False(t, outcome.Deduped)
	assert.Equal(t, 1, mail.sends)
}

func TestConfirmGuardIsScopedToSession(t *testing.T) {
	gw := &mockGateway{details: paidDetails()}
	mail := &mockMailer{}
	r := newTestReconciler(gw, mail)

	ctx := context.Background()

	_, err := r.Confirm(ctx, "anon-1", "cs_123")
	require.NoError(t, err)

	// A different browser session confirming the same checkout id is not
	// suppressed by the first session's guard.
	outcome, err := r.Confirm(ctx, "anon-2", "cs_123")
	require.NoError(t, err)
	assert.False(t, outcome.Deduped)
	assert.Equal(t, 2, mail.sends)
}

func TestConfirmDonationUsesReceiptTemplate(t *testing.T) {
	details := payments.SessionDetails{
		ID:               "cs_don",
		PaymentStatus:    "paid",
		CustomerEmail:    "giver@example.com",
		CustomerName:     "Giver",
		AmountTotalMinor: 500,
		Currency:         "USD",
		Items: []payments.LineItem{
			{ID: "donation", Name: "Monthly donation", Description: "keep going", UnitAmountMinor: 500, Quantity: 1},
		},
	}
	gw := &mockGateway{details: details}
	mail := &mockMailer{}
	r := newTestReconciler(gw, mail)

	outcome, err := r.Confirm(context.Background(), "anon-1", "cs_don")
	require.NoError(t, err)
	assert.Equal(t, StateSent, outcome.State)
	require.Len(t, mail.templates, 1)
	assert.Equal(t, mailer.DonationReceiptTemplate, mail.templates[0])
}
