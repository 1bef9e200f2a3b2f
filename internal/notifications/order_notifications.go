package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/9ssi7/exponent"

	"storyport/internal/domain/storage"
)

// SendOrderPaidNotification alerts every admin device that a checkout session
// was confirmed and recorded as an order.
func SendOrderPaidNotification(ctx context.Context, push PushSender, store *storage.Container, orderRef string, amountCents int64, currency string) error {
	tokens, err := store.PushTokens.GetAdminTokens(ctx)
	if err != nil {
		return err
	}
	tokens = dedupe(tokens)
	if len(tokens) == 0 {
		return errors.New("no push tokens")
	}

	title := "New order paid"
	body := fmt.Sprintf("Order %s confirmed (%s %.2f)", orderRef, currency, float64(amountCents)/100)

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msg := &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			// data drives deep linking when the notification is tapped
			Data: map[string]string{
				"type":     "order_paid",
				"orderRef": orderRef,
				"screen":   "admin-orders-screen",
			},
		}
		msgs = append(msgs, msg)
	}

	_, err = push.Publish(ctx, msgs)
	return err
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
