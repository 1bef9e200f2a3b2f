package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
)

// PushSender abstracts the push transport. The admin order alerts are the
// only producer, so the interface stays tied to the exponent SDK types.
type PushSender interface {
	Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error)
	PublishSingle(ctx context.Context, msg *exponent.Message) ([]*exponent.MessageResponse, error)
}
