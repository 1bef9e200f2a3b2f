package payments

import "context"

// Gateway defines a common interface for hosted-checkout payment providers.
// CreateSession opens a hosted payment session and returns the opaque session
// id plus the URL the buyer must be redirected to. GetSession reads the
// session back after the buyer returns; it is the source of truth for whether
// payment actually completed.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, sessionID string) (SessionDetails, error)
}
