package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"storyport/internal/session"

	"go.uber.org/zap"
)

const (
	// stateKey holds the live cart for a session.
	stateKey = "cart"
	// SnapshotKey is the single snapshot slot written when checkout is
	// attempted unauthenticated, consumed once after sign-in.
	SnapshotKey = "cartState"
)

// Service persists carts in the session store and owns the snapshot/restore
// bridge that carries a cart across the sign-in detour.
type Service struct {
	sessions session.Store
	logger   *zap.SugaredLogger
}

func NewService(sessions session.Store, logger *zap.SugaredLogger) *Service {
	return &Service{sessions: sessions, logger: logger}
}

// Load returns the session's cart. A missing slot yields an empty cart.
// A corrupt slot is dropped and logged, never surfaced to the caller.
func (s *Service) Load(ctx context.Context, token string) (*Cart, error) {
	data, err := s.sessions.Get(ctx, token, stateKey)
	if err != nil {
		if err == session.ErrNotFound {
			return &Cart{}, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warnw("corrupt cart state dropped", "token", token, "error", err)
		_ = s.sessions.Delete(ctx, token, stateKey)
		return &Cart{}, nil
	}
	return &c, nil
}

func (s *Service) Save(ctx context.Context, token string, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.sessions.Set(ctx, token, stateKey, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token, stateKey)
}

// Snapshot serializes the cart into the session's snapshot slot before the
// caller redirects to sign-in.
func (s *Service) Snapshot(ctx context.Context, token string, c *Cart) error {
	data, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.sessions.Set(ctx, token, SnapshotKey, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Restore consumes the snapshot written under fromToken and rebuilds the cart
// under toToken. It fires on the signed-out-to-signed-in edge, once: the slot
// is deleted after every attempt, including a corrupt payload (which is
// logged and abandoned). Returns whether a cart was restored.
func (s *Service) Restore(ctx context.Context, fromToken, toToken string) (bool, error) {
	data, err := s.sessions.Get(ctx, fromToken, SnapshotKey)
	if err != nil {
		if err == session.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("read snapshot: %w", err)
	}

	// Consume the slot no matter what happens next, so a corrupt snapshot
	// cannot strand itself and a second sign-in cannot replay the restore.
	if derr := s.sessions.Delete(ctx, fromToken, SnapshotKey); derr != nil {
		s.logger.Errorw("failed to clear snapshot slot", "token", fromToken, "error", derr)
	}

	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warnw("corrupt cart snapshot abandoned", "token", fromToken, "error", err)
		return false, nil
	}

	restored := &Cart{}
	for _, item := range items {
		restored.AddItem(item)
	}

	if err := s.Save(ctx, toToken, restored); err != nil {
		return false, err
	}
	return true, nil
}
