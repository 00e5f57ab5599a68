package repository

import (
	"context"
	"time"

	"exam-prep-payments/internal/domain/model"
)

// ProfileRepository is the account store's subscription surface.
type ProfileRepository interface {
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Profile, error)
	// ExtendSubscription is not idempotent: each call adds months. Callers
	// gate it so it runs at most once per completed payment.
	ExtendSubscription(ctx context.Context, tx Tx, userID string, months int, paymentRef string) (time.Time, error)
	// Invalidate drops any cached copy of the profile. Call it after the
	// transaction that extended the subscription has committed.
	Invalidate(ctx context.Context, userID string) error
}
