package repository

import (
	"context"
	"time"

	"exam-prep-payments/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Save inserts a new record; a duplicate gateway order id is ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// FindByOrderID returns domain.ErrNotFound when no record exists.
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
	// CompleteIfPending flips pending -> completed in a single conditional
	// write. It returns false when another caller already completed the order.
	CompleteIfPending(ctx context.Context, tx Tx, orderID, paymentID, signature string, completedAt time.Time) (bool, error)
	// ClaimSubscription marks the subscription as applied if nobody has yet.
	// Callers run it in the same transaction as the extension itself.
	ClaimSubscription(ctx context.Context, tx Tx, orderID string, at time.Time) (bool, error)
	// ListUnappliedCompleted lists completed payments whose subscription
	// extension never committed, completed before olderThan.
	ListUnappliedCompleted(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Payment, error)
}
