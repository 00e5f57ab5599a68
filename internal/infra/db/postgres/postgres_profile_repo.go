package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	const q = `SELECT id, COALESCE(subscription, 'free'), subscription_expiry FROM profiles WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	p := &model.Profile{}
	if err := row.Scan(&p.UserID, &p.Subscription, &p.SubscriptionExpiry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// Invalidate is a no-op; the table is the source of truth.
func (r *profileRepo) Invalidate(ctx context.Context, userID string) error { return nil }

// ExtendSubscription calls the account store's extend_subscription function
// and returns the new expiry.
func (r *profileRepo) ExtendSubscription(ctx context.Context, tx repository.Tx, userID string, months int, paymentRef string) (time.Time, error) {
	const q = `SELECT extend_subscription($1::uuid, $2::int, $3::text);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, months, paymentRef)
	if err != nil {
		return time.Time{}, err
	}
	var expiry time.Time
	if err := row.Scan(&expiry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, domain.ErrOperationFailed
	}
	return expiry, nil
}
