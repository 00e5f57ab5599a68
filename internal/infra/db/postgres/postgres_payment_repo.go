package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, gateway_order_id, gateway_payment_id, gateway_signature, amount::text, currency,
  plan_name, plan_duration_months, coupon_code, status, created_at, completed_at, subscription_applied_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, gateway_order_id, gateway_payment_id, gateway_signature, amount, currency,
  plan_name, plan_duration_months, coupon_code, status, created_at, completed_at, subscription_applied_at
) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10,$11,$12,$13,$14);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.GatewayOrderID, p.GatewayPaymentID, p.GatewaySignature, p.Amount.String(), p.Currency,
		p.PlanName, p.PlanDurationMonths, p.CouponCode, string(p.Status), p.CreatedAt, p.CompletedAt, p.SubscriptionAppliedAt)
	if err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// CompleteIfPending is the single arbitration point between racing channels.
func (r *paymentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, orderID, paymentID, signature string, completedAt time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status = 'completed',
       gateway_payment_id = $2,
       gateway_signature = $3,
       completed_at = $4
 WHERE gateway_order_id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, paymentID, signature, completedAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) ClaimSubscription(ctx context.Context, tx repository.Tx, orderID string, at time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET subscription_applied_at = $2
 WHERE gateway_order_id = $1
   AND status = 'completed'
   AND subscription_applied_at IS NULL;`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, at)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListUnappliedCompleted(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + `
  FROM payments
 WHERE status = 'completed'
   AND subscription_applied_at IS NULL
   AND completed_at < $1
 ORDER BY completed_at ASC
 LIMIT $2;`
	return r.queryMany(ctx, tx, q, olderThan, limit)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT ` + paymentColumns + `
  FROM payments
 WHERE user_id = $1
 ORDER BY created_at DESC
 LIMIT $2;`
	return r.queryMany(ctx, tx, q, userID, limit)
}

func (r *paymentRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p      model.Payment
		amount string
		status string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.GatewaySignature, &amount, &p.Currency,
		&p.PlanName, &p.PlanDurationMonths, &p.CouponCode, &status, &p.CreatedAt, &p.CompletedAt, &p.SubscriptionAppliedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	p.Amount = d
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
