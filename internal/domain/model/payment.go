package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"exam-prep-payments/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // order opened at the gateway; awaiting proof of payment
	PaymentStatusCompleted PaymentStatus = "completed" // proof accepted; terminal
	PaymentStatusFailed    PaymentStatus = "failed"    // reserved; never written by the verifier
)

// DefaultCurrency is used when the client omits one.
const DefaultCurrency = "INR"

// Payment is one order attempt. GatewayOrderID is the correlation key shared
// by every verification channel.
type Payment struct {
	ID                 string          // UUID
	UserID             string          // owner, immutable
	GatewayOrderID     string          // unique
	GatewayPaymentID   *string         // set on completion
	GatewaySignature   *string         // set on completion; empty for webhook completions
	Amount             decimal.Decimal // major currency unit
	Currency           string          // ISO code
	PlanName           string
	PlanDurationMonths int
	CouponCode         *string
	Status             PaymentStatus
	CreatedAt          time.Time
	CompletedAt        *time.Time
	// SubscriptionAppliedAt is set in the same transaction as the
	// subscription extension; nil on a completed payment means the
	// extension still has to happen.
	SubscriptionAppliedAt *time.Time
}

// NewPendingPayment validates order metadata and returns a pending record.
func NewPendingPayment(userID, orderID string, amount decimal.Decimal, currency, planName string, months int, coupon string) (*Payment, error) {
	if userID == "" || orderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !amount.IsPositive() || strings.TrimSpace(planName) == "" || months <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	p := &Payment{
		ID:                 uuid.NewString(),
		UserID:             userID,
		GatewayOrderID:     orderID,
		Amount:             amount,
		Currency:           NormalizeCurrency(currency),
		PlanName:           strings.TrimSpace(planName),
		PlanDurationMonths: months,
		Status:             PaymentStatusPending,
		CreatedAt:          time.Now().UTC(),
	}
	if c := strings.TrimSpace(coupon); c != "" {
		p.CouponCode = &c
	}
	return p, nil
}

func (p *Payment) IsCompleted() bool { return p.Status == PaymentStatusCompleted }

// NeedsSubscription reports a completed payment whose extension never committed.
func (p *Payment) NeedsSubscription() bool {
	return p.IsCompleted() && p.SubscriptionAppliedAt == nil
}

// ToMinorUnits converts a major-unit amount to the gateway's integer
// representation: round(amount * 100), half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func NormalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}
