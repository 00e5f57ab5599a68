// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/domain/ports/adapter"
	"exam-prep-payments/internal/domain/ports/repository"
	"exam-prep-payments/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

const (
	MsgVerified         = "Payment verified successfully"
	MsgAlreadyProcessed = "Already processed"
	MsgEventIgnored     = "Event ignored"
)

type VerifyOutcome int

const (
	OutcomeCompleted VerifyOutcome = iota + 1
	OutcomeAlreadyProcessed
	OutcomeIgnored
)

func (o VerifyOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAlreadyProcessed:
		return "already_processed"
	case OutcomeIgnored:
		return "ignored"
	}
	return "unknown"
}

type CreateOrderInput struct {
	UserID             string
	Amount             decimal.Decimal
	Currency           string
	PlanName           string
	PlanDurationMonths int
	CouponCode         string
}

type OrderResult struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	KeyID       string
}

type VerifyResult struct {
	Outcome VerifyOutcome
	Message string
	OrderID string
}

type PaymentUseCase interface {
	// CreateOrder opens a gateway order and persists the pending record.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderResult, error)
	// Verify applies a proof of payment from any channel. Safe to call
	// concurrently and repeatedly for the same order.
	Verify(ctx context.Context, proof model.PaymentProof) (*VerifyResult, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error)
	// ReconcileSubscriptions retries extensions for completed payments whose
	// extension never committed. Returns how many were applied.
	ReconcileSubscriptions(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

type paymentUC struct {
	payments        repository.PaymentRepository
	profiles        repository.ProfileRepository
	gateway         adapter.PaymentGateway
	tm              repository.TransactionManager
	log             *zerolog.Logger
	defaultCurrency string

	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	mu      sync.Mutex
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	profiles repository.ProfileRepository,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
	defaultCurrency string,
) *paymentUC {
	if defaultCurrency == "" {
		defaultCurrency = model.DefaultCurrency
	}
	l := logger.With().Str("component", "payment_uc").Logger()
	return &paymentUC{
		payments:        payments,
		profiles:        profiles,
		gateway:         gateway,
		tm:              tm,
		log:             &l,
		defaultCurrency: model.NormalizeCurrency(defaultCurrency),
		now:             func() time.Time { return time.Now().UTC() },
		entropy:         ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (u *paymentUC) newReceipt() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return "rcpt_" + ulid.MustNew(ulid.Timestamp(u.now()), u.entropy).String()
}

func (u *paymentUC) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderResult, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !in.Amount.IsPositive() || strings.TrimSpace(in.PlanName) == "" || in.PlanDurationMonths <= 0 {
		metrics.IncOrder("invalid")
		return nil, fmt.Errorf("%w: %w: amount, planName and planDurationMonths must be positive", domain.ErrOrderCreationFailed, domain.ErrInvalidArgument)
	}
	currency := u.defaultCurrency
	if strings.TrimSpace(in.Currency) != "" {
		currency = model.NormalizeCurrency(in.Currency)
	}
	minor := model.ToMinorUnits(in.Amount)

	order, err := u.gateway.CreateOrder(ctx, adapter.OrderRequest{
		AmountMinor: minor,
		Currency:    currency,
		Receipt:     u.newReceipt(),
		Notes: map[string]string{
			"user_id":   in.UserID,
			"plan_name": in.PlanName,
		},
	})
	if err != nil {
		metrics.IncOrder("gateway_error")
		u.log.Error().Err(err).Str("gateway", u.gateway.Name()).Str("user_id", in.UserID).Msg("gateway rejected order")
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderCreationFailed, err.Error())
	}

	p, err := model.NewPendingPayment(in.UserID, order.ID, in.Amount, currency, in.PlanName, in.PlanDurationMonths, in.CouponCode)
	if err != nil {
		metrics.IncOrder("invalid")
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		metrics.IncOrder("store_error")
		u.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to persist pending payment")
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
	}

	metrics.IncOrder("ok")
	metrics.IncPayment(string(model.PaymentStatusPending))
	u.log.Info().Str("gateway", u.gateway.Name()).Str("order_id", order.ID).Str("user_id", in.UserID).Int64("amount_minor", minor).Str("currency", currency).Msg("order created")

	amount := order.AmountMinor
	if amount == 0 {
		amount = minor
	}
	if order.Currency != "" {
		currency = order.Currency
	}
	return &OrderResult{
		OrderID:     order.ID,
		AmountMinor: amount,
		Currency:    currency,
		KeyID:       u.gateway.KeyID(),
	}, nil
}

func (u *paymentUC) Verify(ctx context.Context, proof model.PaymentProof) (*VerifyResult, error) {
	var orderID, paymentID, signature string

	switch p := proof.(type) {
	case model.WebhookProof:
		if err := u.gateway.VerifyWebhookSignature(p.Payload, p.Signature); err != nil {
			return nil, err
		}
		ev, err := model.ParseWebhookEvent(p.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVerificationError, err)
		}
		if !ev.Actionable() {
			u.log.Debug().Str("event", ev.Event).Str("event_id", p.EventID).Msg("webhook event ignored")
			return &VerifyResult{Outcome: OutcomeIgnored, Message: MsgEventIgnored}, nil
		}
		orderID, paymentID = ev.OrderID(), ev.PaymentID()
	case model.JSONCallbackProof:
		orderID, paymentID, signature = p.OrderID, p.PaymentID, p.Signature
	case model.FormCallbackProof:
		orderID, paymentID, signature = p.OrderID, p.PaymentID, p.Signature
	case model.RedirectProof:
		orderID, paymentID, signature = p.OrderID, p.PaymentID, p.Signature
	default:
		return nil, fmt.Errorf("%w: unsupported proof %T", domain.ErrVerificationError, proof)
	}

	if proof.Channel() != model.ChannelWebhook {
		if err := u.gateway.VerifyPaymentSignature(orderID, paymentID, signature); err != nil {
			return nil, err
		}
	}
	if orderID == "" || paymentID == "" {
		return nil, domain.ErrMissingParameters
	}

	res, err := u.complete(ctx, proof.Channel(), orderID, paymentID, signature)
	if res != nil {
		res.OrderID = orderID
	}
	return res, err
}

func (u *paymentUC) complete(ctx context.Context, ch model.Channel, orderID, paymentID, signature string) (*VerifyResult, error) {
	log := u.log.With().Str("order_id", orderID).Str("channel", string(ch)).Logger()

	p, err := u.payments.FindByOrderID(ctx, repository.NoTX, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentRecordNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrVerificationError, err)
	}
	if p.IsCompleted() {
		log.Debug().Msg("payment already completed")
		return &VerifyResult{Outcome: OutcomeAlreadyProcessed, Message: MsgAlreadyProcessed}, nil
	}

	now := u.now()
	won, err := u.payments.CompleteIfPending(ctx, repository.NoTX, orderID, paymentID, signature, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVerificationError, err)
	}
	if !won {
		log.Debug().Msg("lost completion race")
		return &VerifyResult{Outcome: OutcomeAlreadyProcessed, Message: MsgAlreadyProcessed}, nil
	}

	metrics.IncPayment(string(model.PaymentStatusCompleted))
	metrics.AddPaymentRevenue(p.Currency, p.Amount)
	log.Info().Str("payment_id", paymentID).Msg("payment completed")

	if _, err := u.applySubscription(ctx, p.UserID, orderID, paymentID, p.PlanDurationMonths); err != nil {
		metrics.IncSubscriptionExtension("verify", false)
		log.Error().Err(err).Str("user_id", p.UserID).Str("payment_id", paymentID).
			Msg("subscription extension failed; payment stays completed and is queued for reconciliation")
		return nil, fmt.Errorf("%w: %w", domain.ErrSubscriptionUpdateFailed, err)
	}
	metrics.IncSubscriptionExtension("verify", true)
	return &VerifyResult{Outcome: OutcomeCompleted, Message: MsgVerified}, nil
}

// applySubscription claims the payment's extension and extends the profile in
// one transaction. A lost claim means someone else applied it.
func (u *paymentUC) applySubscription(ctx context.Context, userID, orderID, paymentRef string, months int) (bool, error) {
	var claimed bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		claimed, err = u.payments.ClaimSubscription(ctx, tx, orderID, u.now())
		if err != nil || !claimed {
			return err
		}
		expiry, err := u.profiles.ExtendSubscription(ctx, tx, userID, months, paymentRef)
		if err != nil {
			return err
		}
		u.log.Info().Str("user_id", userID).Str("order_id", orderID).Time("expiry", expiry).Msg("subscription extended")
		return nil
	})
	if err != nil {
		return false, err
	}
	if claimed {
		if err := u.profiles.Invalidate(ctx, userID); err != nil {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("profile cache invalidation failed")
		}
	}
	return claimed, nil
}

func (u *paymentUC) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return u.payments.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (u *paymentUC) ReconcileSubscriptions(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	pending, err := u.payments.ListUnappliedCompleted(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}
		if !p.NeedsSubscription() {
			continue
		}
		ref := p.GatewayOrderID
		if p.GatewayPaymentID != nil {
			ref = *p.GatewayPaymentID
		}
		ok, err := u.applySubscription(ctx, p.UserID, p.GatewayOrderID, ref, p.PlanDurationMonths)
		if err != nil {
			metrics.IncSubscriptionExtension("reconciler", false)
			u.log.Warn().Err(err).Str("order_id", p.GatewayOrderID).Msg("reconcile extension failed")
			continue
		}
		if ok {
			metrics.IncSubscriptionExtension("reconciler", true)
			applied++
		}
	}
	return applied, nil
}
