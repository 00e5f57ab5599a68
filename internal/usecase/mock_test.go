//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/domain/ports/adapter"
	"exam-prep-payments/internal/domain/ports/repository"
	"exam-prep-payments/internal/infra/security"
)

const (
	testKeySecret     = "key_secret_test"
	testWebhookSecret = "whsec_test"
)

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway (adapter) ----

// MockPaymentGateway signs and verifies with real HMACs over the test secrets.
type MockPaymentGateway struct {
	mu     sync.Mutex
	Orders []adapter.OrderRequest

	CreateOrderFunc func(ctx context.Context, req adapter.OrderRequest) (*adapter.GatewayOrder, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string  { return "mockpay" }
func (m *MockPaymentGateway) KeyID() string { return "rzp_test_mock" }

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req adapter.OrderRequest) (*adapter.GatewayOrder, error) {
	m.mu.Lock()
	m.Orders = append(m.Orders, req)
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return &adapter.GatewayOrder{ID: "order_abc", AmountMinor: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (m *MockPaymentGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if !security.VerifyHMACSHA256Hex([]byte(testKeySecret), security.PaymentSignaturePayload(orderID, paymentID), signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (m *MockPaymentGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	if !security.VerifyHMACSHA256Hex([]byte(testWebhookSecret), payload, signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func signPayment(orderID, paymentID string) string {
	return security.HMACSHA256Hex([]byte(testKeySecret), security.PaymentSignaturePayload(orderID, paymentID))
}

func signWebhook(payload []byte) string {
	return security.HMACSHA256Hex([]byte(testWebhookSecret), payload)
}

// =============================
// Repositories
// =============================

// mockTx collects undo steps; MockTxManager runs them when fn fails.
type mockTx struct {
	rollbacks []func()
}

func (t *mockTx) onRollback(f func()) { t.rollbacks = append(t.rollbacks, f) }

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu      sync.Mutex
	byOrder map[string]*model.Payment
	Writes  int

	SaveFunc                   func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByOrderIDFunc          func(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error)
	CompleteIfPendingFunc      func(ctx context.Context, tx repository.Tx, orderID, paymentID, signature string, at time.Time) (bool, error)
	ListUnappliedCompletedFunc func(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{byOrder: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byOrder[p.GatewayOrderID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.byOrder[p.GatewayOrderID] = &cp
	r.Writes++
	return nil
}

func (r *MockPaymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	if r.FindByOrderIDFunc != nil {
		return r.FindByOrderIDFunc(ctx, tx, orderID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, orderID, paymentID, signature string, at time.Time) (bool, error) {
	if r.CompleteIfPendingFunc != nil {
		return r.CompleteIfPendingFunc(ctx, tx, orderID, paymentID, signature, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusCompleted
	p.GatewayPaymentID = &paymentID
	p.GatewaySignature = &signature
	p.CompletedAt = &at
	r.Writes++
	return true, nil
}

func (r *MockPaymentRepo) ClaimSubscription(ctx context.Context, tx repository.Tx, orderID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok || !p.NeedsSubscription() {
		return false, nil
	}
	p.SubscriptionAppliedAt = &at
	r.Writes++
	if mt, ok := tx.(*mockTx); ok {
		mt.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			p.SubscriptionAppliedAt = nil
		})
	}
	return true, nil
}

func (r *MockPaymentRepo) ListUnappliedCompleted(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if r.ListUnappliedCompletedFunc != nil {
		return r.ListUnappliedCompletedFunc(ctx, tx, olderThan, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byOrder {
		if p.NeedsSubscription() && p.CompletedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byOrder {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) get(orderID string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byOrder[orderID]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// ---- Mock ProfileRepository ----

type extendCall struct {
	UserID     string
	Months     int
	PaymentRef string
}

type MockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	Extends  []extendCall
	Dropped  []string

	ExtendSubscriptionFunc func(ctx context.Context, tx repository.Tx, userID string, months int, ref string) (time.Time, error)
	InvalidateFunc         func(ctx context.Context, userID string) error
}

var _ repository.ProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{profiles: map[string]*model.Profile{}}
}

func (r *MockProfileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockProfileRepo) ExtendSubscription(ctx context.Context, tx repository.Tx, userID string, months int, ref string) (time.Time, error) {
	if r.ExtendSubscriptionFunc != nil {
		return r.ExtendSubscriptionFunc(ctx, tx, userID, months, ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Extends = append(r.Extends, extendCall{UserID: userID, Months: months, PaymentRef: ref})
	p, ok := r.profiles[userID]
	if !ok {
		p = &model.Profile{UserID: userID}
		r.profiles[userID] = p
	}
	base := time.Now()
	if p.SubscriptionExpiry != nil && p.SubscriptionExpiry.After(base) {
		base = *p.SubscriptionExpiry
	}
	exp := base.AddDate(0, months, 0)
	p.Subscription = model.SubscriptionPremium
	p.SubscriptionExpiry = &exp
	return exp, nil
}

func (r *MockProfileRepo) Invalidate(ctx context.Context, userID string) error {
	if r.InvalidateFunc != nil {
		if err := r.InvalidateFunc(ctx, userID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dropped = append(r.Dropped, userID)
	return nil
}

func (r *MockProfileRepo) extendCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Extends)
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	Commits atomic.Int64

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn against a mockTx and replays its undo steps when fn fails.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	tx := &mockTx{}
	if err := fn(ctx, tx); err != nil {
		for i := len(tx.rollbacks) - 1; i >= 0; i-- {
			tx.rollbacks[i]()
		}
		return err
	}
	m.Commits.Add(1)
	return nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

var errBoom = errors.New("boom")
