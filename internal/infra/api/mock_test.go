//go:build !integration

package api_test

import (
	"context"
	"sync"
	"time"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/usecase"
)

type mockPaymentUC struct {
	mu     sync.Mutex
	Orders []usecase.CreateOrderInput
	Proofs []model.PaymentProof

	CreateOrderFunc func(ctx context.Context, in usecase.CreateOrderInput) (*usecase.OrderResult, error)
	VerifyFunc      func(ctx context.Context, proof model.PaymentProof) (*usecase.VerifyResult, error)
	ListByUserFunc  func(ctx context.Context, userID string, limit int) ([]*model.Payment, error)
}

var _ usecase.PaymentUseCase = (*mockPaymentUC)(nil)

func (m *mockPaymentUC) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*usecase.OrderResult, error) {
	m.mu.Lock()
	m.Orders = append(m.Orders, in)
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, in)
	}
	return &usecase.OrderResult{OrderID: "order_abc", AmountMinor: model.ToMinorUnits(in.Amount), Currency: "INR", KeyID: "rzp_test_1"}, nil
}

func (m *mockPaymentUC) Verify(ctx context.Context, proof model.PaymentProof) (*usecase.VerifyResult, error) {
	m.mu.Lock()
	m.Proofs = append(m.Proofs, proof)
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, proof)
	}
	return &usecase.VerifyResult{Outcome: usecase.OutcomeCompleted, Message: usecase.MsgVerified, OrderID: "order_abc"}, nil
}

func (m *mockPaymentUC) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockPaymentUC) ReconcileSubscriptions(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	return 0, nil
}

type mockSubs struct {
	views map[string]*usecase.SubscriptionView
	err   error
}

func (m *mockSubs) Current(ctx context.Context, userID string) (*usecase.SubscriptionView, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.views[userID]; ok {
		return v, nil
	}
	return &usecase.SubscriptionView{Subscription: model.SubscriptionFree}, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}
