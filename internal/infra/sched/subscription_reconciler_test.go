//go:build !integration

package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"exam-prep-payments/internal/config"
	"exam-prep-payments/internal/domain/model"
	red "exam-prep-payments/internal/infra/redis"
	"exam-prep-payments/internal/usecase"
)

type mockPaymentUC struct {
	calls     int32
	olderThan time.Time
	limit     int
	applied   int
	err       error
}

var _ usecase.PaymentUseCase = (*mockPaymentUC)(nil)

func (m *mockPaymentUC) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*usecase.OrderResult, error) {
	return nil, nil
}

func (m *mockPaymentUC) Verify(ctx context.Context, proof model.PaymentProof) (*usecase.VerifyResult, error) {
	return nil, nil
}

func (m *mockPaymentUC) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error) {
	return nil, nil
}

func (m *mockPaymentUC) ReconcileSubscriptions(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	atomic.AddInt32(&m.calls, 1)
	m.olderThan, m.limit = olderThan, limit
	return m.applied, m.err
}

func newLocker(t *testing.T) (red.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := red.NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	if err != nil {
		t.Fatalf("connect miniredis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return red.NewLocker(c), mr
}

func TestSubscriptionReconciler_Tick(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("passes cutoff and batch to the use case", func(t *testing.T) {
		uc := &mockPaymentUC{applied: 2}
		w := NewSubscriptionReconciler(uc, nil, time.Minute, 5*time.Minute, 25, 0, &logger)
		fixed := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
		w.now = func() time.Time { return fixed }

		if n := w.Tick(ctx); n != 2 {
			t.Fatalf("want 2 applied, got %d", n)
		}
		if !uc.olderThan.Equal(fixed.Add(-5*time.Minute)) || uc.limit != 25 {
			t.Fatalf("unexpected args cutoff=%v limit=%d", uc.olderThan, uc.limit)
		}
	})

	t.Run("skips the pass while another instance holds the lock", func(t *testing.T) {
		locker, _ := newLocker(t)
		uc := &mockPaymentUC{}
		w := NewSubscriptionReconciler(uc, locker, time.Minute, time.Minute, 10, 30*time.Second, &logger)

		token, err := locker.TryLock(ctx, reconcilerLockKey, time.Minute)
		if err != nil {
			t.Fatalf("pre-lock: %v", err)
		}
		w.Tick(ctx)
		if atomic.LoadInt32(&uc.calls) != 0 {
			t.Fatal("tick must not run while locked")
		}

		_ = locker.Unlock(ctx, reconcilerLockKey, token)
		w.Tick(ctx)
		if atomic.LoadInt32(&uc.calls) != 1 {
			t.Fatal("tick should run once the lock is free")
		}
	})

	t.Run("releases the lock after a pass", func(t *testing.T) {
		locker, mr := newLocker(t)
		uc := &mockPaymentUC{}
		w := NewSubscriptionReconciler(uc, locker, time.Minute, time.Minute, 10, 30*time.Second, &logger)

		w.Tick(ctx)
		if mr.Exists(reconcilerLockKey) {
			t.Fatal("lock key should be deleted after the pass")
		}
		w.Tick(ctx)
		if atomic.LoadInt32(&uc.calls) != 2 {
			t.Fatalf("want 2 passes, got %d", uc.calls)
		}
	})
}

func TestSubscriptionReconciler_StartStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	uc := &mockPaymentUC{}
	w := NewSubscriptionReconciler(uc, nil, 10*time.Millisecond, time.Minute, 10, 0, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&uc.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("reconciler never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
