package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"exam-prep-payments/internal/domain"
	red "exam-prep-payments/internal/infra/redis"
	"exam-prep-payments/internal/usecase"
)

const reconcilerLockKey = "reconciler:subscriptions"

// SubscriptionReconciler periodically retries the subscription extension for
// completed payments whose extension never committed (extension call failed
// or the process died between completion and extension).
type SubscriptionReconciler struct {
	uc         usecase.PaymentUseCase
	locker     red.Locker // optional; nil runs without cross-instance locking
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	lockTTL    time.Duration
	log        *zerolog.Logger
	now        func() time.Time
}

func NewSubscriptionReconciler(uc usecase.PaymentUseCase, locker red.Locker, interval, staleAfter time.Duration, batch int, lockTTL time.Duration, logger *zerolog.Logger) *SubscriptionReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	l := logger.With().Str("component", "subscription_reconciler").Logger()
	return &SubscriptionReconciler{
		uc:         uc,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      batch,
		lockTTL:    lockTTL,
		log:        &l,
		now:        time.Now,
	}
}

func (w *SubscriptionReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation pass and returns how many payments were applied.
func (w *SubscriptionReconciler) Tick(ctx context.Context) int {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, reconcilerLockKey, w.lockTTL)
		if err != nil {
			if !errors.Is(err, domain.ErrLockNotAcquired) {
				w.log.Warn().Err(err).Msg("lock error; skipping tick")
			}
			return 0
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), reconcilerLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("unlock failed")
			}
		}()
	}

	cutoff := w.now().Add(-w.staleAfter)
	n, err := w.uc.ReconcileSubscriptions(ctx, cutoff, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("reconcile pass failed")
		return n
	}
	if n > 0 {
		w.log.Info().Int("applied", n).Msg("reconciled subscriptions")
	}
	return n
}
