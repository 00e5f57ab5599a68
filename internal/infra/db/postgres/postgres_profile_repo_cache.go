package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/domain/ports/repository"
	"exam-prep-payments/internal/infra/metrics"
	red "exam-prep-payments/internal/infra/redis"
)

var _ repository.ProfileRepository = (*profileRepoCacheDecorator)(nil)

type profileRepoCacheDecorator struct {
	inner repository.ProfileRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewProfileRepoCacheDecorator(inner repository.ProfileRepository, cache red.RedisClient, ttl time.Duration) repository.ProfileRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &profileRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func profileKey(userID string) string { return fmt.Sprintf("profile:%s", userID) }

// FindByUserID reads through the cache. Transactional reads bypass it.
func (d *profileRepoCacheDecorator) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	if tx != nil {
		return d.inner.FindByUserID(ctx, tx, userID)
	}
	key := profileKey(userID)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var p model.Profile
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheRequest("profile", "hit")
			return &p, nil
		}
	}

	metrics.IncCacheRequest("profile", "miss")
	p, err := d.inner.FindByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return p, nil
}

// ExtendSubscription drops the key itself only for autocommit writes. Inside a
// transaction the old row stays visible until commit, so the caller must
// Invalidate after commit.
func (d *profileRepoCacheDecorator) ExtendSubscription(ctx context.Context, tx repository.Tx, userID string, months int, paymentRef string) (time.Time, error) {
	expiry, err := d.inner.ExtendSubscription(ctx, tx, userID, months, paymentRef)
	if err == nil && tx == nil {
		_ = d.Invalidate(ctx, userID)
	}
	return expiry, err
}

func (d *profileRepoCacheDecorator) Invalidate(ctx context.Context, userID string) error {
	if err := d.inner.Invalidate(ctx, userID); err != nil {
		return err
	}
	return d.cache.Del(ctx, profileKey(userID))
}
