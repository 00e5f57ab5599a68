//go:build !integration

package postgres

import (
	"context"
	"time"

	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/domain/ports/repository"
	red "exam-prep-payments/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerProfileRepo mocks the database repository that the Profile decorator wraps.
type mockInnerProfileRepo struct {
	FindByUserIDFunc       func(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error)
	ExtendSubscriptionFunc func(ctx context.Context, tx repository.Tx, userID string, months int, ref string) (time.Time, error)
	InvalidateFunc         func(ctx context.Context, userID string) error
}

func (m *mockInnerProfileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	return m.FindByUserIDFunc(ctx, tx, userID)
}
func (m *mockInnerProfileRepo) ExtendSubscription(ctx context.Context, tx repository.Tx, userID string, months int, ref string) (time.Time, error) {
	return m.ExtendSubscriptionFunc(ctx, tx, userID, months, ref)
}
func (m *mockInnerProfileRepo) Invalidate(ctx context.Context, userID string) error {
	if m.InvalidateFunc == nil {
		return nil
	}
	return m.InvalidateFunc(ctx, userID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
