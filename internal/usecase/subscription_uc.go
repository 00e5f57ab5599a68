// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/domain/ports/repository"
)

// SubscriptionView is the caller's subscription as the client renders it.
type SubscriptionView struct {
	Subscription       string     `json:"subscription"`
	SubscriptionExpiry *time.Time `json:"subscriptionExpiry"`
	Active             bool       `json:"active"`
}

// SubscriptionUseCase reads subscription state. Writes only happen through
// payment completion.
type SubscriptionUseCase struct {
	profiles repository.ProfileRepository
	now      func() time.Time
}

func NewSubscriptionUseCase(profiles repository.ProfileRepository) *SubscriptionUseCase {
	return &SubscriptionUseCase{profiles: profiles, now: time.Now}
}

// Current returns the caller's state; a missing profile reads as free.
func (uc *SubscriptionUseCase) Current(ctx context.Context, userID string) (*SubscriptionView, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	p, err := uc.profiles.FindByUserID(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &SubscriptionView{Subscription: model.SubscriptionFree}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{
		Subscription:       p.Subscription,
		SubscriptionExpiry: p.SubscriptionExpiry,
		Active:             p.Active(uc.now()),
	}, nil
}
