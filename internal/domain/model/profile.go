package model

import "time"

const (
	SubscriptionFree    = "free"
	SubscriptionPremium = "premium"
)

// Profile is the account-side subscription state. This service only reads it
// and extends it through the store's extend operation.
type Profile struct {
	UserID             string     `json:"user_id"`
	Subscription       string     `json:"subscription"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
}

// Active reports whether the subscription is paid and not yet expired at now.
func (p *Profile) Active(now time.Time) bool {
	if p == nil || p.Subscription == "" || p.Subscription == SubscriptionFree {
		return false
	}
	return p.SubscriptionExpiry != nil && p.SubscriptionExpiry.After(now)
}
