package billing

import (
	"strings"
	"time"
)

// Subscription mirrors the provider's subscription for a tenant. It is
// written by the webhook and by check-subscription only.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"-"`
	TenantID             uint       `gorm:"not null;uniqueIndex:idx_subscriptions_tenant" json:"tenant_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'none'" json:"status"`
	StripeSubscriptionID string     `gorm:"column:stripe_subscription_id;index" json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     string     `gorm:"column:stripe_customer_id;index" json:"stripe_customer_id,omitempty"`
	StripePriceID        string     `gorm:"column:stripe_price_id" json:"stripe_price_id,omitempty"`
	PlanID               string     `gorm:"column:plan_id" json:"plan_id,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"column:current_period_end" json:"current_period_end,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEntitling reports whether a provider status grants product access.
func IsEntitling(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	default:
		return false
	}
}

func (s *Subscription) Active(now time.Time) bool {
	if s == nil || !IsEntitling(s.Status) {
		return false
	}
	return s.CurrentPeriodEnd == nil || now.Before(*s.CurrentPeriodEnd)
}
