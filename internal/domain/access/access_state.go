package access

import (
	"time"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/infra/stripe"
)

// Effective access for UI/product: trial|full|limited|locked
func ComputeEffectiveAccessState(now time.Time, s *billing.Subscription) AccessState {
	if s == nil {
		return AccessLocked
	}
	paidThrough := s.CurrentPeriodEnd == nil || now.Before(*s.CurrentPeriodEnd)

	switch stripe.NormalizeStatus(s.Status) {
	case "trialing":
		if paidThrough {
			return AccessTrial
		}
		return AccessLocked

	case "active":
		if paidThrough {
			return AccessFull
		}
		// renewal not yet mirrored
		return AccessLimited

	case "past_due":
		return AccessLimited

	case "canceled":
		// access until the paid-through end date
		if s.CurrentPeriodEnd != nil && now.Before(*s.CurrentPeriodEnd) {
			return AccessFull
		}
		return AccessLocked

	default:
		return AccessLocked
	}
}
