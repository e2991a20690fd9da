package users

import (
	"time"

	"firetrack-site/internal/domain/access"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/domain/users"
	"firetrack-site/internal/infra/stripe"
)

func BuildTenantDTO(t *users.Tenant) *TenantDTO {
	if t == nil {
		return nil
	}
	return &TenantDTO{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func BuildPlanDTO(catalog *plans.Catalog, s *billing.Subscription) *PlanDTO {
	if catalog == nil || s == nil || s.PlanID == "" {
		return nil
	}
	p, ok := catalog.Get(s.PlanID)
	if !ok {
		return nil
	}
	return &PlanDTO{
		ID:           p.ID,
		Name:         p.Name,
		MonthlyPrice: p.MonthlyPrice,
		MaxUsers:     p.MaxUsers,
		MaxAssets:    p.MaxAssets,
	}
}

func BuildSubscriptionDTO(s *billing.Subscription) *SubscriptionDTO {
	if s == nil || s.Status == "none" {
		return nil
	}
	out := &SubscriptionDTO{
		Status:           stripe.NormalizeStatus(s.Status),
		CurrentPeriodEnd: s.CurrentPeriodEnd,
	}
	if s.StripeSubscriptionID != "" {
		id := s.StripeSubscriptionID
		out.StripeSubscriptionID = &id
	}
	if s.CurrentPeriodEnd != nil {
		out.DaysLeft = daysUntil(time.Now(), *s.CurrentPeriodEnd)
	}
	return out
}

func BuildAccessDTO(now time.Time, s *billing.Subscription, catalog *plans.Catalog) AccessDTO {
	p := access.ComputePolicy(now, s, catalog)
	out := AccessDTO{
		State:        "none",
		Level:        string(p.State),
		Capabilities: p.Capabilities,
		Limits:       p.Limits,
	}
	switch {
	case s.Active(now):
		out.State = "active"
		out.Subscribed = true
	case s != nil && billing.IsEntitling(s.Status):
		out.State = "expired"
	}
	return out
}

func daysUntil(now, end time.Time) *int {
	d := 0
	if now.Before(end) {
		d = int(end.Sub(now).Hours() / 24)
	}
	return &d
}
