package access

import (
	"time"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
)

type Policy struct {
	State        AccessState
	Capabilities []string
	Limits       *Limits
}

// ComputePolicy derives what a tenant may do from its mirrored subscription
// and the catalog entry of its plan.
func ComputePolicy(now time.Time, s *billing.Subscription, catalog *plans.Catalog) Policy {
	state := ComputeEffectiveAccessState(now, s)

	var plan *plans.Plan
	if s != nil && catalog != nil {
		plan, _ = catalog.Get(s.PlanID)
	}

	p := Policy{
		State:        state,
		Capabilities: CapabilitiesFor(state, plan),
	}
	if plan != nil && (state == AccessFull || state == AccessTrial) {
		p.Limits = &Limits{MaxUsers: plan.MaxUsers, MaxAssets: plan.MaxAssets}
	}
	return p
}

func (p Policy) Can(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
