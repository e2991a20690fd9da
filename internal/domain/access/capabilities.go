package access

import "firetrack-site/internal/domain/plans"

func CapabilitiesFor(state AccessState, plan *plans.Plan) []string {
	switch state {
	case AccessLocked:
		return []string{}
	case AccessLimited:
		// read-only until billing is sorted out
		return []string{CapViewAssets}
	case AccessTrial:
		return []string{CapViewAssets, CapInspections, CapCertificates}
	}

	base := []string{CapViewAssets, CapInspections, CapCertificates, CapReferrals}
	if plan == nil {
		return base
	}
	switch plan.ID {
	case "professional":
		return append(base, CapReminders, CapDefects, CapCustomerPortal)
	case "enterprise":
		return append(base, CapReminders, CapDefects, CapCustomerPortal, CapMultiSite, CapAuditExport)
	default:
		return base
	}
}
