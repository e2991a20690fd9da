package access

type AccessState string

const (
	AccessTrial   AccessState = "trial"
	AccessFull    AccessState = "full"
	AccessLimited AccessState = "limited"
	AccessLocked  AccessState = "locked"
)

const (
	CapViewAssets     = "view_assets"
	CapInspections    = "inspections"
	CapCertificates   = "certificates"
	CapReminders      = "reminders"
	CapDefects        = "defect_tracking"
	CapCustomerPortal = "customer_portal"
	CapMultiSite      = "multi_site"
	CapAuditExport    = "audit_export"
	CapReferrals      = "referrals"
)

// Limits are the plan quotas; 0 means unlimited.
type Limits struct {
	MaxUsers  int `json:"max_users"`
	MaxAssets int `json:"max_assets"`
}
