package billing

import "time"

// PriceMapping translates plan + cycle into a provider price id, scoped by
// live/test mode so both key sets can share one database.
type PriceMapping struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PlanID        string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_price_mappings_ref,priority:1" json:"plan_id"`
	BillingCycle  string    `gorm:"type:varchar(16);not null;uniqueIndex:ux_price_mappings_ref,priority:2" json:"billing_cycle"`
	Mode          string    `gorm:"type:varchar(8);not null;uniqueIndex:ux_price_mappings_ref,priority:3" json:"mode"`
	StripePriceID string    `gorm:"column:stripe_price_id;not null" json:"stripe_price_id"`
	UnitAmount    int64     `json:"unit_amount"`
	Currency      string    `gorm:"type:varchar(8)" json:"currency"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
