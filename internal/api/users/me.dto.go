package users

import (
	"time"

	"firetrack-site/internal/domain/access"
)

type SessionResponse struct {
	User    UserDTO    `json:"user"`
	Tenant  *TenantDTO `json:"tenant"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
	IsVerified   bool   `json:"is_verified"`
}

type TenantDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan         *PlanDTO         `json:"plan"`
	Subscription *SubscriptionDTO `json:"subscription"`
}

type PlanDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MonthlyPrice float64 `json:"monthly_price"`
	MaxUsers     int     `json:"max_users"`
	MaxAssets    int     `json:"max_assets"`
}

type SubscriptionDTO struct {
	Status               string     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
	DaysLeft             *int       `json:"days_left"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State        string         `json:"state"` // active|expired|none
	Subscribed   bool           `json:"subscribed"`
	Level        string         `json:"level"` // trial|full|limited|locked
	Capabilities []string       `json:"capabilities"`
	Limits       *access.Limits `json:"limits"`
}
