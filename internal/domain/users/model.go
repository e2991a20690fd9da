package users

import "time"

const (
	RoleOwner  = "owner"
	RoleMember = "member"
	RoleAdmin  = "admin"

	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Tenant is an organisational account (fire department, contractor) that
// owns users and subscriptions.
type Tenant struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Slug      string `gorm:"not null;uniqueIndex:idx_tenants_slug" json:"slug"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           uint    `gorm:"primaryKey"`
	TenantID     uint    `gorm:"not null;index"`
	Tenant       *Tenant `gorm:"constraint:OnDelete:CASCADE"`
	FullName     string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string  `gorm:"type:varchar(20);not null;default:'owner'"`
	IsVerified   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
