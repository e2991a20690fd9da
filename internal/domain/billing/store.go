package billing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertSubscription writes the tenant's single subscription row.
func UpsertSubscription(ctx context.Context, db *gorm.DB, s *Subscription) error {
	if s.TenantID == 0 {
		return errors.New("subscription has no tenant")
	}
	if s.Status == "" {
		s.Status = "none"
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "stripe_subscription_id", "stripe_customer_id",
			"stripe_price_id", "plan_id", "current_period_end", "updated_at",
		}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("upsert subscription for tenant %d: %w", s.TenantID, err)
	}
	return nil
}

// SubscriptionForTenant returns (nil, nil) when the tenant never subscribed.
func SubscriptionForTenant(ctx context.Context, db *gorm.DB, tenantID uint) (*Subscription, error) {
	var s Subscription
	err := db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
