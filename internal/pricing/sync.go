package pricing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/infra/stripe"
)

type PriceLister interface {
	ListRecurringPrices(ctx context.Context) ([]stripe.Price, error)
}

type SyncResult struct {
	Upserted int      `json:"upserted"`
	Skipped  []string `json:"skipped"`
}

// Sync copies active recurring provider prices that carry a plan_id into
// price_mappings for the given mode. Prices for unknown plans or intervals
// are skipped.
func Sync(ctx context.Context, db *gorm.DB, gw PriceLister, catalog *plans.Catalog, mode string, log *zap.Logger) (SyncResult, error) {
	res := SyncResult{Skipped: []string{}}

	prices, err := gw.ListRecurringPrices(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch prices: %w", err)
	}

	for _, p := range prices {
		cycle := plans.NormalizeCycle(p.Interval)
		planID := strings.ToLower(p.PlanID)
		if _, known := catalog.Get(planID); !known || cycle == "" {
			res.Skipped = append(res.Skipped, p.ID)
			continue
		}

		row := billing.PriceMapping{
			PlanID:        planID,
			BillingCycle:  cycle,
			Mode:          mode,
			StripePriceID: p.ID,
			UnitAmount:    p.UnitAmount,
			Currency:      p.Currency,
			IsActive:      true,
		}
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plan_id"}, {Name: "billing_cycle"}, {Name: "mode"}},
			DoUpdates: clause.AssignmentColumns([]string{"stripe_price_id", "unit_amount", "currency", "is_active", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return res, fmt.Errorf("upsert price mapping %s/%s: %w", planID, cycle, err)
		}
		res.Upserted++
	}

	if log != nil {
		log.Info("price mappings synced",
			zap.String("mode", mode),
			zap.Int("upserted", res.Upserted),
			zap.Int("skipped", len(res.Skipped)))
	}
	return res, nil
}
