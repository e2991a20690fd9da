package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/infra/stripe"
	"firetrack-site/internal/pricing"
)

type Handler struct {
	DB      *gorm.DB
	Catalog *plans.Catalog
	Gateway stripe.Gateway
	Mode    string
	Log     *zap.Logger
}

// PlanView is a catalog plan plus the synced provider amounts (minor units)
// keyed by billing cycle.
type PlanView struct {
	plans.Plan
	Amounts  map[string]int64 `json:"amounts,omitempty"`
	Currency string           `json:"currency,omitempty"`
}

// GET /plans
func (h *Handler) ListPlans(c *gin.Context) {
	var rows []billing.PriceMapping
	if err := h.DB.WithContext(c.Request.Context()).
		Where("mode = ? AND is_active = ?", h.Mode, true).
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	byPlan := map[string][]billing.PriceMapping{}
	for _, r := range rows {
		byPlan[r.PlanID] = append(byPlan[r.PlanID], r)
	}

	all := h.Catalog.All()
	out := make([]PlanView, 0, len(all))
	for _, p := range all {
		v := PlanView{Plan: p}
		for _, r := range byPlan[p.ID] {
			if r.UnitAmount <= 0 {
				continue
			}
			if v.Amounts == nil {
				v.Amounts = map[string]int64{}
			}
			v.Amounts[r.BillingCycle] = r.UnitAmount
			v.Currency = r.Currency
		}
		out = append(out, v)
	}

	c.JSON(http.StatusOK, out)
}

// POST /admin/sync-prices
func (h *Handler) SyncPrices(c *gin.Context) {
	if h.Gateway == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	res, err := pricing.Sync(c.Request.Context(), h.DB, h.Gateway, h.Catalog, h.Mode, h.Log)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync Stripe prices", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
