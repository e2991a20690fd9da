package billing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/infra/stripe"
)

type checkSubscriptionResponse struct {
	Subscribed       bool       `json:"subscribed"`
	Status           string     `json:"status,omitempty"`
	PlanID           string     `json:"plan_id,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// CheckSubscription asks the provider for the caller's live subscription
// and mirrors it into the subscriptions table.
func (h *Handler) CheckSubscription(c *gin.Context) {
	if h.Gateway == nil {
		c.JSON(http.StatusInternalServerError, checkSubscriptionResponse{Error: "Stripe key not configured"})
		return
	}

	ctx := c.Request.Context()
	email := c.GetString(middleware.KeyEmail)
	tenantID := c.GetUint(middleware.KeyTenantID)
	log := h.Log.With(zap.String("email", email), zap.Uint("tenant_id", tenantID))

	fail := func(err error) {
		log.Error("check-subscription failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, checkSubscriptionResponse{Error: err.Error()})
	}

	cus, err := h.Gateway.FindCustomerByEmail(ctx, email)
	if err != nil {
		fail(err)
		return
	}
	if cus == nil {
		log.Debug("no provider customer")
		h.noEntitlement(c, tenantID, "")
		return
	}

	sub, err := h.Gateway.ActiveSubscription(ctx, cus.ID)
	if err != nil {
		fail(err)
		return
	}
	if sub == nil {
		h.noEntitlement(c, tenantID, cus.ID)
		return
	}

	end := sub.CurrentPeriodEnd
	status := stripe.NormalizeStatus(sub.Status)
	h.mirror(c, &billing.Subscription{
		TenantID:             tenantID,
		Status:               status,
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     cus.ID,
		StripePriceID:        sub.PriceID,
		PlanID:               sub.PlanID,
		CurrentPeriodEnd:     &end,
	})

	c.JSON(http.StatusOK, checkSubscriptionResponse{
		Subscribed:       billing.IsEntitling(status),
		Status:           status,
		PlanID:           sub.PlanID,
		CurrentPeriodEnd: &end,
	})
}

// noEntitlement answers {subscribed:false}. A row the webhook already tied to
// a provider subscription is left alone: past_due and canceled states carry
// access rules of their own and only the webhook may move them.
func (h *Handler) noEntitlement(c *gin.Context, tenantID uint, customerID string) {
	existing, err := billing.SubscriptionForTenant(c.Request.Context(), h.DB, tenantID)
	if err != nil {
		h.Log.Warn("load subscription", zap.Uint("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusOK, checkSubscriptionResponse{Subscribed: false})
		return
	}
	if existing != nil && existing.StripeSubscriptionID != "" {
		c.JSON(http.StatusOK, checkSubscriptionResponse{
			Subscribed:       false,
			Status:           stripe.NormalizeStatus(existing.Status),
			PlanID:           existing.PlanID,
			CurrentPeriodEnd: existing.CurrentPeriodEnd,
		})
		return
	}

	h.mirror(c, &billing.Subscription{TenantID: tenantID, Status: "none", StripeCustomerID: customerID})
	c.JSON(http.StatusOK, checkSubscriptionResponse{Subscribed: false})
}

// mirror failures are logged only; the provider answer is still returned.
func (h *Handler) mirror(c *gin.Context, s *billing.Subscription) {
	if s.TenantID == 0 {
		return
	}
	if err := billing.UpsertSubscription(c.Request.Context(), h.DB, s); err != nil {
		h.Log.Warn("mirror subscription", zap.Uint("tenant_id", s.TenantID), zap.Error(err))
	}
}
