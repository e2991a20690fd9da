package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/infra/stripe"
	"firetrack-site/internal/pricing"
)

// Handler serves the billing functions. Gateway is nil when no secret key
// is configured; every endpoint then answers 500.
type Handler struct {
	DB               *gorm.DB
	Gateway          stripe.Gateway
	Prices           *pricing.Resolver
	Catalog          *plans.Catalog
	Log              *zap.Logger
	AppURL           string
	Mode             string
	ReferralCouponID string
}

// priceSelection is shared by create-checkout and create-invoice.
type priceSelection struct {
	PriceID      string `json:"priceId"`
	PlanID       string `json:"planId"`
	BillingCycle string `json:"billingCycle"`
}

func (h *Handler) gatewayReady(c *gin.Context) bool {
	if h.Gateway == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return false
	}
	return true
}

// selection turns the request fields into a billing selection. An absent
// cycle means monthly; an unknown one fails Validate.
func (p priceSelection) selection(m billing.Method) billing.Selection {
	cycle := billing.CycleMonthly
	if strings.TrimSpace(p.BillingCycle) != "" {
		cycle = billing.Cycle(plans.NormalizeCycle(p.BillingCycle))
	}
	return billing.Selection{
		PlanID:  strings.ToLower(strings.TrimSpace(p.PlanID)),
		Method:  m,
		Cycle:   cycle,
		PriceID: strings.TrimSpace(p.PriceID),
	}
}

// resolvePrice answers the request itself on failure.
func (h *Handler) resolvePrice(c *gin.Context, sel billing.Selection) (string, bool) {
	cycle := string(sel.Cycle)
	if cycle == plans.CycleAnnual && sel.PlanID != "" && !h.Catalog.PlanSupportsAnnual(sel.PlanID) {
		cycle = plans.CycleMonthly
	}

	id, err := h.Prices.Resolve(c.Request.Context(), pricing.Request{
		PriceID: sel.PriceID,
		PlanID:  sel.PlanID,
		Cycle:   cycle,
		Mode:    h.Mode,
	})
	if errors.Is(err, pricing.ErrPriceNotConfigured) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "plan_id": sel.PlanID, "billing_cycle": cycle})
		return "", false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve price", "details": err.Error()})
		return "", false
	}
	return id, true
}

// ensureCustomer finds the provider customer for email or creates one.
func (h *Handler) ensureCustomer(ctx context.Context, in stripe.CustomerInput) (*stripe.Customer, error) {
	cus, err := h.Gateway.FindCustomerByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if cus != nil {
		return cus, nil
	}
	return h.Gateway.CreateCustomer(ctx, in)
}

func identityMetadata(c *gin.Context) map[string]string {
	md := map[string]string{}
	if id := c.GetUint(middleware.KeyUserID); id != 0 {
		md["user_id"] = fmt.Sprint(id)
	}
	if id := c.GetUint(middleware.KeyTenantID); id != 0 {
		md["tenant_id"] = fmt.Sprint(id)
	}
	return md
}

// mergeMetadata copies client metadata under the server's keys. Server
// values win.
func mergeMetadata(server, client map[string]string) map[string]string {
	out := make(map[string]string, len(server)+len(client))
	for k, v := range client {
		k = strings.TrimSpace(k)
		if k == "" || len(k) > 40 || len(v) > 500 {
			continue
		}
		out[k] = v
	}
	for k, v := range server {
		out[k] = v
	}
	return out
}

func providerError(c *gin.Context, log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
