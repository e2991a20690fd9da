package billing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/infra/stripe"
)

type customerInfo struct {
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Company string          `json:"company"`
	Phone   string          `json:"phone"`
	Address *stripe.Address `json:"address"`
}

type createInvoiceRequest struct {
	priceSelection
	CustomerInfo *customerInfo     `json:"customerInfo"`
	Metadata     map[string]string `json:"metadata"`
	PromoCode    string            `json:"promoCode"`
}

// CreateInvoice bills by emailed invoice instead of card checkout. It is
// public; a bearer token, when present, tags the invoice with the caller.
func (h *Handler) CreateInvoice(c *gin.Context) {
	var body createInvoiceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	ci := body.CustomerInfo
	if ci == nil || strings.TrimSpace(ci.Name) == "" || strings.TrimSpace(ci.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer information (name and email) is required"})
		return
	}
	sel := body.selection(billing.MethodInvoice)
	if err := sel.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gatewayReady(c) {
		return
	}

	priceID, ok := h.resolvePrice(c, sel)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(ci.Email))

	var promoID string
	promo := strings.TrimSpace(body.PromoCode)
	if promo != "" {
		id, err := h.Gateway.FindPromotionCode(ctx, promo)
		if err != nil {
			providerError(c, h.Log, "find promotion code", err)
			return
		}
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired promo code"})
			return
		}
		promoID = id
	}

	cus, err := h.ensureCustomer(ctx, stripe.CustomerInput{
		Email:   email,
		Name:    strings.TrimSpace(ci.Name),
		Phone:   strings.TrimSpace(ci.Phone),
		Company: strings.TrimSpace(ci.Company),
		Address: ci.Address,
	})
	if err != nil {
		providerError(c, h.Log, "ensure customer", err)
		return
	}

	cycle := string(sel.Cycle)
	server := identityMetadata(c)
	server["billing_method"] = string(sel.Method)
	server["billing_cycle"] = cycle
	if sel.PlanID != "" {
		server["plan_id"] = sel.PlanID
	}

	inv, err := h.Gateway.CreateInvoicedSubscription(ctx, stripe.InvoiceInput{
		CustomerID:      cus.ID,
		PriceID:         priceID,
		PromotionCodeID: promoID,
		Metadata:        mergeMetadata(server, body.Metadata),
	})
	if err != nil {
		providerError(c, h.Log, "create invoice", err)
		return
	}

	rec := billing.Invoice{
		StripeInvoiceID:  inv.ID,
		StripeCustomerID: cus.ID,
		CustomerEmail:    email,
		CustomerName:     strings.TrimSpace(ci.Name),
		Company:          strings.TrimSpace(ci.Company),
		PlanID:           sel.PlanID,
		BillingCycle:     cycle,
		AmountDue:        inv.AmountDue,
		Currency:         inv.Currency,
		Status:           inv.Status,
		DueDate:          inv.DueDate,
	}
	if promo != "" {
		rec.PromoCode = &promo
	}
	if inv.HostedInvoiceURL != "" {
		rec.HostedInvoiceURL = &inv.HostedInvoiceURL
	}
	if err := h.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		// the invoice is already sent; losing the local copy is not fatal
		h.Log.Error("record invoice", zap.String("invoice_id", inv.ID), zap.Error(err))
	}

	h.Log.Info("invoice sent",
		zap.String("invoice_id", inv.ID),
		zap.String("customer_id", cus.ID),
		zap.String("price_id", priceID))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"invoice": inv,
		"customer": stripe.Customer{
			ID:    cus.ID,
			Email: email,
			Name:  strings.TrimSpace(ci.Name),
		},
	})
}
