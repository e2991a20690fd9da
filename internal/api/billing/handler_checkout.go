package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/infra/stripe"
)

type createCheckoutRequest struct {
	priceSelection
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) CreateCheckout(c *gin.Context) {
	var body createCheckoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	sel := body.selection(billing.MethodSubscription)
	if err := sel.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gatewayReady(c) {
		return
	}

	email := c.GetString(middleware.KeyEmail)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	priceID, ok := h.resolvePrice(c, sel)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	idMD := identityMetadata(c)

	cus, err := h.ensureCustomer(ctx, stripe.CustomerInput{Email: email, Metadata: idMD})
	if err != nil {
		providerError(c, h.Log, "ensure customer", err)
		return
	}

	server := map[string]string{}
	for k, v := range idMD {
		server[k] = v
	}
	if sel.PlanID != "" {
		server["plan_id"] = sel.PlanID
	}
	server["billing_cycle"] = string(sel.Cycle)

	s, err := h.Gateway.CreateCheckoutSession(ctx, stripe.CheckoutInput{
		CustomerID:          cus.ID,
		PriceID:             priceID,
		SuccessURL:          h.AppURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:           h.AppURL + "/pricing?canceled=1",
		ClientReferenceID:   idMD["tenant_id"],
		AllowPromotionCodes: true,
		Metadata:            mergeMetadata(server, body.Metadata),
	})
	if err != nil {
		providerError(c, h.Log, "create checkout session", err)
		return
	}
	if s.URL == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No checkout URL returned"})
		return
	}

	h.Log.Info("checkout session created",
		zap.String("session_id", s.ID),
		zap.String("price_id", priceID),
		zap.String("customer_id", cus.ID))
	c.JSON(http.StatusOK, gin.H{"url": s.URL, "sessionId": s.ID})
}

func (h *Handler) CustomerPortal(c *gin.Context) {
	if !h.gatewayReady(c) {
		return
	}
	email := c.GetString(middleware.KeyEmail)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	cus, err := h.Gateway.FindCustomerByEmail(c.Request.Context(), email)
	if err != nil {
		providerError(c, h.Log, "find customer", err)
		return
	}
	if cus == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No billing account found for this user (subscribe first)"})
		return
	}

	url, err := h.Gateway.CreatePortalSession(c.Request.Context(), cus.ID, h.AppURL+"/account")
	if err != nil {
		providerError(c, h.Log, "create billing portal session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
