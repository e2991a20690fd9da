package stripewebhooks

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/internal/infra/stripe"
)

type Handler struct {
	DB      *gorm.DB
	Gateway stripe.Gateway
	Secret  string
	Log     *zap.Logger
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.Secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := stripe.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.Secret)
	if err != nil {
		h.Log.Warn("stripe signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	log := h.Log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))
	ctx := c.Request.Context()

	switch event.Type {
	case "checkout.session.completed":
		session, err := event.CheckoutSession()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse session"})
			return
		}
		err = h.handleCheckoutSessionCompleted(ctx, session)
		h.respond(c, log, err)

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		sub, err := event.Subscription()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
			return
		}
		if event.Type == "customer.subscription.deleted" {
			sub.Status = "canceled"
		}
		err = h.handleSubscriptionChanged(ctx, sub)
		h.respond(c, log, err)

	case "invoice.paid", "invoice.payment_failed", "invoice.voided", "invoice.marked_uncollectible":
		inv, err := event.Invoice()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse invoice"})
			return
		}
		err = h.handleInvoiceStatus(ctx, inv)
		h.respond(c, log, err)

	default:
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

// respond answers 500 on failure so Stripe retries the delivery.
func (h *Handler) respond(c *gin.Context, log *zap.Logger, err error) {
	if err != nil {
		log.Error("webhook handling failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	log.Info("webhook handled")
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
