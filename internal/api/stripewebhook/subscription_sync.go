package stripewebhooks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/infra/stripe"
)

func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, session *stripe.CompletedCheckout) error {
	if session.SubscriptionID == "" {
		return errors.New("checkout session missing subscription")
	}
	if h.Gateway == nil {
		return errors.New("STRIPE_SECRET_KEY not configured")
	}

	sub, err := h.Gateway.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription: %w", err)
	}
	if sub.CustomerID == "" {
		sub.CustomerID = session.CustomerID
	}

	tenantID := tenantIDFrom(sub.Metadata, session.Metadata)
	if tenantID == 0 {
		tenantID = parseID(session.ClientReferenceID)
	}
	if tenantID == 0 {
		return errors.New("missing tenant_id (metadata.tenant_id or client_reference_id)")
	}

	return h.save(ctx, tenantID, sub)
}

func (h *Handler) handleSubscriptionChanged(ctx context.Context, sub *stripe.Subscription) error {
	tenantID := tenantIDFrom(sub.Metadata)
	if tenantID == 0 {
		var err error
		if tenantID, err = h.tenantForSubscription(ctx, sub); err != nil {
			return err
		}
	}
	if tenantID == 0 {
		// not one of ours (or tenant deleted): acknowledge
		h.Log.Info("subscription event for unknown tenant", zap.String("subscription_id", sub.ID))
		return nil
	}
	return h.save(ctx, tenantID, sub)
}

func (h *Handler) save(ctx context.Context, tenantID uint, sub *stripe.Subscription) error {
	return billing.UpsertSubscription(ctx, h.DB, &billing.Subscription{
		TenantID:             tenantID,
		Status:               stripe.NormalizeStatus(sub.Status),
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     sub.CustomerID,
		StripePriceID:        sub.PriceID,
		PlanID:               sub.PlanID,
		CurrentPeriodEnd:     sub.PeriodEnd(),
	})
}

func (h *Handler) tenantForSubscription(ctx context.Context, sub *stripe.Subscription) (uint, error) {
	var row billing.Subscription
	q := h.DB.WithContext(ctx).Where("stripe_subscription_id = ?", sub.ID)
	if sub.CustomerID != "" {
		q = q.Or("stripe_customer_id = ?", sub.CustomerID)
	}
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup subscription %s: %w", sub.ID, err)
	}
	return row.TenantID, nil
}

func (h *Handler) handleInvoiceStatus(ctx context.Context, inv *stripe.Invoice) error {
	if inv.ID == "" {
		return nil
	}
	return h.DB.WithContext(ctx).Model(&billing.Invoice{}).
		Where("stripe_invoice_id = ?", inv.ID).
		Update("status", inv.Status).Error
}

func tenantIDFrom(mds ...map[string]string) uint {
	for _, md := range mds {
		if md == nil {
			continue
		}
		if id := parseID(md["tenant_id"]); id != 0 {
			return id
		}
	}
	return 0
}

func parseID(s string) uint {
	if s == "" {
		return 0
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
