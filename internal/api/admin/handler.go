package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/feedback"
	"firetrack-site/internal/domain/users"
)

type Handler struct {
	DB *gorm.DB
}

type AdminUser struct {
	ID                 uint       `json:"id"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	IsVerified         bool       `json:"is_verified"`
	TenantID           uint       `json:"tenant_id"`
	TenantName         string     `json:"tenant_name"`
	SubscriptionStatus string     `json:"subscription_status"`
	PlanID             *string    `json:"plan_id,omitempty"`
	StripeCustomerID   *string    `json:"stripe_customer_id,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CreatedAt          string     `json:"created_at"`
}

type AdminStats struct {
	TotalUsers         int64            `json:"total_users"`
	TotalTenants       int64            `json:"total_tenants"`
	InvoicedTotal      int64            `json:"invoiced_total"`
	RecentInvoiced     int64            `json:"recent_invoiced"`
	TenantsPerPlan     map[string]int   `json:"tenants_per_plan"`
	SubscriptionStates map[string]int   `json:"subscription_states"`
	FeatureRequests    map[string]int64 `json:"feature_requests"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	db := h.DB.WithContext(c.Request.Context())

	var list []users.User
	if err := db.Preload("Tenant").Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	var subs []billing.Subscription
	if err := db.Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}
	byTenant := make(map[uint]billing.Subscription, len(subs))
	for _, s := range subs {
		byTenant[s.TenantID] = s
	}

	out := make([]AdminUser, 0, len(list))
	for _, u := range list {
		au := AdminUser{
			ID:                 u.ID,
			FullName:           u.FullName,
			Email:              u.Email,
			Role:               u.Role,
			IsVerified:         u.IsVerified,
			TenantID:           u.TenantID,
			SubscriptionStatus: "none",
			CreatedAt:          u.CreatedAt.Format("2006-01-02 15:04"),
		}
		if u.Tenant != nil {
			au.TenantName = u.Tenant.Name
		}
		if s, ok := byTenant[u.TenantID]; ok {
			au.SubscriptionStatus = s.Status
			au.PlanID = nonEmpty(s.PlanID)
			au.StripeCustomerID = nonEmpty(s.StripeCustomerID)
			au.CurrentPeriodEnd = s.CurrentPeriodEnd
		}
		out = append(out, au)
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListInvoices(c *gin.Context) {
	var invoices []billing.Invoice
	if err := h.DB.WithContext(c.Request.Context()).Order("created_at DESC").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invoices"})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *Handler) GetStats(c *gin.Context) {
	db := h.DB.WithContext(c.Request.Context())
	stats := AdminStats{
		TenantsPerPlan:     map[string]int{},
		SubscriptionStates: map[string]int{},
		FeatureRequests:    map[string]int64{},
	}

	if err := db.Model(&users.User{}).Count(&stats.TotalUsers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats", "details": err.Error()})
		return
	}
	db.Model(&users.Tenant{}).Count(&stats.TotalTenants)

	db.Model(&billing.Invoice{}).
		Where("status = ?", "paid").
		Select("COALESCE(SUM(amount_due), 0)").Scan(&stats.InvoicedTotal)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	db.Model(&billing.Invoice{}).
		Where("created_at >= ?", thirtyDaysAgo).
		Select("COALESCE(SUM(amount_due), 0)").Scan(&stats.RecentInvoiced)

	type group struct {
		Label string
		Count int
	}

	var states []group
	db.Model(&billing.Subscription{}).Select("status AS label, COUNT(*) AS count").Group("status").Scan(&states)
	for _, g := range states {
		stats.SubscriptionStates[g.Label] = g.Count
	}

	var perPlan []group
	db.Model(&billing.Subscription{}).
		Select("plan_id AS label, COUNT(*) AS count").
		Where("status IN ?", []string{"active", "trialing"}).
		Group("plan_id").Scan(&perPlan)
	for _, g := range perPlan {
		name := g.Label
		if name == "" {
			name = "unknown"
		}
		stats.TenantsPerPlan[name] += g.Count
	}

	var requests []struct {
		Status string
		Count  int64
	}
	db.Model(&feedback.FeatureRequest{}).Select("status, COUNT(*) AS count").Group("status").Scan(&requests)
	for _, r := range requests {
		stats.FeatureRequests[r.Status] = r.Count
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetUserDetails(c *gin.Context) {
	db := h.DB.WithContext(c.Request.Context())

	var user users.User
	if err := db.Preload("Tenant").First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	sub, err := billing.SubscriptionForTenant(c.Request.Context(), h.DB, user.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription"})
		return
	}

	var invoices []billing.Invoice
	if err := db.Where("customer_email = ?", user.Email).Order("created_at DESC").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}

	var referral *billing.ReferralCode
	var rc billing.ReferralCode
	if err := db.Where("user_id = ?", user.ID).First(&rc).Error; err == nil {
		referral = &rc
	}

	c.JSON(http.StatusOK, gin.H{
		"user": AdminUser{
			ID:         user.ID,
			FullName:   user.FullName,
			Email:      user.Email,
			Role:       user.Role,
			IsVerified: user.IsVerified,
			TenantID:   user.TenantID,
			TenantName: tenantName(user.Tenant),
			CreatedAt:  user.CreatedAt.Format("2006-01-02 15:04"),
		},
		"subscription":  sub,
		"invoices":      invoices,
		"referral_code": referral,
	})
}

func tenantName(t *users.Tenant) string {
	if t == nil {
		return ""
	}
	return t.Name
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
