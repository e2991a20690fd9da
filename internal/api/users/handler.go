package users

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/domain/users"
)

type Handler struct {
	DB      *gorm.DB
	Catalog *plans.Catalog
}

// GET /auth/session
func (h *Handler) GetSession(c *gin.Context) {
	userID := c.GetUint(middleware.KeyUserID)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	ctx := c.Request.Context()

	var user users.User
	if err := h.DB.WithContext(ctx).Preload("Tenant").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	sub, err := billing.SubscriptionForTenant(ctx, h.DB, user.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription", "details": err.Error()})
		return
	}

	now := time.Now()
	resp := SessionResponse{
		User: UserDTO{
			ID:           user.ID,
			Email:        user.Email,
			FullName:     user.FullName,
			Role:         user.Role,
			AuthProvider: user.AuthProvider,
			IsVerified:   user.IsVerified,
		},
		Tenant: BuildTenantDTO(user.Tenant),
		Billing: BillingDTO{
			Plan:         BuildPlanDTO(h.Catalog, sub),
			Subscription: BuildSubscriptionDTO(sub),
		},
		Access: BuildAccessDTO(now, sub, h.Catalog),
	}

	c.JSON(http.StatusOK, resp)
}
