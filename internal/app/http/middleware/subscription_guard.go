package middleware

import (
	"errors"
	"net/http"
	"time"

	"firetrack-site/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequireActiveSubscription lets the request through only when the caller's
// tenant has an entitling subscription. Must run after AuthMiddleware.
func RequireActiveSubscription(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetUint(KeyTenantID)

		var sub billing.Subscription
		err := db.WithContext(c.Request.Context()).Where("tenant_id = ?", tenantID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !billing.IsEntitling(sub.Status)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Subscription not found or expired",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}

		if !sub.Active(time.Now()) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Your subscription has expired",
			})
			return
		}

		c.Set("subscription", &sub)
		c.Next()
	}
}
