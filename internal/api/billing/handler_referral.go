package billing

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/users"
)

const maxGeneratedCodeAttempts = 5

// CreateReferralCode returns the caller's referral code, creating it on the
// first call. Requires an active subscription.
func (h *Handler) CreateReferralCode(c *gin.Context) {
	var body struct {
		DesiredCode string `json:"desired_code"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	userID := c.GetUint(middleware.KeyUserID)
	tenantID := c.GetUint(middleware.KeyTenantID)

	var existing billing.ReferralCode
	err := h.DB.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"code": existing.Code})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load referral code", "details": err.Error()})
		return
	}

	var candidates []string
	if strings.TrimSpace(body.DesiredCode) != "" {
		code, err := billing.NormalizeReferralCode(body.DesiredCode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		taken, err := h.codeTaken(c, code)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check referral code", "details": err.Error()})
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Referral code already taken"})
			return
		}
		candidates = []string{code}
	} else {
		var tenant users.Tenant
		_ = h.DB.WithContext(ctx).Select("name").First(&tenant, tenantID).Error
		for i := 0; i < maxGeneratedCodeAttempts; i++ {
			candidates = append(candidates, billing.GenerateReferralCode(tenant.Name))
		}
	}

	for _, code := range candidates {
		// The row claims the code before any promotion code exists upstream.
		rec := billing.ReferralCode{UserID: userID, TenantID: tenantID, Code: code}
		if err := h.DB.WithContext(ctx).Create(&rec).Error; err != nil {
			taken, terr := h.codeTaken(c, code)
			if terr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check referral code", "details": terr.Error()})
				return
			}
			if !taken {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save referral code", "details": err.Error()})
				return
			}
			if len(candidates) > 1 {
				continue
			}
			c.JSON(http.StatusConflict, gin.H{"error": "Referral code already taken"})
			return
		}

		if h.ReferralCouponID != "" && h.Gateway != nil {
			promoID, err := h.Gateway.CreatePromotionCode(ctx, h.ReferralCouponID, code, map[string]string{
				"referrer_user_id":   fmt.Sprint(userID),
				"referrer_tenant_id": fmt.Sprint(tenantID),
			})
			if err != nil {
				if derr := h.DB.WithContext(ctx).Delete(&rec).Error; derr != nil {
					h.Log.Error("release referral code", zap.String("code", code), zap.Error(derr))
				}
				providerError(c, h.Log, "create promotion code", err)
				return
			}
			if err := h.DB.WithContext(ctx).Model(&rec).Update("stripe_promotion_code_id", promoID).Error; err != nil {
				h.Log.Error("store promotion code id",
					zap.String("code", code),
					zap.String("promotion_code_id", promoID),
					zap.Error(err))
			}
		}

		h.Log.Info("referral code created", zap.Uint("user_id", userID), zap.String("code", code))
		c.JSON(http.StatusOK, gin.H{"code": code})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate a unique referral code"})
}

func (h *Handler) codeTaken(c *gin.Context, code string) (bool, error) {
	var n int64
	err := h.DB.WithContext(c.Request.Context()).Model(&billing.ReferralCode{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}
