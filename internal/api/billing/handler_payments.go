package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/billing"
)

// GetInvoiceHistory lists invoices issued to the caller's email.
func (h *Handler) GetInvoiceHistory(c *gin.Context) {
	email := c.GetString(middleware.KeyEmail)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var invoices []billing.Invoice
	if err := h.DB.WithContext(c.Request.Context()).
		Where("customer_email = ?", email).
		Order("created_at DESC").
		Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invoices"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}
