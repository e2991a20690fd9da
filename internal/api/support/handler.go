package support

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/infra/mail"
)

var priorities = map[string]bool{"low": true, "normal": true, "high": true, "urgent": true}

type Handler struct {
	Mailer mail.Mailer
	To     string
	Log    *zap.Logger
}

type request struct {
	Subject  string `json:"subject" binding:"required,max=200"`
	Message  string `json:"message" binding:"required,max=10000"`
	Priority string `json:"priority"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// POST /functions/v1/support-request
func (h *Handler) SubmitRequest(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject and message are required", "details": err.Error()})
		return
	}

	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = "normal"
	}
	if !priorities[priority] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be one of low, normal, high, urgent"})
		return
	}

	// a signed-in caller's address beats whatever the form said
	replyTo := c.GetString(middleware.KeyEmail)
	if replyTo == "" {
		replyTo = strings.TrimSpace(req.Email)
	}

	msg := mail.SupportRequestMessage(h.To, replyTo, priority, strings.TrimSpace(req.Subject), req.Message)
	if err := h.Mailer.Send(c.Request.Context(), msg); err != nil {
		h.Log.Error("support request not delivered", zap.String("priority", priority), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send support request", "details": err.Error()})
		return
	}

	h.Log.Info("support request sent", zap.String("priority", priority), zap.Bool("authenticated", c.GetUint(middleware.KeyUserID) != 0))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
