package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	adminapi "firetrack-site/internal/api/admin"
	authapi "firetrack-site/internal/api/auth"
	billingapi "firetrack-site/internal/api/billing"
	feedbackapi "firetrack-site/internal/api/feedback"
	plansapi "firetrack-site/internal/api/plans"
	stripewebhooks "firetrack-site/internal/api/stripewebhook"
	supportapi "firetrack-site/internal/api/support"
	usersapi "firetrack-site/internal/api/users"
	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/users"
)

// Handlers groups every HTTP handler the server mounts.
type Handlers struct {
	DB        *gorm.DB
	JWTSecret string

	Auth     *authapi.Handler
	Session  *usersapi.Handler
	Billing  *billingapi.Handler
	Webhook  *stripewebhooks.Handler
	Support  *supportapi.Handler
	Feedback *feedbackapi.Handler
	Plans    *plansapi.Handler
	Admin    *adminapi.Handler
}

// NewEngine builds the gin engine with recovery, request logging and CORS
// ahead of the routes. corsOrigins is a comma separated list.
func NewEngine(log *zap.Logger, corsOrigins string, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	// CORS must run before the routes so preflight requests short-circuit
	cfg := cors.Config{
		AllowOrigins:     splitOrigins(corsOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Client-Info", "Apikey"},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	r.Use(cors.New(cfg))

	RegisterRoutes(r, h)
	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	requireAuth := middleware.AuthMiddleware(h.JWTSecret)
	optionalAuth := middleware.OptionalAuth(h.JWTSecret)
	// Only free-text user content is sanitised. Credentials must reach
	// bcrypt byte for byte.
	sanitize := middleware.SanitizeAndCleanInputMiddleware()

	r.POST("/webhook/stripe", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/plans", h.Plans.ListPlans)

	// Auth
	a := r.Group("/auth")
	a.POST("/signup", h.Auth.SignUp)
	a.POST("/signin", h.Auth.SignIn)
	a.GET("/verify", h.Auth.VerifyEmail)
	a.POST("/resend-verification", h.Auth.ResendVerification)
	a.POST("/password-reset", h.Auth.RequestPasswordReset)
	a.POST("/password-reset/confirm", h.Auth.ResetPassword)
	a.POST("/password/strength", h.Auth.PasswordStrength)
	a.GET("/google", h.Auth.GoogleStart)
	a.GET("/google/callback", h.Auth.GoogleCallback)
	a.GET("/session", requireAuth, h.Session.GetSession)
	a.POST("/password/change", requireAuth, h.Auth.ChangePassword)

	// Billing functions
	fn := r.Group("/functions/v1")
	fn.POST("/create-invoice", optionalAuth, h.Billing.CreateInvoice)
	fn.POST("/support-request", optionalAuth, sanitize, h.Support.SubmitRequest)

	authed := fn.Group("/", requireAuth)
	authed.POST("/check-subscription", h.Billing.CheckSubscription)
	authed.POST("/create-checkout", h.Billing.CreateCheckout)
	authed.POST("/customer-portal", h.Billing.CustomerPortal)
	authed.GET("/invoices", h.Billing.GetInvoiceHistory)

	// Subscribed tenants
	subscribed := authed.Group("/", middleware.RequireActiveSubscription(h.DB))
	subscribed.POST("/create-referral-code", h.Billing.CreateReferralCode)

	// Feedback board
	fb := r.Group("/api")
	fb.GET("/feature-requests", h.Feedback.ListRequests)
	fb.POST("/feature-requests", sanitize, h.Feedback.CreateRequest)
	fb.POST("/feature-requests/:id/vote", h.Feedback.Vote)
	fb.GET("/feature-votes/count", h.Feedback.VoteCount)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(requireAuth, middleware.RequireRole(users.RoleAdmin))
	admin.GET("/users", h.Admin.ListUsers)
	admin.GET("/users/:id", h.Admin.GetUserDetails)
	admin.GET("/invoices", h.Admin.ListInvoices)
	admin.GET("/stats", h.Admin.GetStats)
	admin.PATCH("/feature-requests/:id", h.Feedback.UpdateStatus)
	admin.POST("/sync-prices", h.Plans.SyncPrices)
}
