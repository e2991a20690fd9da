package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ModeLive = "live"
	ModeTest = "test"
)

type Config struct {
	Port       string
	AppEnv     string
	AppURL     string
	APIURL     string
	CORSOrigin string
	LogLevel   string

	DBURL     string
	JWTSecret string
	RedisURL  string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	StripePriceMapLive   string
	StripePriceMapTest   string
	StripeReferralCoupon string

	ResendAPIKey string
	MailFrom     string
	SupportEmail string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleRedirectURL      string
	GoogleFrontendRedirect string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	mustEnv := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "dev"),
		AppURL:   strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBURL:     mustEnv("DB_URL"),
		JWTSecret: mustEnv("JWT_SECRET"),
		RedisURL:  getEnv("REDIS_URL", ""),

		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceMapLive:   getEnv("STRIPE_PRICE_MAP_LIVE", ""),
		StripePriceMapTest:   getEnv("STRIPE_PRICE_MAP_TEST", ""),
		StripeReferralCoupon: getEnv("STRIPE_REFERRAL_COUPON_ID", ""),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		MailFrom:     getEnv("MAIL_FROM", "FireTrack <no-reply@firetrack.app>"),
		SupportEmail: getEnv("SUPPORT_EMAIL", "support@firetrack.app"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleFrontendRedirect: getEnv("GOOGLE_FRONTEND_REDIRECT", ""),
	}
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.AppURL)
	cfg.APIURL = strings.TrimRight(getEnv("API_URL", "http://localhost:"+cfg.Port), "/")
	cfg.StripeSecretKey = stripeSecretKey()

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// stripeSecretKey prefers an explicit STRIPE_SECRET_KEY, then the
// mode-specific key selected by STRIPE_MODE.
func stripeSecretKey() string {
	if v := getEnv("STRIPE_SECRET_KEY", ""); v != "" {
		return v
	}
	if strings.EqualFold(getEnv("STRIPE_MODE", ModeTest), ModeLive) {
		return getEnv("STRIPE_SECRET_KEY_LIVE", "")
	}
	return getEnv("STRIPE_SECRET_KEY_TEST", "")
}

// StripeMode reports whether the configured secret key is a live key.
func (c *Config) StripeMode() string {
	if strings.HasPrefix(c.StripeSecretKey, "sk_live_") || strings.HasPrefix(c.StripeSecretKey, "rk_live_") {
		return ModeLive
	}
	return ModeTest
}

// PriceMapJSON returns the env price map for the active mode.
func (c *Config) PriceMapJSON() string {
	if c.StripeMode() == ModeLive {
		return c.StripePriceMapLive
	}
	return c.StripePriceMapTest
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
