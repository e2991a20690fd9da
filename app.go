package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/config"
	"firetrack-site/database"
	adminapi "firetrack-site/internal/api/admin"
	authapi "firetrack-site/internal/api/auth"
	billingapi "firetrack-site/internal/api/billing"
	feedbackapi "firetrack-site/internal/api/feedback"
	plansapi "firetrack-site/internal/api/plans"
	stripewebhooks "firetrack-site/internal/api/stripewebhook"
	supportapi "firetrack-site/internal/api/support"
	usersapi "firetrack-site/internal/api/users"
	routes "firetrack-site/internal/app/http"
	"firetrack-site/internal/domain/feedback"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/infra/mail"
	"firetrack-site/internal/infra/stripe"
	"firetrack-site/internal/logging"
	"firetrack-site/internal/pricing"
)

// app owns the process-wide dependencies. Nothing here is global.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	rdb     *redis.Client
	gateway stripe.Gateway
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db}

	// Without a key the service still serves auth and feedback; billing
	// endpoints answer "Stripe key not configured".
	if client, err := stripe.NewClient(cfg.StripeSecretKey); err != nil {
		log.Warn("stripe disabled", zap.Error(err))
	} else {
		a.gateway = client
	}

	if cfg.RedisURL != "" {
		rdb, err := pricing.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
	}
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

// resolver chains explicit id, DB mappings (cached when redis is up), the env
// map and the built-in catalog. A malformed env map is logged and dropped.
func (a *app) resolver() *pricing.Resolver {
	var mapping pricing.Source = pricing.MappingSource{DB: a.db}
	if a.rdb != nil {
		mapping = pricing.NewCachedSource(a.log, mapping, a.rdb, pricing.DefaultCacheTTL)
	}
	sources := []pricing.Source{pricing.ExplicitSource{}, mapping}

	env, err := pricing.NewEnvSource(a.cfg.StripePriceMapLive, a.cfg.StripePriceMapTest)
	if err != nil {
		a.log.Error("env price map ignored", zap.Error(err))
	} else {
		sources = append(sources, env)
	}
	sources = append(sources, pricing.CatalogSource{Catalog: plans.Default()})
	return pricing.NewResolver(a.log.Named("pricing"), sources...)
}

func (a *app) router() *gin.Engine {
	cfg := a.cfg
	catalog := plans.Default()
	mode := cfg.StripeMode()

	mailer := mail.New(mail.Config{
		ResendAPIKey: cfg.ResendAPIKey,
		From:         cfg.MailFrom,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	}, a.log.Named("mail"))

	authHandler := &authapi.Handler{
		DB:        a.db,
		Mailer:    mailer,
		Log:       a.log.Named("auth"),
		JWTSecret: cfg.JWTSecret,
		AppURL:    cfg.AppURL,
		APIURL:    cfg.APIURL,
	}
	if cfg.GoogleEnabled() {
		authHandler.Google = authapi.NewGoogleAuth(cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL, cfg.GoogleFrontendRedirect, !cfg.IsDev())
	}

	h := routes.Handlers{
		DB:        a.db,
		JWTSecret: cfg.JWTSecret,
		Auth:      authHandler,
		Session:   &usersapi.Handler{DB: a.db, Catalog: catalog},
		Billing: &billingapi.Handler{
			DB:               a.db,
			Gateway:          a.gateway,
			Prices:           a.resolver(),
			Catalog:          catalog,
			Log:              a.log.Named("billing"),
			AppURL:           cfg.AppURL,
			Mode:             mode,
			ReferralCouponID: cfg.StripeReferralCoupon,
		},
		Webhook: &stripewebhooks.Handler{
			DB:      a.db,
			Gateway: a.gateway,
			Secret:  cfg.StripeWebhookSecret,
			Log:     a.log.Named("webhook"),
		},
		Support:  &supportapi.Handler{Mailer: mailer, To: cfg.SupportEmail, Log: a.log.Named("support")},
		Feedback: &feedbackapi.Handler{Store: feedback.NewStore(a.db), Log: a.log.Named("feedback")},
		Plans:    &plansapi.Handler{DB: a.db, Catalog: catalog, Gateway: a.gateway, Mode: mode, Log: a.log},
		Admin:    &adminapi.Handler{DB: a.db},
	}
	return routes.NewEngine(a.log, cfg.CORSOrigin, h)
}
