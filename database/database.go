package database

import (
	"fmt"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/feedback"
	"firetrack-site/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL. Callers own the returned handle.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		// auth
		&users.Tenant{},
		&users.User{},
		&users.VerificationToken{},

		// billing
		&billing.Subscription{},
		&billing.PriceMapping{},
		&billing.Invoice{},
		&billing.ReferralCode{},

		// feedback
		&feedback.FeatureRequest{},
		&feedback.FeatureVote{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
