package billing

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidReferralCode = errors.New("referral code must be 4-20 characters of A-Z, 0-9 or '-'")

	referralCodePattern = regexp.MustCompile(`^[A-Z0-9-]{4,20}$`)
)

type ReferralCode struct {
	ID                    uint   `gorm:"primaryKey"`
	UserID                uint   `gorm:"not null;uniqueIndex"`
	TenantID              uint   `gorm:"not null;index"`
	Code                  string `gorm:"type:varchar(20);not null;uniqueIndex"`
	StripePromotionCodeID *string
	CreatedAt             time.Time
}

// NormalizeReferralCode upper-cases and validates a user-chosen code.
func NormalizeReferralCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !referralCodePattern.MatchString(c) {
		return "", ErrInvalidReferralCode
	}
	return c, nil
}

// GenerateReferralCode returns a random 8-character code, optionally
// prefixed with a tenant hint ("ACME-1F3A9C0B").
func GenerateReferralCode(prefix string) string {
	id := uuid.New()
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])

	p := strings.ToUpper(strings.TrimSpace(prefix))
	p = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, p)
	if len(p) > 6 {
		p = p[:6]
	}
	if len(p) < 2 {
		return suffix
	}
	return p + "-" + suffix
}
