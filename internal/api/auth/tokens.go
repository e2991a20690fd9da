package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"firetrack-site/internal/domain/users"
)

const (
	sessionTTL       = 24 * time.Hour
	verifyTokenTTL   = 24 * time.Hour
	resetTokenTTL    = time.Hour
	oauthStateMaxAge = 300
)

// IssueToken signs the bearer token handed out at sign-in.
func IssueToken(secret string, u users.User) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   u.ID,
		"tenant_id": u.TenantID,
		"email":     u.Email,
		"role":      u.Role,
		"exp":       time.Now().Add(sessionTTL).Unix(),
	})
	return t.SignedString([]byte(secret))
}

func generateVerificationToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
