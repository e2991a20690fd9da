package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"firetrack-site/internal/domain/users"
)

const googleIssuer = "https://accounts.google.com"

type googleIDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// GoogleAuth holds the OAuth client and the two network steps of the
// callback. Exchange and Verify are fields so tests can stub them.
type GoogleAuth struct {
	OAuth            *oauth2.Config
	FrontendRedirect string
	SecureCookie     bool

	Exchange func(ctx context.Context, code string) (rawIDToken string, err error)
	Verify   func(ctx context.Context, rawIDToken string) (*googleIDClaims, error)
}

func NewGoogleAuth(clientID, clientSecret, redirectURL, frontendRedirect string, secure bool) *GoogleAuth {
	g := &GoogleAuth{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		FrontendRedirect: frontendRedirect,
		SecureCookie:     secure,
	}
	g.Exchange = g.exchange
	g.Verify = g.verify
	return g
}

func (g *GoogleAuth) exchange(ctx context.Context, code string) (string, error) {
	tok, err := g.OAuth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("missing id_token")
	}
	return raw, nil
}

func (g *GoogleAuth) verify(ctx context.Context, raw string) (*googleIDClaims, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, errors.New("failed to init google oidc provider")
	}
	idToken, err := provider.Verifier(&oidc.Config{ClientID: g.OAuth.ClientID}).Verify(ctx, raw)
	if err != nil {
		return nil, errors.New("invalid id_token")
	}

	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.New("failed to decode token claims")
	}
	if claims.Email == "" || claims.Sub == "" {
		return nil, errors.New("token missing required claims")
	}
	return &claims, nil
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not configured"})
		return
	}
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}

	c.SetCookie("oauth_state", state, oauthStateMaxAge, "/", "", h.Google.SecureCookie, true)
	c.Redirect(http.StatusFound, h.Google.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not configured"})
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}

	cookieState, err := c.Cookie("oauth_state")
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	ctx := c.Request.Context()

	raw, err := h.Google.Exchange(ctx, code)
	if err != nil {
		h.Log.Warn("google exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}
	claims, err := h.Google.Verify(ctx, raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := h.findOrCreateGoogleUser(ctx, claims)
	if err != nil {
		h.Log.Error("google user upsert failed", zap.String("email", claims.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	tokenString, err := IssueToken(h.JWTSecret, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}

	if h.Google.FrontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": tokenString, "user": toUserDTO(user)})
		return
	}
	c.Redirect(http.StatusFound, h.Google.FrontendRedirect+"?token="+url.QueryEscape(tokenString))
}

// findOrCreateGoogleUser matches by Google subject, then by email (linking
// the account), and otherwise creates a verified owner with its own tenant.
func (h *Handler) findOrCreateGoogleUser(ctx context.Context, gc *googleIDClaims) (users.User, error) {
	db := h.DB.WithContext(ctx)
	email := normalizeEmail(gc.Email)
	var user users.User

	if err := db.Where("google_sub = ?", gc.Sub).First(&user).Error; err == nil {
		return user, nil
	}

	if err := db.Where("email = ?", email).First(&user).Error; err == nil {
		if user.GoogleSub == nil {
			sub := gc.Sub
			user.GoogleSub = &sub
			user.IsVerified = true
			if err := db.Save(&user).Error; err != nil {
				return users.User{}, err
			}
		}
		return user, nil
	}

	sub := gc.Sub
	err := db.Transaction(func(tx *gorm.DB) error {
		tenant, err := createTenant(tx, orgNameFor(gc))
		if err != nil {
			return err
		}
		user = users.User{
			TenantID:     tenant.ID,
			FullName:     firstNonEmpty(gc.Name, strings.TrimSpace(gc.GivenName+" "+gc.FamilyName)),
			Email:        email,
			AuthProvider: users.ProviderGoogle,
			GoogleSub:    &sub,
			Role:         users.RoleOwner,
			IsVerified:   true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return users.User{}, err
	}
	return user, nil
}

func orgNameFor(gc *googleIDClaims) string {
	if n := firstNonEmpty(gc.Name, gc.GivenName); n != "" {
		return n
	}
	return strings.SplitN(gc.Email, "@", 2)[0]
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
