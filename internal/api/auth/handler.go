package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/password"
	"firetrack-site/internal/domain/users"
	"firetrack-site/internal/infra/mail"
)

type Handler struct {
	DB        *gorm.DB
	Mailer    mail.Mailer
	Log       *zap.Logger
	JWTSecret string
	AppURL    string // frontend
	APIURL    string // this service, for links that hit /auth/verify
	Google    *GoogleAuth
}

var errEmailTaken = errors.New("email already registered")

type userDTO struct {
	ID         uint   `json:"id"`
	TenantID   uint   `json:"tenant_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

func toUserDTO(u users.User) userDTO {
	return userDTO{ID: u.ID, TenantID: u.TenantID, Email: u.Email, FullName: u.FullName, Role: u.Role, IsVerified: u.IsVerified}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// checkEmail normalises first and validates the result, so padded or
// mixed-case input is accepted.
func checkEmail(raw string) (string, bool) {
	e := normalizeEmail(raw)
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return e, e != ""
	}
	return e, v.Var(e, "required,email") == nil
}

func (h *Handler) SignUp(c *gin.Context) {
	var input struct {
		Email            string `json:"email" binding:"required"`
		Password         string `json:"password" binding:"required"`
		ConfirmPassword  string `json:"confirm_password" binding:"required"`
		FullName         string `json:"full_name" binding:"required,max=120"`
		OrganizationName string `json:"organization_name" binding:"required,max=160"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email, ok := checkEmail(input.Email)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	if m := password.ValidateMatch(input.Password, input.ConfirmPassword); !m.Matches {
		c.JSON(http.StatusBadRequest, gin.H{"error": m.Error})
		return
	}
	if res := password.ValidateComplexity(input.Password, email); !res.IsValid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password does not meet requirements", "details": res.Errors})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashed := string(hashedPassword)

	token, err := generateVerificationToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create verification token"})
		return
	}

	var user users.User
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&users.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errEmailTaken
		}

		tenant, err := createTenant(tx, input.OrganizationName)
		if err != nil {
			return err
		}

		user = users.User{
			TenantID:     tenant.ID,
			FullName:     strings.TrimSpace(input.FullName),
			Email:        email,
			Password:     &hashed,
			AuthProvider: users.ProviderLocal,
			Role:         users.RoleOwner,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		return tx.Create(&users.VerificationToken{
			UserID:    user.ID,
			Token:     token,
			Type:      users.TokenVerify,
			ExpiresAt: time.Now().Add(verifyTokenTTL),
		}).Error
	})
	if errors.Is(err, errEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		return
	}
	if err != nil {
		h.Log.Error("signup failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account", "details": err.Error()})
		return
	}

	if err := h.sendVerification(c.Request.Context(), user.Email, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Account created but the verification email could not be sent. Use resend verification."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created. Please check your email to verify your account.",
		"user":    toUserDTO(user),
	})
}

func createTenant(tx *gorm.DB, name string) (*users.Tenant, error) {
	slug, err := users.UniqueTenantSlug(tx, name)
	if err != nil {
		return nil, err
	}
	t := &users.Tenant{Name: strings.TrimSpace(name), Slug: slug}
	if err := tx.Create(t).Error; err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return t, nil
}

func (h *Handler) sendVerification(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/auth/verify?token=%s", h.APIURL, token)
	if err := h.Mailer.Send(ctx, mail.VerificationMessage(email, link)); err != nil {
		h.Log.Error("send verification email", zap.String("email", email), zap.Error(err))
		return err
	}
	return nil
}

func (h *Handler) SignIn(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email, ok := checkEmail(input.Email)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	var user users.User
	err := h.DB.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before logging in"})
		return
	}

	tokenString, err := IssueToken(h.JWTSecret, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tokenString, "user": toUserDTO(user)})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}
	ctx := c.Request.Context()

	var t users.VerificationToken
	err := h.DB.WithContext(ctx).Where("token = ? AND type = ?", token, users.TokenVerify).First(&t).Error
	if err != nil || t.Expired(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&users.User{}).Where("id = ?", t.UserID).Update("is_verified", true).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.AppURL+"/signin?verified=1")
}

func (h *Handler) ResendVerification(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}
	email, valid := checkEmail(body.Email)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}
	ok := gin.H{"message": "If the account exists and is not verified, a new email is on its way."}

	var user users.User
	ctx := c.Request.Context()
	if err := h.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil || user.IsVerified {
		c.JSON(http.StatusOK, ok)
		return
	}

	token, err := h.replaceToken(ctx, user.ID, users.TokenVerify, verifyTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store verification token"})
		return
	}
	if err := h.sendVerification(ctx, user.Email, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification email"})
		return
	}
	c.JSON(http.StatusOK, ok)
}

// replaceToken drops the user's tokens of that type and stores a fresh one.
func (h *Handler) replaceToken(ctx context.Context, userID uint, typ string, ttl time.Duration) (string, error) {
	token, err := generateVerificationToken()
	if err != nil {
		return "", err
	}
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND type = ?", userID, typ).Delete(&users.VerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&users.VerificationToken{
			UserID:    userID,
			Token:     token,
			Type:      typ,
			ExpiresAt: time.Now().Add(ttl),
		}).Error
	})
	return token, err
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}
	email, valid := checkEmail(body.Email)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}
	// Don't expose whether the email exists
	ok := gin.H{"message": "If your email exists, you'll receive a reset link."}
	ctx := c.Request.Context()

	var user users.User
	if err := h.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, ok)
		return
	}

	token, err := h.replaceToken(ctx, user.ID, users.TokenPasswordReset, resetTokenTTL)
	if err != nil {
		h.Log.Error("store reset token", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusOK, ok)
		return
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", h.AppURL, token)
	if err := h.Mailer.Send(ctx, mail.PasswordResetMessage(user.Email, link)); err != nil {
		h.Log.Error("send reset email", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, ok)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var body struct {
		Token           string `json:"token" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.ConfirmPassword != "" {
		if m := password.ValidateMatch(body.Password, body.ConfirmPassword); !m.Matches {
			c.JSON(http.StatusBadRequest, gin.H{"error": m.Error})
			return
		}
	}
	ctx := c.Request.Context()

	var reset users.VerificationToken
	err := h.DB.WithContext(ctx).Preload("User").Where("token = ? AND type = ?", body.Token, users.TokenPasswordReset).First(&reset).Error
	if err != nil || reset.Expired(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	if res := password.ValidateComplexity(body.Password, reset.User.Email); !res.IsValid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password does not meet requirements", "details": res.Errors})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&users.User{}).Where("id = ?", reset.UserID).Update("password", string(hashed)).Error; err != nil {
			return err
		}
		return tx.Delete(&reset).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID := c.GetUint(middleware.KeyUserID)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	ctx := c.Request.Context()

	var user users.User
	if err := h.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "This account does not have a password. Sign in with Google or set a password first.",
		})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(body.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Old password is incorrect"})
		return
	}
	if res := password.ValidateComplexity(body.NewPassword, user.Email); !res.IsValid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password does not meet requirements", "details": res.Errors})
		return
	}

	hashedNew, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	if err := h.DB.WithContext(ctx).Model(&user).Update("password", string(hashedNew)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// PasswordStrength backs the live strength meter on the signup form.
func (h *Handler) PasswordStrength(c *gin.Context) {
	var body struct {
		Password        string  `json:"password"`
		Username        string  `json:"username"`
		ConfirmPassword *string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp := gin.H{"result": password.ValidateComplexity(body.Password, body.Username)}
	if body.ConfirmPassword != nil {
		resp["match"] = password.ValidateMatch(body.Password, *body.ConfirmPassword)
	}
	c.JSON(http.StatusOK, resp)
}
