package support

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/users"
	"firetrack-site/internal/testutil"
)

func setup(t *testing.T) (*gin.Engine, *testutil.FakeMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mailer := &testutil.FakeMailer{}
	h := &Handler{Mailer: mailer, To: "support@firetrack.test", Log: zap.NewNop()}

	r := gin.New()
	r.POST("/functions/v1/support-request", middleware.OptionalAuth(testutil.JWTSecret), middleware.SanitizeAndCleanInputMiddleware(), h.SubmitRequest)
	return r, mailer
}

func post(r *gin.Engine, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/support-request", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitRequest_Authenticated(t *testing.T) {
	r, mailer := setup(t)
	u := users.User{ID: 7, TenantID: 3, Email: "chief@example.com", Role: users.RoleOwner}

	w := post(r, `{"subject":"Inspection export","message":"CSV is empty","priority":"HIGH","email":"other@example.com"}`, testutil.Bearer(t, u))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	msg, ok := mailer.Last()
	require.True(t, ok)
	assert.Equal(t, []string{"support@firetrack.test"}, msg.To)
	assert.Equal(t, "chief@example.com", msg.ReplyTo)
	assert.Equal(t, "[Support][high] Inspection export", msg.Subject)
}

func TestSubmitRequest_AnonymousDefaultsAndSanitizes(t *testing.T) {
	r, mailer := setup(t)

	w := post(r, `{"subject":"Hi <script>alert(1)</script>","message":"help"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	msg, _ := mailer.Last()
	assert.Empty(t, msg.ReplyTo)
	assert.Equal(t, "[Support][normal] Hi", msg.Subject)
}

func TestSubmitRequest_Validation(t *testing.T) {
	r, mailer := setup(t)

	assert.Equal(t, http.StatusBadRequest, post(r, `{"subject":"x"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(r, `{"subject":"x","message":"y","priority":"critical"}`, "").Code)
	assert.Empty(t, mailer.Sent)
}

func TestSubmitRequest_MailFailure(t *testing.T) {
	r, mailer := setup(t)
	mailer.Err = errors.New("mail API error: rate limited (429)")

	w := post(r, `{"subject":"x","message":"y"}`, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "rate limited")
}
