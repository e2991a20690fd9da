package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/internal/app/http/middleware"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/infra/stripe"
	"firetrack-site/internal/pricing"
	"firetrack-site/internal/testutil"
)

type fixture struct {
	r  *gin.Engine
	h  *Handler
	db *gorm.DB
	gw *testutil.FakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	gw := testutil.NewFakeGateway()
	env, err := pricing.NewEnvSource("", `{"starter":{"monthly":"price_env_starter"},"professional":{"monthly":"price_env_pro","annual":"price_env_pro_annual"}}`)
	require.NoError(t, err)

	h := &Handler{
		DB:               db,
		Gateway:          gw,
		Prices:           pricing.NewResolver(zap.NewNop(), pricing.ExplicitSource{}, pricing.MappingSource{DB: db}, env),
		Catalog:          plans.Default(),
		Log:              zap.NewNop(),
		AppURL:           "https://app.firetrack.test",
		Mode:             "test",
		ReferralCouponID: "coupon_ref",
	}

	r := gin.New()
	fn := r.Group("/functions/v1")
	fn.POST("/create-invoice", middleware.OptionalAuth(testutil.JWTSecret), h.CreateInvoice)
	authed := fn.Group("/", middleware.AuthMiddleware(testutil.JWTSecret))
	authed.POST("/check-subscription", h.CheckSubscription)
	authed.POST("/create-checkout", h.CreateCheckout)
	authed.POST("/customer-portal", h.CustomerPortal)
	authed.GET("/invoices", h.GetInvoiceHistory)
	authed.POST("/create-referral-code", middleware.RequireActiveSubscription(db), h.CreateReferralCode)

	return &fixture{r: r, h: h, db: db, gw: gw}
}

func (f *fixture) do(method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCheckSubscription(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	token := testutil.Bearer(t, u)

	w := f.do(http.MethodPost, "/functions/v1/check-subscription", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed":false}`, w.Body.String())

	end := time.Now().Add(20 * 24 * time.Hour).UTC().Truncate(time.Second)
	f.gw.Customers[u.Email] = &stripe.Customer{ID: "cus_1", Email: u.Email}
	f.gw.Subscriptions["cus_1"] = &stripe.Subscription{ID: "sub_1", CustomerID: "cus_1", Status: "active", PriceID: "price_pro", PlanID: "professional", CurrentPeriodEnd: end}

	w = f.do(http.MethodPost, "/functions/v1/check-subscription", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["subscribed"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "professional", body["plan_id"])

	sub, err := billing.SubscriptionForTenant(context.Background(), f.db, u.TenantID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
	assert.True(t, sub.Active(time.Now()))
}

func TestCheckSubscription_KeepsLapsedSubscriptionRow(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	token := testutil.Bearer(t, u)

	end := time.Now().Add(10 * 24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, billing.UpsertSubscription(context.Background(), f.db, &billing.Subscription{
		TenantID:             u.TenantID,
		Status:               "past_due",
		StripeSubscriptionID: "sub_1",
		StripeCustomerID:     "cus_1",
		PlanID:               "professional",
		CurrentPeriodEnd:     &end,
	}))
	f.gw.Customers[u.Email] = &stripe.Customer{ID: "cus_1", Email: u.Email}
	f.gw.Subscriptions["cus_1"] = &stripe.Subscription{ID: "sub_1", CustomerID: "cus_1", Status: "past_due", PlanID: "professional", CurrentPeriodEnd: end}

	w := f.do(http.MethodPost, "/functions/v1/check-subscription", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["subscribed"])
	assert.Equal(t, "past_due", body["status"])

	sub, err := billing.SubscriptionForTenant(context.Background(), f.db, u.TenantID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "past_due", sub.Status)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, end.Equal(*sub.CurrentPeriodEnd))

	// a customer removed at the provider does not wipe the row either
	delete(f.gw.Customers, u.Email)
	w = f.do(http.MethodPost, "/functions/v1/check-subscription", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	sub, err = billing.SubscriptionForTenant(context.Background(), f.db, u.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "past_due", sub.Status)
}

func TestCheckSubscription_ProviderError(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	f.gw.Err = errors.New("Invalid API Key provided")

	w := f.do(http.MethodPost, "/functions/v1/check-subscription", testutil.Bearer(t, u), "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"subscribed":false,"error":"Invalid API Key provided"}`, w.Body.String())
}

func TestCheckSubscription_RequiresBearer(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/functions/v1/check-subscription", "", "").Code)
}

func TestCreateCheckout(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")

	w := f.do(http.MethodPost, "/functions/v1/create-checkout", testutil.Bearer(t, u),
		`{"planId":"professional","billingCycle":"annual","metadata":{"plan_name":"Professional","user_id":"spoofed"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, f.gw.CheckoutURL, body["url"])
	assert.NotEmpty(t, body["sessionId"])

	require.Len(t, f.gw.Checkouts, 1)
	in := f.gw.Checkouts[0]
	assert.Equal(t, "price_env_pro_annual", in.PriceID)
	assert.Equal(t, "Professional", in.Metadata["plan_name"])
	assert.NotEqual(t, "spoofed", in.Metadata["user_id"])
	assert.Equal(t, "professional", in.Metadata["plan_id"])
	assert.Contains(t, in.SuccessURL, "https://app.firetrack.test/")
	assert.Len(t, f.gw.CreatedCustomers, 1)
}

func TestCreateCheckout_ExplicitPriceWins(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")

	w := f.do(http.MethodPost, "/functions/v1/create-checkout", testutil.Bearer(t, u), `{"priceId":"price_explicit","planId":"starter"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "price_explicit", f.gw.Checkouts[0].PriceID)
}

func TestCreateCheckout_AnnualFallsBackToMonthly(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")

	w := f.do(http.MethodPost, "/functions/v1/create-checkout", testutil.Bearer(t, u), `{"planId":"starter","billingCycle":"annual"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "price_env_starter", f.gw.Checkouts[0].PriceID)
}

func TestCreateCheckout_Errors(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	token := testutil.Bearer(t, u)

	w := f.do(http.MethodPost, "/functions/v1/create-checkout", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "priceId or planId is required", decode(t, w)["error"])

	w = f.do(http.MethodPost, "/functions/v1/create-checkout", token, `{"planId":"professional","billingCycle":"weekly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid billing cycle", decode(t, w)["error"])
	assert.Empty(t, f.gw.Checkouts)

	w = f.do(http.MethodPost, "/functions/v1/create-checkout", token, `{"planId":"enterprise","billingCycle":"monthly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "price not configured")

	f.gw.CheckoutURL = ""
	w = f.do(http.MethodPost, "/functions/v1/create-checkout", token, `{"priceId":"price_x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	f.h.Gateway = nil
	w = f.do(http.MethodPost, "/functions/v1/create-checkout", token, `{"priceId":"price_x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Stripe key not configured", decode(t, w)["error"])
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	f.gw.Promotions["SPRING24"] = "promo_1"

	w := f.do(http.MethodPost, "/functions/v1/create-invoice", "", `{
		"planId":"professional","billingCycle":"monthly","promoCode":"SPRING24",
		"customerInfo":{"name":"Dana Ortiz","email":"Dana@Example.com","company":"Ortiz Fire","address":{"line1":"1 Main","city":"Austin","postal_code":"78701","country":"US"}},
		"metadata":{"source":"pricing_page"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	inv := body["invoice"].(map[string]any)
	assert.NotEmpty(t, inv["id"])
	assert.NotEmpty(t, inv["hosted_invoice_url"])
	assert.NotEmpty(t, inv["due_date"])
	cus := body["customer"].(map[string]any)
	assert.Equal(t, "dana@example.com", cus["email"])

	require.Len(t, f.gw.InvoiceInputs, 1)
	assert.Equal(t, "price_env_pro", f.gw.InvoiceInputs[0].PriceID)
	assert.Equal(t, "promo_1", f.gw.InvoiceInputs[0].PromotionCodeID)
	assert.Equal(t, "invoice", f.gw.InvoiceInputs[0].Metadata["billing_method"])
	assert.Equal(t, "monthly", f.gw.InvoiceInputs[0].Metadata["billing_cycle"])
	assert.Equal(t, "pricing_page", f.gw.InvoiceInputs[0].Metadata["source"])
	assert.Equal(t, "Ortiz Fire", f.gw.CreatedCustomers[0].Company)

	var rec billing.Invoice
	require.NoError(t, f.db.First(&rec).Error)
	assert.Equal(t, "dana@example.com", rec.CustomerEmail)
	assert.Equal(t, "SPRING24", *rec.PromoCode)
}

func TestCreateInvoice_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/functions/v1/create-invoice", "", `{"planId":"starter"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Customer information")

	w = f.do(http.MethodPost, "/functions/v1/create-invoice", "", `{"planId":"starter","customerInfo":{"name":"","email":"a@b.co"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/functions/v1/create-invoice", "", `{"planId":"starter","promoCode":"NOPE","customerInfo":{"name":"A","email":"a@b.co"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "promo code")
	assert.Empty(t, f.gw.InvoiceInputs)
}

func TestCreateInvoice_ProviderErrorPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.gw.Err = errors.New("No such price: 'price_env_starter'")

	w := f.do(http.MethodPost, "/functions/v1/create-invoice", "", `{"planId":"starter","customerInfo":{"name":"A","email":"a@b.co"}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "No such price: 'price_env_starter'", decode(t, w)["error"])
}

func TestCustomerPortal(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	token := testutil.Bearer(t, u)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/functions/v1/customer-portal", token, "").Code)

	f.gw.Customers[u.Email] = &stripe.Customer{ID: "cus_1"}
	w := f.do(http.MethodPost, "/functions/v1/customer-portal", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["url"], "cus_1")
}

func TestInvoiceHistory(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	require.NoError(t, f.db.Create(&billing.Invoice{StripeInvoiceID: "in_1", CustomerEmail: u.Email, Status: "open"}).Error)
	require.NoError(t, f.db.Create(&billing.Invoice{StripeInvoiceID: "in_2", CustomerEmail: "other@x.io", Status: "open"}).Error)

	w := f.do(http.MethodGet, "/functions/v1/invoices", testutil.Bearer(t, u), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []billing.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "in_1", got[0].StripeInvoiceID)
}

func subscribe(t *testing.T, db *gorm.DB, tenantID uint) {
	t.Helper()
	end := time.Now().Add(24 * time.Hour)
	require.NoError(t, billing.UpsertSubscription(context.Background(), db, &billing.Subscription{TenantID: tenantID, Status: "active", CurrentPeriodEnd: &end}))
}

func TestCreateReferralCode(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	token := testutil.Bearer(t, u)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/functions/v1/create-referral-code", token, "").Code)

	subscribe(t, f.db, u.TenantID)

	w := f.do(http.MethodPost, "/functions/v1/create-referral-code", token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code := decode(t, w)["code"].(string)
	_, err := billing.NormalizeReferralCode(code)
	assert.NoError(t, err)
	assert.Equal(t, []string{code}, f.gw.CreatedPromos)

	// second call returns the same code
	w = f.do(http.MethodPost, "/functions/v1/create-referral-code", token, `{"desired_code":"OTHER-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, code, decode(t, w)["code"])
}

func TestCreateReferralCode_Desired(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedUser(t, f.db, "a@county.gov")
	b := testutil.SeedUser(t, f.db, "b@county.gov")
	subscribe(t, f.db, a.TenantID)
	subscribe(t, f.db, b.TenantID)

	w := f.do(http.MethodPost, "/functions/v1/create-referral-code", testutil.Bearer(t, a), `{"desired_code":"station-9"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "STATION-9", decode(t, w)["code"])

	w = f.do(http.MethodPost, "/functions/v1/create-referral-code", testutil.Bearer(t, b), `{"desired_code":"STATION-9"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/functions/v1/create-referral-code", testutil.Bearer(t, b), `{"desired_code":"no"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReferralCode_StoresPromotionID(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	subscribe(t, f.db, u.TenantID)

	w := f.do(http.MethodPost, "/functions/v1/create-referral-code", testutil.Bearer(t, u), `{"desired_code":"ENGINE-7"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rec billing.ReferralCode
	require.NoError(t, f.db.Where("user_id = ?", u.ID).First(&rec).Error)
	require.NotNil(t, rec.StripePromotionCodeID)
	assert.Equal(t, f.gw.Promotions["ENGINE-7"], *rec.StripePromotionCodeID)
}

func TestCreateReferralCode_LostInsertCreatesNoPromotion(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	subscribe(t, f.db, u.TenantID)

	// A rival claims the code between the availability check and the insert.
	claimed := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:rival_referral_code", func(tx *gorm.DB) {
		if claimed || tx.Statement.Table != "referral_codes" {
			return
		}
		claimed = true
		tx.AddError(tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO referral_codes (user_id, tenant_id, code, created_at) VALUES (?, ?, ?, ?)",
			9999, 9999, "ENGINE-7", time.Now()).Error)
	}))

	w := f.do(http.MethodPost, "/functions/v1/create-referral-code", testutil.Bearer(t, u), `{"desired_code":"ENGINE-7"}`)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Empty(t, f.gw.CreatedPromos)

	var n int64
	f.db.Model(&billing.ReferralCode{}).Where("user_id = ?", u.ID).Count(&n)
	assert.Zero(t, n)
}

func TestCreateReferralCode_PromotionFailureReleasesCode(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chief@county.gov")
	subscribe(t, f.db, u.TenantID)
	f.gw.Err = errors.New("stripe unavailable")

	w := f.do(http.MethodPost, "/functions/v1/create-referral-code", testutil.Bearer(t, u), `{"desired_code":"ENGINE-7"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var n int64
	f.db.Model(&billing.ReferralCode{}).Where("code = ?", "ENGINE-7").Count(&n)
	assert.Zero(t, n)

	f.gw.Err = nil
	w = f.do(http.MethodPost, "/functions/v1/create-referral-code", testutil.Bearer(t, u), `{"desired_code":"ENGINE-7"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"ENGINE-7"}, f.gw.CreatedPromos)
}
