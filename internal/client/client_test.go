package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	feedbackapi "firetrack-site/internal/api/feedback"
	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/feedback"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/testutil"
)

type recorded struct {
	path   string
	auth   string
	body   map[string]any
	status int
	reply  any
}

// stubServer answers every request with rec.status/rec.reply and keeps the
// last request in rec.
func stubServer(t *testing.T, rec *recorded) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.RequestURI()
		rec.auth = r.Header.Get("Authorization")
		rec.body = nil
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		w.Header().Set("Content-Type", "application/json")
		if rec.status != 0 {
			w.WriteHeader(rec.status)
		}
		_ = json.NewEncoder(w).Encode(rec.reply)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL+"/", WithToken("tok"))
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCreateCheckoutSession(t *testing.T) {
	rec := &recorded{reply: map[string]string{"url": "https://checkout.test/x", "sessionId": "cs_1"}}
	c := stubServer(t, rec)

	s, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		PriceID: "price_pro", PlanName: "Professional",
		BillingMethod: billing.MethodSubscription, BillingCycle: billing.CycleAnnual,
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.SessionID)
	assert.Equal(t, "/functions/v1/create-checkout", rec.path)
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Equal(t, "price_pro", rec.body["priceId"])
	assert.Equal(t, map[string]any{
		"plan_name":      "Professional",
		"billing_method": "subscription",
		"billing_cycle":  "annual",
		"source":         "pricing_page",
		"requested_at":   "2026-03-01T12:00:00Z",
	}, rec.body["metadata"])
}

func TestCreateCheckoutSession_Failures(t *testing.T) {
	rec := &recorded{reply: map[string]string{"sessionId": "cs_1"}}
	c := stubServer(t, rec)
	ok := CheckoutRequest{PriceID: "p", PlanName: "n", BillingMethod: billing.MethodSubscription, BillingCycle: billing.CycleMonthly}

	_, err := c.CreateCheckoutSession(context.Background(), ok)
	assert.ErrorIs(t, err, ErrNoCheckoutURL)

	missing := ok
	missing.PriceID = ""
	rec.path = ""
	_, err = c.CreateCheckoutSession(context.Background(), missing)
	assert.ErrorContains(t, err, "invalid checkout request")
	assert.Empty(t, rec.path, "no request for an invalid payload")

	rec.status, rec.reply = http.StatusBadRequest, map[string]string{"error": "Price not configured for plan"}
	_, err = c.CreateCheckoutSession(context.Background(), ok)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Price not configured for plan", apiErr.Message)
}

func TestCreateInvoice(t *testing.T) {
	rec := &recorded{reply: map[string]any{
		"success":  true,
		"invoice":  map[string]any{"id": "in_1", "amount_due": 14900, "currency": "usd"},
		"customer": map[string]any{"id": "cus_1", "email": "ap@county.gov"},
	}}
	c := stubServer(t, rec)

	res, err := c.CreateInvoice(context.Background(), InvoiceRequest{
		PriceID: "price_pro", PlanName: "Professional", BillingCycle: billing.CycleMonthly,
		Customer:  &CustomerInfo{Name: "County AP", Email: "ap@county.gov"},
		PromoCode: "SPRING",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 14900, res.Invoice.AmountDue)
	assert.Equal(t, "/functions/v1/create-invoice", rec.path)
	assert.Equal(t, "SPRING", rec.body["promoCode"])
	assert.Equal(t, "invoice", rec.body["metadata"].(map[string]any)["billing_method"])
	assert.Equal(t, "ap@county.gov", rec.body["customerInfo"].(map[string]any)["email"])

	rec.reply = map[string]any{"success": false}
	_, err = c.CreateInvoice(context.Background(), InvoiceRequest{
		PriceID: "p", PlanName: "n", BillingCycle: billing.CycleMonthly,
		Customer: &CustomerInfo{Name: "x", Email: "x@example.com"},
	})
	assert.ErrorIs(t, err, ErrInvoiceNotCreated)

	_, err = c.CreateInvoice(context.Background(), InvoiceRequest{
		PriceID: "p", PlanName: "n", BillingCycle: billing.CycleMonthly,
		Customer: &CustomerInfo{Name: "x", Email: "not-an-email"},
	})
	assert.ErrorContains(t, err, "invalid invoice request")
}

func TestProcessBilling(t *testing.T) {
	rec := &recorded{reply: map[string]any{"url": "https://checkout.test/x", "success": true}}
	c := stubServer(t, rec)
	ctx := context.Background()

	res, err := c.ProcessBilling(ctx, ProcessRequest{
		PriceID: "p", PlanName: "n", BillingMethod: billing.MethodSubscription, BillingCycle: billing.CycleMonthly,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Checkout)
	assert.Nil(t, res.Invoice)

	_, err = c.ProcessBilling(ctx, ProcessRequest{
		PriceID: "p", PlanName: "n", BillingMethod: billing.MethodInvoice, BillingCycle: billing.CycleMonthly,
	})
	assert.ErrorIs(t, err, ErrCustomerInfoRequired)
	assert.Equal(t, "Customer information is required for invoice billing", err.Error())

	res, err = c.ProcessBilling(ctx, ProcessRequest{
		PriceID: "p", PlanName: "n", BillingMethod: billing.MethodInvoice, BillingCycle: billing.CycleMonthly,
		Customer: &CustomerInfo{Name: "x", Email: "x@example.com"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Invoice)
	assert.Equal(t, "/functions/v1/create-invoice", rec.path)

	_, err = c.ProcessBilling(ctx, ProcessRequest{BillingMethod: "wire"})
	assert.ErrorIs(t, err, ErrInvalidBillingMethod)
}

func TestProcessBilling_PlanSelection(t *testing.T) {
	rec := &recorded{reply: map[string]any{"url": "https://checkout.test/x"}}
	c := stubServer(t, rec)
	ctx := context.Background()

	// without a catalog the plan goes to the server
	_, err := c.ProcessBilling(ctx, ProcessRequest{
		PlanID: "professional", PlanName: "Professional", BillingMethod: billing.MethodSubscription, BillingCycle: billing.CycleAnnual,
	})
	require.NoError(t, err)
	assert.Equal(t, "professional", rec.body["planId"])
	assert.Equal(t, "annual", rec.body["billingCycle"])
	assert.NotContains(t, rec.body, "priceId")

	WithCatalog(plans.Default(), "test")(c)
	_, err = c.ProcessBilling(ctx, ProcessRequest{
		PlanID: "starter", PlanName: "Starter", BillingMethod: billing.MethodSubscription, BillingCycle: billing.CycleAnnual,
	})
	require.NoError(t, err)
	assert.Equal(t, "price_test_starter_monthly", rec.body["priceId"])

	rec.path = ""
	_, err = c.ProcessBilling(ctx, ProcessRequest{PlanName: "n", BillingMethod: billing.MethodSubscription, BillingCycle: billing.CycleMonthly})
	assert.ErrorIs(t, err, billing.ErrMissingPlan)
	_, err = c.ProcessBilling(ctx, ProcessRequest{PriceID: "p", PlanName: "n", BillingMethod: billing.MethodInvoice, BillingCycle: "weekly"})
	assert.ErrorIs(t, err, billing.ErrInvalidCycle)
	assert.Empty(t, rec.path)
}

func TestAccountCalls(t *testing.T) {
	rec := &recorded{}
	c := stubServer(t, rec)
	ctx := context.Background()

	rec.reply = map[string]any{"subscribed": true, "status": "active", "plan_id": "starter"}
	st, err := c.CheckSubscription(ctx)
	require.NoError(t, err)
	assert.True(t, st.Subscribed)
	assert.Equal(t, "starter", st.PlanID)

	rec.reply = map[string]string{"url": "https://billing.test/p"}
	u, err := c.OpenCustomerPortal(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.test/p", u)

	rec.reply = map[string]string{"code": "ENGINE-7"}
	code, err := c.CreateReferralCode(ctx, "engine-7")
	require.NoError(t, err)
	assert.Equal(t, "ENGINE-7", code)
	assert.Equal(t, "engine-7", rec.body["desired_code"])

	rec.reply = map[string]bool{"success": true}
	require.NoError(t, c.SubmitSupportRequest(ctx, SupportRequest{Subject: "s", Message: "m", Priority: "urgent"}))
	assert.Equal(t, "/functions/v1/support-request", rec.path)
	assert.Error(t, c.SubmitSupportRequest(ctx, SupportRequest{Subject: "s", Message: "m", Priority: "asap"}))

	rec.status, rec.reply = http.StatusNotFound, map[string]string{"error": "No billing account found"}
	_, err = c.OpenCustomerPortal(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

// feedbackServer runs the real feedback handlers so the vote-limit text is
// the one the server actually produces.
func feedbackServer(t *testing.T) (*Client, *feedback.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := feedback.NewStore(testutil.OpenDB(t))
	h := &feedbackapi.Handler{Store: store, Log: zap.NewNop()}

	r := gin.New()
	r.GET("/api/feature-requests", h.ListRequests)
	r.POST("/api/feature-requests", h.CreateRequest)
	r.POST("/api/feature-requests/:id/vote", h.Vote)
	r.GET("/api/feature-votes/count", h.VoteCount)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL), store
}

func TestVote_SoftCheckAndServerLimit(t *testing.T) {
	c, store := feedbackServer(t)
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 6; i++ {
		fr, err := c.CreateFeatureRequest(ctx, fmt.Sprintf("Idea %d", i), "", "")
		require.NoError(t, err)
		ids = append(ids, fr.ID)
	}

	for _, id := range ids[:3] {
		_, err := c.Vote(ctx, id, "crew@example.com")
		require.NoError(t, err)
	}

	// votes cast elsewhere count against the same email
	_, err := store.CastVote(ctx, ids[3], "crew@example.com")
	require.NoError(t, err)

	_, err = c.Vote(ctx, ids[4], "crew@example.com")
	assert.ErrorIs(t, err, ErrVoteLimitReached)

	n, err := c.VoteCount(ctx, "crew@example.com")
	require.NoError(t, err)
	assert.Equal(t, MaxVotesPerEmail, n)

	list, err := c.ListFeatureRequests(ctx, "", "crew@example.com")
	require.NoError(t, err)
	assert.Len(t, list.Requests, 6)
	assert.Len(t, list.Voted, 4)
}

func TestVote_ServerLimitMapping(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"count":3}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"vote limit exceeded: an email can vote on at most 4 feature requests"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).Vote(context.Background(), 1, "a@example.com")
	require.ErrorIs(t, err, ErrVoteLimitReached)
	assert.Contains(t, err.Error(), "at most 4")
	assert.Equal(t, 2, calls)
}
