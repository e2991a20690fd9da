// Package testutil holds fakes and fixtures shared by handler tests.
package testutil

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"firetrack-site/database"
	"firetrack-site/internal/domain/users"
	"firetrack-site/internal/infra/mail"
	"firetrack-site/internal/infra/stripe"
)

const JWTSecret = "test-secret"

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// SeedUser creates a verified owner with its tenant.
func SeedUser(t *testing.T, db *gorm.DB, email string) users.User {
	t.Helper()
	tenant := users.Tenant{Name: "Tenant of " + email, Slug: users.MakeTenantSlug(email)}
	require.NoError(t, db.Create(&tenant).Error)

	u := users.User{
		TenantID:     tenant.ID,
		FullName:     "Test User",
		Email:        email,
		AuthProvider: users.ProviderLocal,
		Role:         users.RoleOwner,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(&u).Error)
	u.Tenant = &tenant
	return u
}

// Bearer signs a token for u the same way sign-in does.
func Bearer(t *testing.T, u users.User) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   u.ID,
		"tenant_id": u.TenantID,
		"email":     u.Email,
		"role":      u.Role,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

// FakeGateway is an in-memory payment provider. Set Err to make every call
// fail.
type FakeGateway struct {
	mu sync.Mutex

	Err           error
	Customers     map[string]*stripe.Customer     // by email
	Subscriptions map[string]*stripe.Subscription // by customer id
	Promotions    map[string]string               // code -> id
	Prices        []stripe.Price
	CheckoutURL   string

	Checkouts        []stripe.CheckoutInput
	InvoiceInputs    []stripe.InvoiceInput
	CreatedCustomers []stripe.CustomerInput
	CreatedPromos    []string

	seq int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Customers:     map[string]*stripe.Customer{},
		Subscriptions: map[string]*stripe.Subscription{},
		Promotions:    map[string]string{},
		CheckoutURL:   "https://checkout.stripe.test/c/pay/cs_test",
	}
}

func (f *FakeGateway) id(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *FakeGateway) FindCustomerByEmail(_ context.Context, email string) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Customers[email], nil
}

func (f *FakeGateway) CreateCustomer(_ context.Context, in stripe.CustomerInput) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	c := &stripe.Customer{ID: f.id("cus"), Email: in.Email, Name: in.Name}
	f.Customers[in.Email] = c
	f.CreatedCustomers = append(f.CreatedCustomers, in)
	return c, nil
}

func (f *FakeGateway) ActiveSubscription(_ context.Context, customerID string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s, ok := f.Subscriptions[customerID]
	if !ok || (s.Status != "active" && s.Status != "trialing") {
		return nil, nil
	}
	return s, nil
}

func (f *FakeGateway) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, s := range f.Subscriptions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no such subscription: %s", id)
}

func (f *FakeGateway) CreateCheckoutSession(_ context.Context, in stripe.CheckoutInput) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Checkouts = append(f.Checkouts, in)
	return &stripe.CheckoutSession{ID: f.id("cs"), URL: f.CheckoutURL}, nil
}

func (f *FakeGateway) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return "https://billing.stripe.test/p/session/" + customerID + "?return=" + returnURL, nil
}

func (f *FakeGateway) FindPromotionCode(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Promotions[code], nil
}

func (f *FakeGateway) CreatePromotionCode(_ context.Context, _, code string, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	id := f.id("promo")
	f.Promotions[code] = id
	f.CreatedPromos = append(f.CreatedPromos, code)
	return id, nil
}

func (f *FakeGateway) CreateInvoicedSubscription(_ context.Context, in stripe.InvoiceInput) (*stripe.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.InvoiceInputs = append(f.InvoiceInputs, in)
	due := time.Now().AddDate(0, 0, 30).UTC().Truncate(time.Second)
	id := f.id("in")
	return &stripe.Invoice{
		ID:               id,
		Number:           "FT-0001",
		Status:           "open",
		HostedInvoiceURL: "https://invoice.stripe.test/i/" + id,
		InvoicePDF:       "https://invoice.stripe.test/i/" + id + "/pdf",
		AmountDue:        14900,
		Currency:         "usd",
		DueDate:          &due,
		SubscriptionID:   f.id("sub"),
	}, nil
}

func (f *FakeGateway) ListRecurringPrices(context.Context) ([]stripe.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Prices, nil
}

// FakeMailer records messages instead of sending them.
type FakeMailer struct {
	mu   sync.Mutex
	Err  error
	Sent []mail.Message
}

func (m *FakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *FakeMailer) Last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return mail.Message{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// SignStripePayload builds a Stripe-Signature header for payload.
func SignStripePayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
