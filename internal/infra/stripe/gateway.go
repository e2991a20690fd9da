package stripe

import (
	"context"
	"time"
)

// Gateway is the slice of the payment provider the site needs. Handlers
// depend on it instead of the SDK so tests can swap in a fake.
type Gateway interface {
	// FindCustomerByEmail returns (nil, nil) when no customer exists.
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error)

	// ActiveSubscription returns the newest active or trialing subscription,
	// or (nil, nil).
	ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	// FindPromotionCode resolves a customer-facing code to its id, ("", nil)
	// when unknown or inactive.
	FindPromotionCode(ctx context.Context, code string) (string, error)
	CreatePromotionCode(ctx context.Context, couponID, code string, metadata map[string]string) (string, error)

	// CreateInvoicedSubscription starts a subscription billed by emailed
	// invoice and returns its first, finalized and sent, invoice.
	CreateInvoicedSubscription(ctx context.Context, in InvoiceInput) (*Invoice, error)

	ListRecurringPrices(ctx context.Context) ([]Price, error)
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CustomerInput struct {
	Email    string
	Name     string
	Phone    string
	Company  string
	Address  *Address
	Metadata map[string]string
}

type Subscription struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	PlanID           string
	CurrentPeriodEnd time.Time
	Metadata         map[string]string
}

type CheckoutInput struct {
	CustomerID          string
	PriceID             string
	SuccessURL          string
	CancelURL           string
	ClientReferenceID   string
	AllowPromotionCodes bool
	Metadata            map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type InvoiceInput struct {
	CustomerID      string
	PriceID         string
	PromotionCodeID string
	DaysUntilDue    int64
	Metadata        map[string]string
}

type Invoice struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	Status           string     `json:"status"`
	HostedInvoiceURL string     `json:"hosted_invoice_url"`
	InvoicePDF       string     `json:"invoice_pdf"`
	AmountDue        int64      `json:"amount_due"`
	Currency         string     `json:"currency"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	SubscriptionID   string     `json:"subscription_id,omitempty"`
}

type Price struct {
	ID         string
	ProductID  string
	PlanID     string
	Interval   string
	Currency   string
	UnitAmount int64
}
