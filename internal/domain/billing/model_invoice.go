package billing

import "time"

// Invoice records every invoice issued through the invoice billing flow.
type Invoice struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	StripeInvoiceID  string     `gorm:"uniqueIndex" json:"stripe_invoice_id"`
	StripeCustomerID string     `gorm:"index" json:"-"`
	CustomerEmail    string     `gorm:"index" json:"customer_email"`
	CustomerName     string     `json:"customer_name"`
	Company          string     `json:"company,omitempty"`
	PlanID           string     `json:"plan_id,omitempty"`
	BillingCycle     string     `json:"billing_cycle,omitempty"`
	PromoCode        *string    `json:"promo_code,omitempty"`
	AmountDue        int64      `json:"amount_due"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	HostedInvoiceURL *string    `json:"hosted_invoice_url,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
