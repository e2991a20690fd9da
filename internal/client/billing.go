package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"firetrack-site/internal/domain/billing"
)

var (
	ErrCustomerInfoRequired = errors.New("Customer information is required for invoice billing")
	ErrInvalidBillingMethod = errors.New("invalid billing method")
	ErrNoCheckoutURL        = errors.New("no checkout URL returned")
	ErrInvoiceNotCreated    = errors.New("invoice was not created")
)

const trackingSource = "pricing_page"

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CustomerInfo struct {
	Name    string   `json:"name" validate:"required"`
	Email   string   `json:"email" validate:"required,email"`
	Company string   `json:"company,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// CheckoutRequest needs a price id or a plan id; with only a plan the
// server resolves the price.
type CheckoutRequest struct {
	PriceID       string `validate:"required_without=PlanID"`
	PlanID        string
	PlanName      string         `validate:"required"`
	BillingMethod billing.Method `validate:"required,oneof=subscription invoice"`
	BillingCycle  billing.Cycle  `validate:"required,oneof=monthly annual"`
}

type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

type InvoiceRequest struct {
	PriceID      string `validate:"required_without=PlanID"`
	PlanID       string
	PlanName     string        `validate:"required"`
	BillingCycle billing.Cycle `validate:"required,oneof=monthly annual"`
	Customer     *CustomerInfo `validate:"required"`
	PromoCode    string
}

type Invoice struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	Status           string     `json:"status"`
	HostedInvoiceURL string     `json:"hosted_invoice_url"`
	InvoicePDF       string     `json:"invoice_pdf"`
	AmountDue        int64      `json:"amount_due"`
	Currency         string     `json:"currency"`
	DueDate          *time.Time `json:"due_date"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type InvoiceResult struct {
	Success  bool     `json:"success"`
	Invoice  Invoice  `json:"invoice"`
	Customer Customer `json:"customer"`
}

// ProcessRequest is one "subscribe" click: the plan, how to pay and, for
// invoice billing, who to bill.
type ProcessRequest struct {
	PriceID       string
	PlanID        string
	PlanName      string
	BillingMethod billing.Method
	BillingCycle  billing.Cycle
	Customer      *CustomerInfo
	PromoCode     string
}

// ProcessResult carries the checkout session or the invoice, whichever the
// method produced.
type ProcessResult struct {
	Checkout *CheckoutSession
	Invoice  *InvoiceResult
}

func (c *Client) trackingMetadata(planName string, method billing.Method, cycle billing.Cycle) map[string]string {
	return map[string]string{
		"plan_name":      planName,
		"billing_method": string(method),
		"billing_cycle":  string(cycle),
		"source":         trackingSource,
		"requested_at":   c.now().UTC().Format(time.RFC3339),
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid checkout request: %w", err)
	}

	body := map[string]any{
		"billingCycle": string(req.BillingCycle),
		"metadata":     c.trackingMetadata(req.PlanName, req.BillingMethod, req.BillingCycle),
	}
	setPrice(body, req.PriceID, req.PlanID)
	var out CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/functions/v1/create-checkout", body, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	return &out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid invoice request: %w", err)
	}

	body := map[string]any{
		"billingCycle": string(req.BillingCycle),
		"customerInfo": req.Customer,
		"metadata":     c.trackingMetadata(req.PlanName, billing.MethodInvoice, req.BillingCycle),
	}
	setPrice(body, req.PriceID, req.PlanID)
	if req.PromoCode != "" {
		body["promoCode"] = req.PromoCode
	}

	var out InvoiceResult
	if err := c.do(ctx, http.MethodPost, "/functions/v1/create-invoice", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, ErrInvoiceNotCreated
	}
	return &out, nil
}

func setPrice(body map[string]any, priceID, planID string) {
	if priceID != "" {
		body["priceId"] = priceID
	}
	if planID != "" {
		body["planId"] = planID
	}
}

// ProcessBilling validates the selection and dispatches on the billing
// method. Without an explicit price the catalog, when configured, supplies
// one; otherwise the plan id goes to the server for resolution.
func (c *Client) ProcessBilling(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	sel := billing.Selection{
		PlanID:  req.PlanID,
		Method:  req.BillingMethod,
		Cycle:   req.BillingCycle,
		PriceID: req.PriceID,
	}
	if err := sel.Validate(); err != nil {
		if errors.Is(err, billing.ErrInvalidMethod) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBillingMethod, req.BillingMethod)
		}
		return nil, fmt.Errorf("invalid billing selection: %w", err)
	}
	if sel.PriceID == "" && c.catalog != nil {
		sel.PriceID, _ = c.catalog.GetStripePriceID(sel.PlanID, string(sel.Cycle), c.mode)
	}

	switch sel.Method {
	case billing.MethodSubscription:
		s, err := c.CreateCheckoutSession(ctx, CheckoutRequest{
			PriceID:       sel.PriceID,
			PlanID:        sel.PlanID,
			PlanName:      req.PlanName,
			BillingMethod: sel.Method,
			BillingCycle:  sel.Cycle,
		})
		if err != nil {
			return nil, err
		}
		return &ProcessResult{Checkout: s}, nil

	default:
		if req.Customer == nil {
			return nil, ErrCustomerInfoRequired
		}
		inv, err := c.CreateInvoice(ctx, InvoiceRequest{
			PriceID:      sel.PriceID,
			PlanID:       sel.PlanID,
			PlanName:     req.PlanName,
			BillingCycle: sel.Cycle,
			Customer:     req.Customer,
			PromoCode:    req.PromoCode,
		})
		if err != nil {
			return nil, err
		}
		return &ProcessResult{Invoice: inv}, nil
	}
}

type SubscriptionStatus struct {
	Subscribed       bool       `json:"subscribed"`
	Status           string     `json:"status"`
	PlanID           string     `json:"plan_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

func (c *Client) CheckSubscription(ctx context.Context) (*SubscriptionStatus, error) {
	var out SubscriptionStatus
	if err := c.do(ctx, http.MethodPost, "/functions/v1/check-subscription", map[string]any{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenCustomerPortal returns the billing portal URL for the caller.
func (c *Client) OpenCustomerPortal(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/functions/v1/customer-portal", map[string]any{}, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("no portal URL returned")
	}
	return out.URL, nil
}

// CreateReferralCode returns the caller's code. desired may be empty.
func (c *Client) CreateReferralCode(ctx context.Context, desired string) (string, error) {
	body := map[string]any{}
	if desired != "" {
		body["desired_code"] = desired
	}
	var out struct {
		Code string `json:"code"`
	}
	if err := c.do(ctx, http.MethodPost, "/functions/v1/create-referral-code", body, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

type SupportRequest struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	Message  string `json:"message" validate:"required"`
	Priority string `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

func (c *Client) SubmitSupportRequest(ctx context.Context, req SupportRequest) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid support request: %w", err)
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/functions/v1/support-request", req, &out); err != nil {
		return err
	}
	if !out.Success {
		return errors.New("support request was not accepted")
	}
	return nil
}
