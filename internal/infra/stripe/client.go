package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

const defaultDaysUntilDue = 30

// Client implements Gateway on top of the stripe-go API client. Each Client
// carries its own key, so there is no process-wide stripe.Key.
type Client struct {
	api *client.API
}

func NewClient(secretKey string) (*Client, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe secret key not configured")
	}
	return &Client{api: client.New(secretKey, nil)}, nil
}

func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	params := &stripego.CustomerListParams{Email: stripego.String(email)}
	params.Context = ctx
	params.Limit = stripego.Int64(1)

	it := c.api.Customers.List(params)
	if it.Next() {
		return toCustomer(it.Customer()), nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return nil, nil
}

func (c *Client) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	params := &stripego.CustomerParams{
		Email:    stripego.String(in.Email),
		Metadata: map[string]string{},
	}
	params.Context = ctx
	if in.Name != "" {
		params.Name = stripego.String(in.Name)
	}
	if in.Phone != "" {
		params.Phone = stripego.String(in.Phone)
	}
	if in.Company != "" {
		params.Metadata["company"] = in.Company
	}
	for k, v := range in.Metadata {
		params.Metadata[k] = v
	}
	if a := in.Address; a != nil {
		params.Address = &stripego.AddressParams{
			Line1:      stripego.String(a.Line1),
			Line2:      stripego.String(a.Line2),
			City:       stripego.String(a.City),
			State:      stripego.String(a.State),
			PostalCode: stripego.String(a.PostalCode),
			Country:    stripego.String(a.Country),
		}
	}

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return toCustomer(cus), nil
}

func (c *Client) ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	params := &stripego.SubscriptionListParams{Customer: stripego.String(customerID)}
	params.Context = ctx
	params.Status = stripego.String("all")
	params.AddExpand("data.items.data.price")

	var best *stripego.Subscription
	it := c.api.Subscriptions.List(params)
	for it.Next() {
		s := it.Subscription()
		switch s.Status {
		case stripego.SubscriptionStatusActive, stripego.SubscriptionStatusTrialing:
			if best == nil || s.Created > best.Created {
				best = s
			}
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if best == nil {
		return nil, nil
	}
	return toSubscription(best), nil
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("items.data.price")

	s, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	return toSubscription(s), nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	params := &stripego.CheckoutSessionParams{
		SuccessURL: stripego.String(in.SuccessURL),
		CancelURL:  stripego.String(in.CancelURL),
		Mode:       stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(in.PriceID), Quantity: stripego.Int64(1)},
		},
		AllowPromotionCodes: stripego.Bool(in.AllowPromotionCodes),
		SubscriptionData: &stripego.CheckoutSessionSubscriptionDataParams{
			Metadata: in.Metadata,
		},
	}
	params.Context = ctx
	if in.CustomerID != "" {
		params.Customer = stripego.String(in.CustomerID)
	}
	if in.ClientReferenceID != "" {
		params.ClientReferenceID = stripego.String(in.ClientReferenceID)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripego.BillingPortalSessionParams{
		Customer:  stripego.String(customerID),
		ReturnURL: stripego.String(returnURL),
	}
	params.Context = ctx

	portal, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return portal.URL, nil
}

func (c *Client) FindPromotionCode(ctx context.Context, code string) (string, error) {
	params := &stripego.PromotionCodeListParams{
		Code:   stripego.String(code),
		Active: stripego.Bool(true),
	}
	params.Context = ctx
	params.Limit = stripego.Int64(1)

	it := c.api.PromotionCodes.List(params)
	if it.Next() {
		return it.PromotionCode().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("list promotion codes: %w", err)
	}
	return "", nil
}

func (c *Client) CreatePromotionCode(ctx context.Context, couponID, code string, metadata map[string]string) (string, error) {
	params := &stripego.PromotionCodeParams{
		Coupon: stripego.String(couponID),
		Code:   stripego.String(code),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pc, err := c.api.PromotionCodes.New(params)
	if err != nil {
		return "", fmt.Errorf("create promotion code: %w", err)
	}
	return pc.ID, nil
}

func (c *Client) CreateInvoicedSubscription(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	days := in.DaysUntilDue
	if days <= 0 {
		days = defaultDaysUntilDue
	}

	params := &stripego.SubscriptionParams{
		Customer: stripego.String(in.CustomerID),
		Items: []*stripego.SubscriptionItemsParams{
			{Price: stripego.String(in.PriceID), Quantity: stripego.Int64(1)},
		},
		CollectionMethod: stripego.String(string(stripego.SubscriptionCollectionMethodSendInvoice)),
		DaysUntilDue:     stripego.Int64(days),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice")
	if in.PromotionCodeID != "" {
		params.PromotionCode = stripego.String(in.PromotionCodeID)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create invoiced subscription: %w", err)
	}
	if sub.LatestInvoice == nil || sub.LatestInvoice.ID == "" {
		return nil, errors.New("subscription created without an invoice")
	}

	inv := sub.LatestInvoice
	if inv.Status == stripego.InvoiceStatusDraft {
		fp := &stripego.InvoiceFinalizeInvoiceParams{}
		fp.Context = ctx
		if inv, err = c.api.Invoices.FinalizeInvoice(inv.ID, fp); err != nil {
			return nil, fmt.Errorf("finalize invoice: %w", err)
		}
	}

	sp := &stripego.InvoiceSendInvoiceParams{}
	sp.Context = ctx
	sent, err := c.api.Invoices.SendInvoice(inv.ID, sp)
	if err != nil {
		return nil, fmt.Errorf("send invoice: %w", err)
	}

	out := toInvoice(sent)
	out.SubscriptionID = sub.ID
	return out, nil
}

func (c *Client) ListRecurringPrices(ctx context.Context) ([]Price, error) {
	params := &stripego.PriceListParams{}
	params.Context = ctx
	params.Active = stripego.Bool(true)
	params.Type = stripego.String("recurring")
	params.AddExpand("data.product")

	var out []Price
	it := c.api.Prices.List(params)
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Recurring == nil || p.Product == nil || !p.Product.Active {
			continue
		}
		if p.Metadata != nil && p.Metadata["visible"] == "false" {
			continue
		}
		out = append(out, Price{
			ID:         p.ID,
			ProductID:  p.Product.ID,
			PlanID:     planIDFromMetadata(p.Metadata, p.Product.Metadata),
			Interval:   string(p.Recurring.Interval),
			Currency:   string(p.Currency),
			UnitAmount: p.UnitAmount,
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return out, nil
}

func toCustomer(c *stripego.Customer) *Customer {
	if c == nil {
		return nil
	}
	return &Customer{ID: c.ID, Email: c.Email, Name: c.Name}
}

func toSubscription(s *stripego.Subscription) *Subscription {
	out := &Subscription{
		ID:               s.ID,
		Status:           string(s.Status),
		CurrentPeriodEnd: time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		Metadata:         s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		p := s.Items.Data[0].Price
		out.PriceID = p.ID
		var productMD map[string]string
		if p.Product != nil {
			productMD = p.Product.Metadata
		}
		out.PlanID = planIDFromMetadata(p.Metadata, productMD)
	}
	if out.PlanID == "" && s.Metadata != nil {
		out.PlanID = s.Metadata["plan_id"]
	}
	return out
}

func toInvoice(inv *stripego.Invoice) *Invoice {
	out := &Invoice{
		ID:               inv.ID,
		Number:           inv.Number,
		Status:           string(inv.Status),
		HostedInvoiceURL: inv.HostedInvoiceURL,
		InvoicePDF:       inv.InvoicePDF,
		AmountDue:        inv.AmountDue,
		Currency:         string(inv.Currency),
	}
	if inv.DueDate > 0 {
		due := time.Unix(inv.DueDate, 0).UTC()
		out.DueDate = &due
	}
	return out
}

// planIDFromMetadata reads the internal plan id from price metadata first,
// then product metadata. "plan" is accepted as a legacy key.
func planIDFromMetadata(sources ...map[string]string) string {
	for _, md := range sources {
		if md == nil {
			continue
		}
		for _, key := range []string{"plan_id", "plan"} {
			if v := strings.ToLower(strings.TrimSpace(md[key])); v != "" {
				return v
			}
		}
	}
	return ""
}
