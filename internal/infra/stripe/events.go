package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Event is a verified webhook event with its raw data object.
type Event struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

// ConstructEvent verifies the Stripe-Signature header. API version
// mismatches are tolerated so a dashboard upgrade does not break delivery.
func ConstructEvent(payload []byte, signature, secret string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, err
	}
	return Event{ID: ev.ID, Type: string(ev.Type), Raw: ev.Data.Raw}, nil
}

type CompletedCheckout struct {
	SessionID         string
	SubscriptionID    string
	CustomerID        string
	ClientReferenceID string
	Metadata          map[string]string
}

func (e Event) CheckoutSession() (*CompletedCheckout, error) {
	var s stripego.CheckoutSession
	if err := json.Unmarshal(e.Raw, &s); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w", err)
	}
	out := &CompletedCheckout{SessionID: s.ID, ClientReferenceID: s.ClientReferenceID, Metadata: s.Metadata}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out, nil
}

func (e Event) Subscription() (*Subscription, error) {
	var s stripego.Subscription
	if err := json.Unmarshal(e.Raw, &s); err != nil {
		return nil, fmt.Errorf("parse subscription: %w", err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("subscription event without id")
	}
	return toSubscription(&s), nil
}

func (e Event) Invoice() (*Invoice, error) {
	var inv stripego.Invoice
	if err := json.Unmarshal(e.Raw, &inv); err != nil {
		return nil, fmt.Errorf("parse invoice: %w", err)
	}
	out := toInvoice(&inv)
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out, nil
}

// PeriodEnd returns nil for a zero timestamp.
func (s *Subscription) PeriodEnd() *time.Time {
	if s.CurrentPeriodEnd.IsZero() || s.CurrentPeriodEnd.Unix() == 0 {
		return nil
	}
	t := s.CurrentPeriodEnd
	return &t
}
