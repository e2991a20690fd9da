package billing

import (
	"errors"
	"strings"

	"firetrack-site/internal/domain/plans"
)

type Method string

const (
	MethodSubscription Method = "subscription"
	MethodInvoice      Method = "invoice"
)

type Cycle string

const (
	CycleMonthly Cycle = plans.CycleMonthly
	CycleAnnual  Cycle = plans.CycleAnnual
)

var (
	ErrInvalidMethod = errors.New("invalid billing method")
	ErrInvalidCycle  = errors.New("invalid billing cycle")
	ErrMissingPlan   = errors.New("priceId or planId is required")
)

// Selection is built per checkout attempt and never stored.
type Selection struct {
	PlanID  string `json:"planId"`
	Method  Method `json:"method"`
	Cycle   Cycle  `json:"cycle"`
	PriceID string `json:"priceId,omitempty"`
}

func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case MethodSubscription:
		return MethodSubscription, nil
	case MethodInvoice:
		return MethodInvoice, nil
	default:
		return "", ErrInvalidMethod
	}
}

func ParseCycle(s string) (Cycle, error) {
	switch plans.NormalizeCycle(s) {
	case plans.CycleMonthly:
		return CycleMonthly, nil
	case plans.CycleAnnual:
		return CycleAnnual, nil
	default:
		return "", ErrInvalidCycle
	}
}

func (s Selection) Validate() error {
	if _, err := ParseMethod(string(s.Method)); err != nil {
		return err
	}
	if strings.TrimSpace(s.PlanID) == "" && strings.TrimSpace(s.PriceID) == "" {
		return ErrMissingPlan
	}
	if _, err := ParseCycle(string(s.Cycle)); err != nil {
		return err
	}
	return nil
}
