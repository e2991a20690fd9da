package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionValidate(t *testing.T) {
	ok := Selection{PlanID: "professional", Method: MethodInvoice, Cycle: CycleAnnual}
	assert.NoError(t, ok.Validate())

	assert.ErrorIs(t, Selection{Method: MethodInvoice, Cycle: CycleAnnual}.Validate(), ErrMissingPlan)
	assert.ErrorIs(t, Selection{PlanID: "starter", Method: "wire", Cycle: CycleMonthly}.Validate(), ErrInvalidMethod)
	assert.ErrorIs(t, Selection{PriceID: "price_1", Method: MethodSubscription, Cycle: "weekly"}.Validate(), ErrInvalidCycle)

	// the method is checked before anything else
	assert.ErrorIs(t, Selection{Method: "wire"}.Validate(), ErrInvalidMethod)
}

func TestParseCycle(t *testing.T) {
	c, err := ParseCycle("year")
	require.NoError(t, err)
	assert.Equal(t, CycleAnnual, c)
}

func TestIsEntitling(t *testing.T) {
	for _, status := range []string{"active", "trialing", " Active "} {
		assert.True(t, IsEntitling(status), status)
	}
	for _, status := range []string{"past_due", "canceled", "incomplete", ""} {
		assert.False(t, IsEntitling(status), status)
	}
}

func TestSubscriptionActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	var nilSub *Subscription
	assert.False(t, nilSub.Active(now))
	assert.True(t, (&Subscription{Status: "active", CurrentPeriodEnd: &future}).Active(now))
	assert.False(t, (&Subscription{Status: "active", CurrentPeriodEnd: &past}).Active(now))
	assert.False(t, (&Subscription{Status: "canceled", CurrentPeriodEnd: &future}).Active(now))
}

func TestNormalizeReferralCode(t *testing.T) {
	c, err := NormalizeReferralCode(" fire-2024 ")
	require.NoError(t, err)
	assert.Equal(t, "FIRE-2024", c)

	for _, bad := range []string{"abc", "has space", "émoji", strings.Repeat("A", 21)} {
		_, err := NormalizeReferralCode(bad)
		assert.ErrorIs(t, err, ErrInvalidReferralCode, bad)
	}
}

func TestGenerateReferralCode(t *testing.T) {
	code := GenerateReferralCode("Acme Fire & Safety")
	assert.True(t, strings.HasPrefix(code, "ACMEFI-"), code)
	_, err := NormalizeReferralCode(code)
	assert.NoError(t, err)

	bare := GenerateReferralCode("")
	assert.Len(t, bare, 8)
	assert.NotEqual(t, bare, GenerateReferralCode(""))
}
