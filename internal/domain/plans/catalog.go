package plans

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CycleMonthly = "monthly"
	CycleAnnual  = "annual"
)

//go:embed plans.yaml
var defaultCatalogYAML []byte

type Catalog struct {
	plans []Plan
	byID  map[string]*Plan
}

// Default returns the embedded catalog. It panics on a malformed embed,
// which can only happen at build time.
func Default() *Catalog {
	c, err := Parse(strings.NewReader(string(defaultCatalogYAML)))
	if err != nil {
		panic(fmt.Sprintf("plans: embedded catalog: %v", err))
	}
	return c
}

func Parse(r io.Reader) (*Catalog, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode plan catalog: %w", err)
	}

	c := &Catalog{plans: doc.Plans, byID: make(map[string]*Plan, len(doc.Plans))}
	for i := range c.plans {
		p := &c.plans[i]
		id := normalizeID(p.ID)
		if id == "" {
			return nil, fmt.Errorf("plan #%d has no id", i)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", id)
		}
		p.ID = id
		c.byID[id] = p
	}
	return c, nil
}

func (c *Catalog) All() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

func (c *Catalog) Get(planID string) (*Plan, bool) {
	p, ok := c.byID[normalizeID(planID)]
	return p, ok
}

func (c *Catalog) PlanSupportsAnnual(planID string) bool {
	p, ok := c.Get(planID)
	return ok && p.SupportsAnnual
}

// GetStripePriceID maps plan + cycle to a provider price id for the given
// mode. Annual prices are only handed out for plans that support annual
// billing; otherwise the monthly price is returned.
func (c *Catalog) GetStripePriceID(planID, cycle, mode string) (string, bool) {
	p, ok := c.Get(planID)
	if !ok {
		return "", false
	}
	refs, ok := p.Prices[mode]
	if !ok {
		return "", false
	}

	if NormalizeCycle(cycle) == CycleAnnual && p.SupportsAnnual && refs.Annual != "" {
		return refs.Annual, true
	}
	if refs.Monthly == "" {
		return "", false
	}
	return refs.Monthly, true
}

// NormalizeCycle accepts the provider's interval names too (month/year).
func NormalizeCycle(cycle string) string {
	switch strings.ToLower(strings.TrimSpace(cycle)) {
	case "annual", "annually", "yearly", "year":
		return CycleAnnual
	case "monthly", "month":
		return CycleMonthly
	default:
		return ""
	}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
