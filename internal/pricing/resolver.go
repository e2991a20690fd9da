package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"firetrack-site/internal/domain/billing"
	"firetrack-site/internal/domain/plans"
)

// ErrPriceNotConfigured is returned when no source knows the price. It is a
// configuration problem the caller may show to the client.
var ErrPriceNotConfigured = errors.New("price not configured for the selected plan and billing cycle")

// Request identifies the price to look up. PriceID short-circuits the chain.
type Request struct {
	PriceID string
	PlanID  string
	Cycle   string
	Mode    string
}

func (r Request) normalized() Request {
	return Request{
		PriceID: strings.TrimSpace(r.PriceID),
		PlanID:  strings.ToLower(strings.TrimSpace(r.PlanID)),
		Cycle:   plans.NormalizeCycle(r.Cycle),
		Mode:    strings.ToLower(strings.TrimSpace(r.Mode)),
	}
}

// Source is one stage of the lookup. ("", nil) means "no match here".
type Source interface {
	Name() string
	Lookup(ctx context.Context, req Request) (string, error)
}

type Resolver struct {
	sources []Source
	log     *zap.Logger
}

func NewResolver(log *zap.Logger, sources ...Source) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{sources: sources, log: log}
}

// Resolve walks the sources in order and returns the first price id found.
// A failing source is logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	req = req.normalized()
	for _, src := range r.sources {
		id, err := src.Lookup(ctx, req)
		if err != nil {
			r.log.Warn("price source failed",
				zap.String("source", src.Name()),
				zap.String("plan_id", req.PlanID),
				zap.String("cycle", req.Cycle),
				zap.Error(err))
			continue
		}
		if id != "" {
			r.log.Debug("price resolved",
				zap.String("source", src.Name()),
				zap.String("plan_id", req.PlanID),
				zap.String("price_id", id))
			return id, nil
		}
	}
	return "", ErrPriceNotConfigured
}

// ExplicitSource trusts a price id sent by the client.
type ExplicitSource struct{}

func (ExplicitSource) Name() string { return "explicit" }

func (ExplicitSource) Lookup(_ context.Context, req Request) (string, error) {
	return req.PriceID, nil
}

// MappingSource reads the price_mappings table.
type MappingSource struct {
	DB *gorm.DB
}

func (MappingSource) Name() string { return "mapping" }

func (s MappingSource) Lookup(ctx context.Context, req Request) (string, error) {
	if req.PlanID == "" || req.Cycle == "" {
		return "", nil
	}

	var rows []billing.PriceMapping
	err := s.DB.WithContext(ctx).
		Where("plan_id = ? AND billing_cycle = ? AND mode = ? AND is_active = ?", req.PlanID, req.Cycle, req.Mode, true).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return "", fmt.Errorf("query price mapping: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].StripePriceID, nil
}

// CatalogSource falls back to the price references shipped in the plan
// catalog. It closes the chain.
type CatalogSource struct {
	Catalog *plans.Catalog
}

func (CatalogSource) Name() string { return "catalog" }

func (s CatalogSource) Lookup(_ context.Context, req Request) (string, error) {
	if s.Catalog == nil || req.PlanID == "" {
		return "", nil
	}
	id, _ := s.Catalog.GetStripePriceID(req.PlanID, req.Cycle, req.Mode)
	return id, nil
}

// EnvSource reads a JSON price map of the form
// {"professional":{"monthly":"price_..","annual":"price_.."}}.
type EnvSource struct {
	byMode map[string]map[string]map[string]string
}

// NewEnvSource parses the live and test maps. Empty input means no entries.
func NewEnvSource(liveJSON, testJSON string) (*EnvSource, error) {
	s := &EnvSource{byMode: map[string]map[string]map[string]string{}}
	for mode, raw := range map[string]string{"live": liveJSON, "test": testJSON} {
		m, err := parsePriceMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%s price map: %w", mode, err)
		}
		s.byMode[mode] = m
	}
	return s, nil
}

func parsePriceMap(raw string) (map[string]map[string]string, error) {
	out := map[string]map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	var m map[string]map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	for plan, cycles := range m {
		norm := map[string]string{}
		for cycle, id := range cycles {
			if c := plans.NormalizeCycle(cycle); c != "" {
				norm[c] = strings.TrimSpace(id)
			}
		}
		out[strings.ToLower(strings.TrimSpace(plan))] = norm
	}
	return out, nil
}

func (*EnvSource) Name() string { return "env" }

func (s *EnvSource) Lookup(_ context.Context, req Request) (string, error) {
	if s == nil {
		return "", nil
	}
	return s.byMode[req.Mode][req.PlanID][req.Cycle], nil
}
