// Package store holds the immutable base records a dashboard session is
// derived from.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/unicorns/internal/model"
)

// Source loads base records from some backing medium.
type Source interface {
	LoadCompanies(ctx context.Context) ([]*model.Company, error)
	LoadInvestments(ctx context.Context) ([]model.Investment, error)
	LoadRegions(ctx context.Context) ([]*model.Region, error)
}

// Entities is the loaded, read-only entity store. It is safe for concurrent
// reads once constructed.
type Entities struct {
	companies   []*model.Company
	byID        map[string]*model.Company
	investments []model.Investment
	investors   map[string]struct{}
	regions     []*model.Region
	regionByKey map[string]*model.Region
	extent      model.YearRange
}

// Load reads every record set from src and builds the entity store.
// Malformed companies are kept; validation findings are logged.
func Load(ctx context.Context, src Source, logger *slog.Logger) (*Entities, error) {
	if logger == nil {
		logger = slog.Default()
	}
	companies, err := src.LoadCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	investments, err := src.LoadInvestments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load investments: %w", err)
	}
	regions, err := src.LoadRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	for _, c := range companies {
		if err := model.ValidateCompany(c); err != nil {
			logger.Warn("company record coerced", "id", c.ID, "err", err)
		}
	}

	e := New(companies, investments, regions)
	logger.Info("entity store loaded",
		"companies", len(e.companies),
		"investments", len(e.investments),
		"investors", len(e.investors),
		"regions", len(e.regions),
		"years", e.extent.String())
	return e, nil
}

// New builds an entity store from already-decoded records. Industries are
// canonicalised, investor names merged, duplicate edges dropped and
// companies without a country code resolved against region names.
func New(companies []*model.Company, investments []model.Investment, regions []*model.Region) *Entities {
	e := &Entities{
		companies:   companies,
		byID:        make(map[string]*model.Company, len(companies)),
		investors:   make(map[string]struct{}),
		regions:     regions,
		regionByKey: make(map[string]*model.Region, 2*len(regions)),
	}

	for _, r := range regions {
		e.regionByKey[r.ID] = r
		if r.Name != "" {
			e.regionByKey[strings.ToLower(r.Name)] = r
		}
	}

	first := true
	for _, c := range companies {
		c.Industry = model.CanonicalIndustry(string(c.Industry))
		if c.CountryCode == "" && c.Country != "" {
			if r, ok := e.regionByKey[strings.ToLower(c.Country)]; ok {
				c.CountryCode = r.ID
			}
		}
		e.byID[c.ID] = c

		if c.DateJoined.IsZero() {
			continue
		}
		y := c.JoinYear()
		if first {
			e.extent = model.YearRange{y, y}
			first = false
			continue
		}
		if y < e.extent[0] {
			e.extent[0] = y
		}
		if y > e.extent[1] {
			e.extent[1] = y
		}
	}

	seen := make(map[model.Investment]struct{}, len(investments))
	e.investments = make([]model.Investment, 0, len(investments))
	for _, inv := range investments {
		inv.InvestorID = model.CanonicalInvestor(strings.TrimSpace(inv.InvestorID))
		if inv.InvestorID == "" {
			continue
		}
		if _, dup := seen[inv]; dup {
			continue
		}
		seen[inv] = struct{}{}
		e.investments = append(e.investments, inv)
		e.investors[inv.InvestorID] = struct{}{}
	}

	return e
}

// Companies returns every company in load order. Callers must not modify
// the returned slice.
func (e *Entities) Companies() []*model.Company { return e.companies }

// Investments returns every investment edge in load order.
func (e *Entities) Investments() []model.Investment { return e.investments }

// Regions returns every region polygon in load order.
func (e *Entities) Regions() []*model.Region { return e.regions }

// YearExtent returns the full [min, max] join-year range of the dataset.
func (e *Entities) YearExtent() model.YearRange { return e.extent }

// Company looks up a company by id.
func (e *Entities) Company(id string) (*model.Company, bool) {
	c, ok := e.byID[id]
	return c, ok
}

// Region looks up a region by id or case-insensitive name.
func (e *Entities) Region(key string) (*model.Region, bool) {
	if r, ok := e.regionByKey[key]; ok {
		return r, true
	}
	r, ok := e.regionByKey[strings.ToLower(key)]
	return r, ok
}

// IsInvestor reports whether id appears as an investor on any edge.
func (e *Entities) IsInvestor(id string) bool {
	_, ok := e.investors[id]
	return ok
}

// Known reports whether id references a company or an investor.
func (e *Entities) Known(id string) bool {
	if _, ok := e.byID[id]; ok {
		return true
	}
	return e.IsInvestor(id)
}
