package model

import (
	"encoding/json"
	"time"
)

// Company is an immutable base record loaded once at startup.
type Company struct {
	ID          string    `json:"id"`
	Name        string    `json:"company_name"`
	Industry    Industry  `json:"industry"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code,omitempty"`
	City        string    `json:"city"`
	FoundedYear *int      `json:"founded_year,omitempty"`
	DateJoined  time.Time `json:"date_joined"`
	Valuation   float64   `json:"valuation"`
	TotalRaised *float64  `json:"total_raised,omitempty"`
	ROI         *float64  `json:"roi,omitempty"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
}

// JoinYear returns the calendar year the company reached unicorn status.
func (c *Company) JoinYear() int {
	return c.DateJoined.Year()
}

// ValuationBillions returns the valuation expressed in billions of USD.
func (c *Company) ValuationBillions() float64 {
	return c.Valuation / 1e9
}

// HasROI reports whether the company carries a return-on-investment value.
func (c *Company) HasROI() bool {
	return c.ROI != nil
}

// UnknownRegion is the rollup key of companies with neither a country code
// nor a country name. No region polygon carries it.
const UnknownRegion = ""

// RegionKey is the key companies are grouped by for regional rollups:
// the country code when known, otherwise the country name.
func (c *Company) RegionKey() string {
	if c.CountryCode != "" {
		return c.CountryCode
	}
	return c.Country
}

// Investment is an edge between an investor and a company.
type Investment struct {
	InvestorID string `json:"investor_id"`
	CompanyID  string `json:"company_id"`
}

// Investor is derived on demand from investment edges restricted to the
// companies currently in scope.
type Investor struct {
	ID        string     `json:"id"`
	Companies []*Company `json:"-"`
}

// Count returns the number of distinct companies the investor is linked to.
func (i *Investor) Count() int {
	return len(i.Companies)
}

// MarshalJSON encodes the investor with company ids instead of full records.
func (i *Investor) MarshalJSON() ([]byte, error) {
	ids := make([]string, len(i.Companies))
	for n, c := range i.Companies {
		ids[n] = c.ID
	}
	return json.Marshal(struct {
		ID        string   `json:"id"`
		Count     int      `json:"count"`
		Companies []string `json:"companies"`
	}{i.ID, len(ids), ids})
}

// investorAliases merges duplicate or misspelled investor names.
var investorAliases = map[string]string{
	"BDC Venture Capital":                    "BDC Capital",
	"Bond":                                   "BOND",
	"CVS Health Partners":                    "CVS Health",
	"Dila Capital":                           "DILA Capital",
	"Emergence Capital Partners":             "Emergence Capital",
	"China Everbright Investment Management": "China Everbright Limited",
	"FTX Venture":                            "FTX Ventures",
	"Georgian":                               "Georgian Partners",
	"Longfor Capitalm":                       "Longfor Capital",
	"Matrix Partmers":                        "Matrix Partners",
}

// CanonicalInvestor returns the canonical spelling of an investor name.
func CanonicalInvestor(name string) string {
	if c, ok := investorAliases[name]; ok {
		return c
	}
	return name
}

// Region is a geographic polygon loaded from a feature collection.
type Region struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// RegionAggregate is the per-region rollup attached to a region during one
// update cycle.
type RegionAggregate struct {
	Key             string     `json:"key"`
	Country         string     `json:"country"`
	Count           int        `json:"count"`
	TotalValuation  float64    `json:"total_valuation"`
	LeadingIndustry Industry   `json:"leading_industry"`
	Companies       []*Company `json:"-"`
}
