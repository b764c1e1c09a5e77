// Package derive computes the per-view datasets from the entity store and
// the current filter state. Every function is pure and recomputes its result
// in full; empty input yields empty, non-nil output.
package derive

import (
	"sort"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/model"
)

const (
	// DefaultTopK is the number of investors kept by the heatmap and the
	// network graph.
	DefaultTopK = 10

	// DefaultScatterLimit caps the scatterplot to the highest-ROI companies.
	DefaultScatterLimit = 30
)

// FilterCompanies returns the companies matching f, in store order.
func FilterCompanies(companies []*model.Company, f model.FilterState) []*model.Company {
	out := make([]*model.Company, 0, len(companies))
	for _, c := range companies {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// TopInvestors groups investments by investor, restricted to edges whose
// company is in companies, and returns the k investors with the most distinct
// companies. Ties keep first-seen order. k <= 0 selects DefaultTopK.
func TopInvestors(companies []*model.Company, investments []model.Investment, k int) []*model.Investor {
	if k <= 0 {
		k = DefaultTopK
	}
	byID := make(map[string]*model.Company, len(companies))
	for _, c := range companies {
		byID[c.ID] = c
	}

	var order []*model.Investor
	investors := make(map[string]*model.Investor)
	seen := make(map[model.Investment]bool)
	for _, inv := range investments {
		c, ok := byID[inv.CompanyID]
		if !ok || seen[inv] {
			continue
		}
		seen[inv] = true
		i, ok := investors[inv.InvestorID]
		if !ok {
			i = &model.Investor{ID: inv.InvestorID}
			investors[inv.InvestorID] = i
			order = append(order, i)
		}
		i.Companies = append(i.Companies, c)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return order[a].Count() > order[b].Count()
	})
	if len(order) > k {
		order = order[:k]
	}
	if order == nil {
		order = []*model.Investor{}
	}
	return order
}

// RegionRollup groups companies by region key. Aggregates are ordered by
// first appearance of their key; companies without a country share the
// model.UnknownRegion aggregate, so counts always sum to len(companies).
// The leading industry is the one with the largest summed valuation, ties
// going to the earlier label in the fixed industry order.
func RegionRollup(companies []*model.Company) []*model.RegionAggregate {
	out := []*model.RegionAggregate{}
	byKey := make(map[string]*model.RegionAggregate)
	for _, c := range companies {
		key := c.RegionKey()
		agg, ok := byKey[key]
		if !ok {
			agg = &model.RegionAggregate{Key: key, Country: c.Country}
			byKey[key] = agg
			out = append(out, agg)
		}
		agg.Count++
		agg.TotalValuation += c.Valuation
		agg.Companies = append(agg.Companies, c)
	}
	for _, agg := range out {
		agg.LeadingIndustry = leadingIndustry(agg.Companies)
	}
	return out
}

func leadingIndustry(companies []*model.Company) model.Industry {
	sums := make(map[model.Industry]float64)
	for _, c := range companies {
		sums[c.Industry] += c.Valuation
	}
	var (
		best  model.Industry
		found bool
	)
	for _, ind := range model.Industries() {
		v, ok := sums[ind]
		if !ok {
			continue
		}
		if !found || v > sums[best] {
			best, found = ind, true
		}
	}
	return best
}

// SeriesPoint is one date of the cumulative stacked-area series.
type SeriesPoint struct {
	Date   time.Time              `json:"date"`
	Counts map[model.Industry]int `json:"counts"`
}

// Count returns the cumulative count for ind, zero when absent.
func (p SeriesPoint) Count(ind model.Industry) int {
	return p.Counts[ind]
}

// CumulativeSeries returns, for each distinct join date in ascending order,
// the number of companies per industry that joined on or before that date.
// Each point rescans the full input, so the cost is quadratic in the number
// of companies.
func CumulativeSeries(companies []*model.Company) []SeriesPoint {
	var dates []time.Time
	seen := make(map[int64]bool)
	for _, c := range companies {
		ns := c.DateJoined.UnixNano()
		if seen[ns] {
			continue
		}
		seen[ns] = true
		dates = append(dates, c.DateJoined)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]SeriesPoint, 0, len(dates))
	for _, d := range dates {
		p := SeriesPoint{Date: d, Counts: make(map[model.Industry]int)}
		for _, c := range companies {
			if !c.DateJoined.After(d) {
				p.Counts[c.Industry]++
			}
		}
		out = append(out, p)
	}
	return out
}

// IndustryCount is one cell of the investor × industry cross tabulation.
type IndustryCount struct {
	InvestorID string         `json:"investor_id"`
	Industry   model.Industry `json:"industry"`
	Count      int            `json:"count"`
}

// InvestorRow is one heatmap row: an investor and its count per industry.
type InvestorRow struct {
	Investor *model.Investor `json:"investor"`
	Cells    []IndustryCount `json:"cells"`
}

// CrossTab counts each investor's companies per industry. Every row carries
// one cell per fixed industry label, in canonical order, zero-filled.
func CrossTab(investors []*model.Investor) []InvestorRow {
	labels := model.Industries()
	out := make([]InvestorRow, 0, len(investors))
	for _, inv := range investors {
		counts := make(map[model.Industry]int, len(labels))
		for _, c := range inv.Companies {
			counts[c.Industry]++
		}
		row := InvestorRow{Investor: inv, Cells: make([]IndustryCount, len(labels))}
		for i, ind := range labels {
			row.Cells[i] = IndustryCount{InvestorID: inv.ID, Industry: ind, Count: counts[ind]}
		}
		out = append(out, row)
	}
	return out
}

// YearCount is one bar of the slider histogram.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearHistogram counts companies per join year, ascending by year.
func YearHistogram(companies []*model.Company) []YearCount {
	counts := make(map[int]int)
	for _, c := range companies {
		counts[c.JoinYear()]++
	}
	out := make([]YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// ScatterPoints drops companies without ROI, sorts the rest by ROI
// descending and keeps at most limit. limit <= 0 selects
// DefaultScatterLimit.
func ScatterPoints(companies []*model.Company, limit int) []*model.Company {
	if limit <= 0 {
		limit = DefaultScatterLimit
	}
	out := WithROI(companies)
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].ROI > *out[j].ROI
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WithROI returns the companies carrying an ROI value, in input order.
func WithROI(companies []*model.Company) []*model.Company {
	out := make([]*model.Company, 0, len(companies))
	for _, c := range companies {
		if c.HasROI() {
			out = append(out, c)
		}
	}
	return out
}

// Graph is the dataset behind the force-directed network.
type Graph struct {
	Companies []*model.Company   `json:"companies"`
	Investors []*model.Investor  `json:"investors"`
	Links     []model.Investment `json:"links"`
}

// Empty reports whether the graph has no nodes.
func (g Graph) Empty() bool {
	return len(g.Companies) == 0 && len(g.Investors) == 0
}

// NetworkGraph keeps the ROI-bearing companies, picks the top k investors
// over them, and returns those investors, the companies they invested in
// (first-seen order through the investor list) and the edges between them.
func NetworkGraph(companies []*model.Company, investments []model.Investment, k int) Graph {
	scoped := WithROI(companies)
	top := TopInvestors(scoped, investments, k)

	g := Graph{
		Companies: []*model.Company{},
		Investors: top,
		Links:     []model.Investment{},
	}
	kept := make(map[string]bool)
	for _, inv := range top {
		for _, c := range inv.Companies {
			if !kept[c.ID] {
				kept[c.ID] = true
				g.Companies = append(g.Companies, c)
			}
		}
	}

	topIDs := make(map[string]bool, len(top))
	for _, inv := range top {
		topIDs[inv.ID] = true
	}
	seen := make(map[model.Investment]bool)
	for _, e := range investments {
		if topIDs[e.InvestorID] && kept[e.CompanyID] && !seen[e] {
			seen[e] = true
			g.Links = append(g.Links, e)
		}
	}
	return g
}
