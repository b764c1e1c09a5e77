package derive

import (
	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
)

// Options tunes the size-limited derivations.
type Options struct {
	TopK         int
	ScatterLimit int
}

// Datasets is every view dataset for one filter state, as printed by the
// summary command and written by snapshot exports.
type Datasets struct {
	Filter    model.FilterState        `json:"filter"`
	Companies []*model.Company         `json:"companies"`
	Scatter   []*model.Company         `json:"scatter"`
	Heatmap   []InvestorRow            `json:"heatmap"`
	Network   Graph                    `json:"network"`
	Regions   []*model.RegionAggregate `json:"regions"`
	Series    []SeriesPoint            `json:"series"`
	Histogram []YearCount              `json:"histogram"`
}

// Compute derives every dataset from e under f. The histogram is computed
// over all companies since the slider always shows the full extent.
func Compute(e *store.Entities, f model.FilterState, opts Options) *Datasets {
	filtered := FilterCompanies(e.Companies(), f)
	return &Datasets{
		Filter:    f,
		Companies: filtered,
		Scatter:   ScatterPoints(filtered, opts.ScatterLimit),
		Heatmap:   CrossTab(TopInvestors(filtered, e.Investments(), opts.TopK)),
		Network:   NetworkGraph(filtered, e.Investments(), opts.TopK),
		Regions:   RegionRollup(filtered),
		Series:    CumulativeSeries(filtered),
		Histogram: YearHistogram(e.Companies()),
	}
}
