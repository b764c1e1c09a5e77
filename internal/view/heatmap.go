package view

import (
	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/model"
)

const (
	heatmapWidth     = 600 - 150 - 20
	heatmapHeight    = 450 - 60 - 100
	heatmapCellWidth = 25
	heatmapLegendW   = 160
)

// heatmapDomain is the fixed colour domain of cell counts.
var heatmapDomain = [2]float64{1, 15}

// HeatmapView cross-tabulates the top investors against industries.
type HeatmapView struct {
	base
	topK  int
	rows  []derive.InvestorRow
	cells map[string]derive.IndustryCount
}

// NewHeatmap returns a heatmap of the topK investors.
func NewHeatmap(d Deps, topK int) *HeatmapView {
	v := &HeatmapView{base: newBase(Heatmap, d), topK: topK}
	v.handlers = v.tooltipHandlers(v.showTooltip)
	return v
}

// Rows returns the current cross tabulation.
func (v *HeatmapView) Rows() []derive.InvestorRow { return v.rows }

// CellID is the element id of an investor × industry cell.
func CellID(investorID string, ind model.Industry) string {
	return investorID + "|" + string(ind)
}

// CellColour returns the fill of a cell with count n: white when empty,
// otherwise a green ramp over the fixed domain.
func CellColour(n int) string {
	if n <= 0 {
		return "#fff"
	}
	s := newLinearScale(heatmapDomain[0], heatmapDomain[1], 0, 1)
	return ramp(greens, s.Map(float64(n)))
}

func (v *HeatmapView) Update(kind UpdateKind) {
	if kind == UpdateFilter || v.rows == nil {
		top := derive.TopInvestors(v.filtered(), v.entities.Investments(), v.topK)
		v.rows = derive.CrossTab(top)
		v.cells = make(map[string]derive.IndustryCount)
		for _, r := range v.rows {
			for _, c := range r.Cells {
				v.cells[CellID(c.InvestorID, c.Industry)] = c
			}
		}
	}
	v.render(kind, v.encode())
}

func (v *HeatmapView) encode() *Frame {
	f := &Frame{Width: heatmapWidth, Height: heatmapHeight}
	f.Axes = []Axis{v.legendAxis()}
	if len(v.rows) == 0 {
		f.Empty = true
		return f
	}

	industries := model.Industries()
	labels := make([]string, len(industries))
	for i, ind := range industries {
		labels[i] = string(ind)
	}
	ids := make([]string, len(v.rows))
	for i, r := range v.rows {
		ids[i] = r.Investor.ID
	}
	xs := newBand(labels, 0, heatmapWidth, 0.2)
	ys := newBand(ids, 0, heatmapHeight, 0.2)

	x := Axis{Name: "x"}
	for _, l := range labels {
		x.Ticks = append(x.Ticks, Tick{Pos: xs.Pos(l) + xs.bandwidth/2, Label: l})
	}
	f.Axes = append(f.Axes, x)

	for _, r := range v.rows {
		y := ys.Pos(r.Investor.ID)
		f.Elements = append(f.Elements, Element{
			ID:    r.Investor.ID,
			Kind:  KindLabel,
			X:     -8,
			Y:     y,
			Label: r.Investor.ID,
		})
		for _, c := range r.Cells {
			f.Elements = append(f.Elements, Element{
				ID:     CellID(c.InvestorID, c.Industry),
				Kind:   KindCell,
				X:      xs.Pos(string(c.Industry)),
				Y:      y,
				Width:  heatmapCellWidth,
				Height: ys.bandwidth,
				Fill:   CellColour(c.Count),
				Label:  string(c.Industry),
			})
		}
	}
	return f
}

// legendAxis splits the colour domain into thirds.
func (v *HeatmapView) legendAxis() Axis {
	lo, hi := heatmapDomain[0], heatmapDomain[1]
	s := newLinearScale(lo, hi, 0, heatmapLegendW)
	a := Axis{Name: "legend"}
	for _, t := range []float64{lo, hi / 3, hi / 3 * 2, hi} {
		a.Ticks = append(a.Ticks, Tick{Value: t, Pos: s.Map(t), Label: formatFixed(t, 0)})
	}
	return a
}

func (v *HeatmapView) showTooltip(id string, pos events.Position) bool {
	c, ok := v.cells[id]
	if !ok {
		return false
	}
	v.bus.Emit(events.TopicShowHeatmapTooltip, events.ShowHeatmapTooltip{
		InvestorID: c.InvestorID,
		Industry:   c.Industry,
		Count:      c.Count,
		Position:   pos,
	})
	return true
}
