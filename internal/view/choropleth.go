package view

import (
	"math"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/model"
)

const (
	choroplethWidth  = 800
	choroplethHeight = 400

	// NoDataFill colours regions without any filtered company.
	NoDataFill = "lightgray"
)

// ChoroplethView shades world regions by their number of companies.
type ChoroplethView struct {
	base
	colour *continuous
	byKey  map[string]*model.RegionAggregate
}

// NewChoropleth returns a choropleth whose colour scale is fixed from the
// unfiltered rollup.
func NewChoropleth(d Deps) *ChoroplethView {
	v := &ChoroplethView{base: newBase(Choropleth, d)}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, agg := range derive.RegionRollup(v.entities.Companies()) {
		if agg.Key == model.UnknownRegion {
			continue
		}
		lo, hi = math.Min(lo, float64(agg.Count)), math.Max(hi, float64(agg.Count))
	}
	if math.IsInf(lo, 0) {
		lo, hi = 0, 1
	}
	v.colour = newLinearScale(lo, hi, 0, 1).nice(10)
	d0, d1 := v.colour.Domain()
	v.colour = newSqrtScale(d0, d1, 0, 1)

	v.handlers = Handlers{
		Hover: func(id string, x, y float64) {
			v.showTooltip(id, events.Position{X: x, Y: y})
		},
		Move: func(id string, x, y float64) {
			if v.hasData(id) {
				v.bus.Emit(events.TopicMoveTooltip, events.MoveTooltip{Position: events.Position{X: x, Y: y}})
			}
		},
		Leave: func(id string) {
			if v.hasData(id) {
				v.bus.Emit(events.TopicHideTooltip, events.HideTooltip{})
			}
		},
		// Regions are not selectable; a region click clears the selection
		// like a background click.
		Background: func(*Pointer) {
			v.bus.Emit(events.TopicClearSelectedItem, events.ClearSelectedItem{})
		},
	}
	return v
}

// RegionColour returns the fill for a region holding count companies.
func (v *ChoroplethView) RegionColour(count int) string {
	return ramp(reds, v.colour.Map(float64(count)))
}

// Aggregate returns the current rollup for a region id.
func (v *ChoroplethView) Aggregate(regionID string) (*model.RegionAggregate, bool) {
	agg, ok := v.byKey[regionID]
	return agg, ok
}

func (v *ChoroplethView) hasData(id string) bool {
	_, ok := v.byKey[id]
	return ok
}

func (v *ChoroplethView) Update(kind UpdateKind) {
	if kind == UpdateFilter || v.byKey == nil {
		v.byKey = make(map[string]*model.RegionAggregate)
		for _, agg := range derive.RegionRollup(v.filtered()) {
			if agg.Key != model.UnknownRegion {
				v.byKey[agg.Key] = agg
			}
		}
	}
	v.render(kind, v.encode())
}

// highlightedRegions returns the region keys holding the selected company
// or any filtered company of the selected investor.
func (v *ChoroplethView) highlightedRegions() map[string]bool {
	out := make(map[string]bool)
	sel := v.state.Selected
	if sel == "" {
		return out
	}
	if c, ok := v.entities.Company(sel); ok {
		out[c.RegionKey()] = true
		return out
	}
	inScope := make(map[string]*model.Company)
	for _, agg := range v.byKey {
		for _, c := range agg.Companies {
			inScope[c.ID] = c
		}
	}
	for _, e := range v.entities.Investments() {
		if e.InvestorID != sel {
			continue
		}
		if c, ok := inScope[e.CompanyID]; ok {
			out[c.RegionKey()] = true
		}
	}
	return out
}

func (v *ChoroplethView) encode() *Frame {
	f := &Frame{Width: choroplethWidth, Height: choroplethHeight}
	highlighted := v.highlightedRegions()

	for _, r := range v.entities.Regions() {
		e := Element{
			ID:          r.ID,
			Kind:        KindRegion,
			Label:       r.Name,
			Geometry:    r.Geometry,
			Fill:        NoDataFill,
			Highlighted: highlighted[r.ID],
		}
		if agg, ok := v.byKey[r.ID]; ok {
			e.Fill = v.RegionColour(agg.Count)
		}
		f.Elements = append(f.Elements, e)
	}
	f.Empty = len(v.byKey) == 0
	return f
}

func (v *ChoroplethView) showTooltip(id string, pos events.Position) bool {
	agg, ok := v.byKey[id]
	if !ok {
		return false
	}
	name := agg.Country
	if r, ok := v.entities.Region(id); ok && r.Name != "" {
		name = r.Name
	}
	v.bus.Emit(events.TopicShowMapTooltip, events.ShowMapTooltip{Name: name, Aggregate: agg, Position: pos})
	return true
}
