package view

import (
	"math"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/model"
)

const (
	scatterWidth  = 500 - 35 - 20
	scatterHeight = 500 - 50 - 20
	scatterRadius = 6
)

// ScatterplotView plots the highest-ROI companies by ROI and valuation.
type ScatterplotView struct {
	base
	limit  int
	scale  ScaleType
	points []*model.Company
	byID   map[string]*model.Company
}

// NewScatterplot returns a scatterplot showing at most limit companies.
func NewScatterplot(d Deps, limit int) *ScatterplotView {
	v := &ScatterplotView{base: newBase(Scatterplot, d), limit: limit, scale: ScaleLog}
	v.handlers = v.tooltipHandlers(v.showTooltip)
	v.handlers.Click = func(id string, p *Pointer) {
		p.Consume()
		v.bus.Emit(events.TopicToggleSelectedItem, events.ToggleSelectedItem{ID: id})
	}
	v.handlers.Background = func(*Pointer) {
		v.bus.Emit(events.TopicClearSelectedItem, events.ClearSelectedItem{})
	}
	return v
}

// Scale returns the current axis scale.
func (v *ScatterplotView) Scale() ScaleType { return v.scale }

// SetScale switches both axes between log and linear.
func (v *ScatterplotView) SetScale(t ScaleType) {
	v.scale = t
	v.Update(UpdateScale)
}

// Points returns the companies currently plotted.
func (v *ScatterplotView) Points() []*model.Company { return v.points }

func (v *ScatterplotView) Update(kind UpdateKind) {
	if kind == UpdateFilter || v.points == nil {
		v.points = derive.ScatterPoints(v.filtered(), v.limit)
		v.byID = make(map[string]*model.Company, len(v.points))
		for _, c := range v.points {
			v.byID[c.ID] = c
		}
	}
	v.render(kind, v.encode())
}

func (v *ScatterplotView) encode() *Frame {
	f := &Frame{Width: scatterWidth, Height: scatterHeight, Scale: v.scale}
	if len(v.points) == 0 {
		f.Empty = true
		return f
	}

	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, c := range v.points {
		xMin, xMax = math.Min(xMin, *c.ROI), math.Max(xMax, *c.ROI)
		yMin, yMax = math.Min(yMin, c.ValuationBillions()), math.Max(yMax, c.ValuationBillions())
	}
	var xs, ys *continuous
	if v.scale == ScaleLinear {
		xs = newLinearScale(xMin, xMax, 0, scatterWidth).nice(10)
		ys = newLinearScale(yMin, yMax, scatterHeight, 0).nice(10)
	} else {
		xs = newLogScale(xMin, xMax, 0, scatterWidth)
		ys = newLogScale(yMin, yMax, scatterHeight, 0)
	}

	selected := v.state.Selected
	for _, c := range v.points {
		f.Elements = append(f.Elements, Element{
			ID:       c.ID,
			Kind:     KindPoint,
			X:        xs.Map(*c.ROI),
			Y:        ys.Map(c.ValuationBillions()),
			Size:     scatterRadius,
			Fill:     c.Industry.Colour(),
			Label:    c.Name,
			Selected: c.ID == selected,
		})
	}
	f.Axes = []Axis{
		xs.axis("x", "ROI", 3),
		ys.axis("y", "Valuation($B)", 5),
	}
	return f
}

func (v *ScatterplotView) showTooltip(id string, pos events.Position) bool {
	c, ok := v.byID[id]
	if !ok {
		return false
	}
	v.bus.Emit(events.TopicShowCompanyTooltip, events.ShowCompanyTooltip{Company: c, Position: pos})
	return true
}
