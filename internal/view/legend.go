package view

import (
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/model"
)

const legendRowHeight = 20

// LegendView lists every industry with a checkbox bound to the industry
// filter.
type LegendView struct {
	base
}

// NewLegend returns the industry legend.
func NewLegend(d Deps) *LegendView {
	v := &LegendView{base: newBase(Legend, d)}
	toggle := func(id string) {
		v.bus.Emit(events.TopicToggleIndustry, events.ToggleIndustry{Industry: model.Industry(id)})
	}
	v.handlers = Handlers{
		Click: func(id string, p *Pointer) {
			p.Consume()
			toggle(id)
		},
		Input: func(_, text string) { toggle(text) },
	}
	return v
}

func (v *LegendView) Update(kind UpdateKind) {
	v.render(kind, v.encode())
}

func (v *LegendView) encode() *Frame {
	industries := model.Industries()
	f := &Frame{Width: 250, Height: float64(len(industries) * legendRowHeight)}
	for i, ind := range industries {
		f.Elements = append(f.Elements, Element{
			ID:      string(ind),
			Kind:    KindRow,
			Y:       float64(i * legendRowHeight),
			Fill:    ind.Colour(),
			Label:   string(ind),
			Checked: v.state.Industries.Has(ind),
		})
	}
	return f
}
