package view

import (
	"math"
	"strings"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/layout"
	"github.com/alfredjeanlab/unicorns/internal/loop"
)

const (
	networkWidth  = 700
	networkHeight = 650

	// Search feedback texts.
	SearchEmpty    = "Please enter a company or investor name."
	SearchNotFound = "Sorry, we couldn't find a matching company or investor in the current view."
)

var (
	companyAreaRange  = [2]float64{6 * 6, 18 * 18}
	investorAreaRange = [2]float64{25 * 25, 50 * 50}

	// CompanySizeLegendValues are the ROI values labelled in the legend.
	CompanySizeLegendValues = []float64{1, 10, 100, 10000}
)

// NetworkView draws the top investors and their companies as a force graph.
type NetworkView struct {
	base
	topK     int
	scale    ScaleType
	engine   *layout.Engine
	graph    derive.Graph
	roiRange [2]float64
	feedback string
}

// NewNetwork returns a network view stepping its layout on sched.
func NewNetwork(d Deps, topK int, sched loop.Scheduler, cfg layout.Config) *NetworkView {
	v := &NetworkView{
		base:   newBase(Network, d),
		topK:   topK,
		scale:  ScaleLog,
		engine: layout.NewEngine(sched, cfg, d.Logger),
	}

	// The company size domain covers every ROI-bearing company and does
	// not follow the filters.
	v.roiRange = [2]float64{math.Inf(1), math.Inf(-1)}
	for _, c := range derive.WithROI(v.entities.Companies()) {
		v.roiRange[0] = math.Min(v.roiRange[0], *c.ROI)
		v.roiRange[1] = math.Max(v.roiRange[1], *c.ROI)
	}
	if math.IsInf(v.roiRange[0], 0) {
		v.roiRange = [2]float64{1, 1}
	}

	v.handlers = v.tooltipHandlers(v.showTooltip)
	v.handlers.Click = func(id string, p *Pointer) {
		p.Consume()
		v.bus.Emit(events.TopicToggleSelectedItem, events.ToggleSelectedItem{ID: id})
	}
	v.handlers.Background = func(*Pointer) {
		v.bus.Emit(events.TopicClearSelectedItem, events.ClearSelectedItem{})
	}
	v.handlers.DragStart = func(id string) { v.engine.DragStart(id) }
	v.handlers.Drag = func(id string, x, y float64) { v.engine.DragMove(id, x, y) }
	v.handlers.DragEnd = func(id string) { v.engine.DragEnd(id) }
	v.handlers.Input = func(field, text string) {
		if field == "search" {
			v.Search(text)
		}
	}

	v.engine.OnTick(v.tick)
	return v
}

// Engine exposes the layout engine.
func (v *NetworkView) Engine() *layout.Engine { return v.engine }

// Graph returns the current derived graph.
func (v *NetworkView) Graph() derive.Graph { return v.graph }

// Scale returns the company size scale.
func (v *NetworkView) Scale() ScaleType { return v.scale }

// SetScale switches company sizing between log and linear ROI.
func (v *NetworkView) SetScale(t ScaleType) {
	v.scale = t
	v.Update(UpdateScale)
}

func (v *NetworkView) Update(kind UpdateKind) {
	switch kind {
	case UpdateFilter:
		v.graph = derive.NetworkGraph(v.filtered(), v.entities.Investments(), v.topK)
		v.engine.SetGraph(v.graph, layout.ReasonFilter)
	case UpdateScale:
		v.engine.Reheat(layout.ReasonScale)
	}
	v.render(kind, v.encode())
}

// Search selects the first node in the current view whose company name or
// investor id contains text, case-insensitively, and returns the feedback
// to display.
func (v *NetworkView) Search(text string) string {
	text = strings.TrimSpace(text)
	v.feedback = ""
	if text == "" {
		v.feedback = SearchEmpty
	} else if hit := v.find(text); hit == "" {
		v.feedback = SearchNotFound
	} else {
		v.bus.Emit(events.TopicSelectItem, events.SelectItem{ID: hit})
	}
	if v.frame != nil && v.frame.Feedback != v.feedback {
		// Frames already handed to the renderer are never mutated.
		f := *v.frame
		f.Feedback = v.feedback
		v.render(UpdateSelection, &f)
	}
	return v.feedback
}

func (v *NetworkView) find(text string) string {
	needle := strings.ToUpper(text)
	for _, n := range v.engine.Nodes() {
		name := n.ID
		if n.IsCompany() {
			name = n.Company.Name
		}
		if strings.Contains(strings.ToUpper(name), needle) {
			return n.ID
		}
	}
	return ""
}

func (v *NetworkView) companyArea() *continuous {
	tf := v.scale.transform()
	return newLinearScale(tf(v.roiRange[0]), tf(v.roiRange[1]), companyAreaRange[0], companyAreaRange[1])
}

func (v *NetworkView) investorArea() (*continuous, [2]float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range v.graph.Investors {
		lo, hi = math.Min(lo, float64(i.Count())), math.Max(hi, float64(i.Count()))
	}
	if math.IsInf(lo, 0) {
		lo, hi = 0, 0
	}
	return newLinearScale(lo, hi, investorAreaRange[0], investorAreaRange[1]), [2]float64{lo, hi}
}

func (v *NetworkView) encode() *Frame {
	f := &Frame{
		Width:    networkWidth,
		Height:   networkHeight,
		Scale:    v.scale,
		Feedback: v.feedback,
	}
	tf := v.scale.transform()
	ca := v.companyArea()
	ia, idomain := v.investorArea()

	selected := v.state.Selected
	connected := make(map[string]bool)
	for _, l := range v.engine.Links() {
		if selected != "" && (l.Source.ID == selected || l.Target.ID == selected) {
			connected[l.Source.ID] = true
			connected[l.Target.ID] = true
		}
	}

	for _, l := range v.engine.Links() {
		f.Elements = append(f.Elements, Element{
			ID:          l.Source.ID + "->" + l.Target.ID,
			Kind:        KindLink,
			X:           l.Source.X,
			Y:           l.Source.Y,
			X2:          l.Target.X,
			Y2:          l.Target.Y,
			Highlighted: selected != "" && (l.Source.ID == selected || l.Target.ID == selected),
		})
	}
	for _, n := range v.engine.Nodes() {
		e := Element{
			ID:          n.ID,
			X:           n.X,
			Y:           n.Y,
			Selected:    n.ID == selected,
			Highlighted: connected[n.ID],
		}
		if n.IsCompany() {
			e.Kind = KindCompany
			e.Size = ca.Map(tf(*n.Company.ROI))
			e.Fill = n.Company.Industry.Colour()
			e.Label = n.Company.Name
		} else {
			e.Kind = KindInvestor
			e.Size = ia.Map(float64(n.Investor.Count()))
			e.Fill = "white"
			e.Label = n.ID
		}
		f.Elements = append(f.Elements, e)
	}
	f.Empty = len(v.engine.Nodes()) == 0

	for _, val := range CompanySizeLegendValues {
		f.Legend = append(f.Legend, LegendEntry{
			Group: "Companies",
			Label: formatFixed(val, 0),
			Value: val,
			Size:  ca.Map(tf(val)),
		})
	}
	for _, val := range idomain {
		f.Legend = append(f.Legend, LegendEntry{
			Group: "Investors",
			Label: formatFixed(val, 0),
			Value: val,
			Size:  ia.Map(val),
		})
	}
	return f
}

func (v *NetworkView) tick() {
	mover, ok := v.r.(Mover)
	if !ok {
		return
	}
	nodes := v.engine.Nodes()
	pos := make([]NodePosition, len(nodes))
	for i, n := range nodes {
		pos[i] = NodePosition{ID: n.ID, X: n.X, Y: n.Y}
	}
	mover.Move(v.name, pos)
}

func (v *NetworkView) showTooltip(id string, pos events.Position) bool {
	n, ok := v.engine.Node(id)
	if !ok {
		return false
	}
	if n.IsCompany() {
		v.bus.Emit(events.TopicShowCompanyTooltip, events.ShowCompanyTooltip{Company: n.Company, Position: pos})
	} else {
		v.bus.Emit(events.TopicShowInvestorTooltip, events.ShowInvestorTooltip{Investor: n.Investor, Position: pos})
	}
	return true
}

// Stop halts the layout.
func (v *NetworkView) Stop() {
	v.engine.Stop()
}
