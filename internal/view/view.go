// Package view holds the dashboard's view controllers. Each view derives
// its dataset from the shared filter state, encodes it into renderer
// elements and wires interaction handlers that emit bus events.
package view

import (
	"encoding/json"
	"log/slog"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
)

// Name identifies a view.
type Name string

const (
	Scatterplot Name = "scatterplot"
	Heatmap     Name = "heatmap"
	Network     Name = "network"
	Choropleth  Name = "choropleth"
	StackedArea Name = "stackedArea"
	Slider      Name = "slider"
	Legend      Name = "legend"
)

// Names lists every view in render order.
var Names = []Name{Legend, Slider, Scatterplot, Heatmap, Network, StackedArea, Choropleth}

// UpdateKind selects how much of the pipeline an update runs.
type UpdateKind int

const (
	// UpdateFilter re-derives, re-encodes and re-renders.
	UpdateFilter UpdateKind = iota
	// UpdateSelection restyles selection and highlight flags only.
	UpdateSelection
	// UpdateScale re-encodes after a scale change.
	UpdateScale
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateFilter:
		return "filter"
	case UpdateSelection:
		return "selection"
	case UpdateScale:
		return "scale"
	default:
		return "unknown"
	}
}

// View is a view controller.
type View interface {
	Name() Name
	Update(kind UpdateKind)
	// Frame returns the most recently rendered frame.
	Frame() *Frame
	// Handle routes a renderer interaction to the view's handlers.
	Handle(in Interaction)
}

// ElementKind tags what an element draws.
type ElementKind string

const (
	KindPoint    ElementKind = "point"
	KindCell     ElementKind = "cell"
	KindCompany  ElementKind = "company"
	KindInvestor ElementKind = "investor"
	KindLink     ElementKind = "link"
	KindLabel    ElementKind = "label"
	KindRegion   ElementKind = "region"
	KindArea     ElementKind = "area"
	KindBrush    ElementKind = "brush"
	KindRow      ElementKind = "row"
)

// AreaPoint is one vertex of a filled band.
type AreaPoint struct {
	X  float64 `json:"x"`
	Y0 float64 `json:"y0"`
	Y1 float64 `json:"y1"`
}

// Element is one drawable entity with its visual encoding resolved to
// renderer units.
type Element struct {
	ID     string      `json:"id"`
	Kind   ElementKind `json:"kind"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	X2     float64     `json:"x2,omitempty"`
	Y2     float64     `json:"y2,omitempty"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
	// Size is a symbol area in square pixels, or a radius for points.
	Size        float64         `json:"size,omitempty"`
	Fill        string          `json:"fill,omitempty"`
	Label       string          `json:"label,omitempty"`
	Points      []AreaPoint     `json:"points,omitempty"`
	Geometry    json.RawMessage `json:"geometry,omitempty"`
	Selected    bool            `json:"selected,omitempty"`
	Highlighted bool            `json:"highlighted,omitempty"`
	Checked     bool            `json:"checked,omitempty"`
}

// Tick is one axis tick.
type Tick struct {
	Value float64 `json:"value"`
	Pos   float64 `json:"pos"`
	Label string  `json:"label"`
}

// Axis is a rendered axis or legend scale.
type Axis struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Ticks []Tick `json:"ticks"`
}

// LegendEntry is one symbol in a view's own legend.
type LegendEntry struct {
	Group string  `json:"group"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Size  float64 `json:"size,omitempty"`
	Fill  string  `json:"fill,omitempty"`
}

// Frame is the complete render output of one view update.
type Frame struct {
	View     Name          `json:"view"`
	Update   string        `json:"update"`
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Elements []Element     `json:"elements"`
	Empty    bool          `json:"empty"`
	Axes     []Axis        `json:"axes,omitempty"`
	Legend   []LegendEntry `json:"legend,omitempty"`
	Scale    ScaleType     `json:"scale,omitempty"`
	Feedback string        `json:"feedback,omitempty"`
	// Range and Brush carry the slider's control state.
	Range *model.YearRange `json:"range,omitempty"`
	Brush *[2]float64      `json:"brush,omitempty"`
}

// NodePosition is a tick-time position update for one node.
type NodePosition struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Tooltip is formatted tooltip content positioned in page coordinates.
type Tooltip struct {
	Title    string   `json:"title"`
	Link     string   `json:"link,omitempty"`
	LinkText string   `json:"link_text,omitempty"`
	Text     string   `json:"text,omitempty"`
	Lines    []string `json:"lines,omitempty"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
}

// Renderer is the external paint collaborator.
type Renderer interface {
	Render(view Name, f *Frame)
	AttachHandlers(view Name, elements []Element, h Handlers)
	ShowTooltip(t Tooltip)
	MoveTooltip(x, y float64)
	HideTooltip()
}

// Mover is implemented by renderers that can reposition nodes between
// full renders.
type Mover interface {
	Move(view Name, positions []NodePosition)
}

// Deps are the collaborators every view is built with.
type Deps struct {
	Bus      *events.Bus
	State    *model.FilterState
	Entities *store.Entities
	Renderer Renderer
	Logger   *slog.Logger
}

// base carries the state shared by every view controller.
type base struct {
	name     Name
	bus      *events.Bus
	state    *model.FilterState
	entities *store.Entities
	r        Renderer
	logger   *slog.Logger
	handlers Handlers
	frame    *Frame
}

func newBase(name Name, d Deps) base {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		name:     name,
		bus:      d.Bus,
		state:    d.State,
		entities: d.Entities,
		r:        d.Renderer,
		logger:   logger.With("view", string(name)),
	}
}

func (b *base) Name() Name { return b.name }

func (b *base) Frame() *Frame { return b.frame }

func (b *base) Handle(in Interaction) {
	b.handlers.Dispatch(in)
}

// filtered returns the companies passing the current filter.
func (b *base) filtered() []*model.Company {
	return derive.FilterCompanies(b.entities.Companies(), b.state.Snapshot())
}

// render hands f to the renderer and reattaches handlers.
func (b *base) render(kind UpdateKind, f *Frame) {
	f.View = b.name
	f.Update = kind.String()
	if f.Elements == nil {
		f.Elements = []Element{}
	}
	b.frame = f
	if b.r == nil {
		return
	}
	b.r.Render(b.name, f)
	b.r.AttachHandlers(b.name, f.Elements, b.handlers)
}

// tooltipHandlers returns hover handlers that emit show/move/hide events.
func (b *base) tooltipHandlers(show func(id string, pos events.Position) bool) Handlers {
	return Handlers{
		Hover: func(id string, x, y float64) {
			show(id, events.Position{X: x, Y: y})
		},
		Move: func(id string, x, y float64) {
			b.bus.Emit(events.TopicMoveTooltip, events.MoveTooltip{Position: events.Position{X: x, Y: y}})
		},
		Leave: func(string) {
			b.bus.Emit(events.TopicHideTooltip, events.HideTooltip{})
		},
	}
}
