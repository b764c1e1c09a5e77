package layout

import (
	"log/slog"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/loop"
)

// Force names registered by the engine.
const (
	ForceLink   = "link"
	ForceCharge = "charge"
	ForceRadial = "radial"
)

// Reason says why the graph is being re-laid out.
type Reason int

const (
	// ReasonSelection re-renders without touching the simulation.
	ReasonSelection Reason = iota
	// ReasonScale reheats a little while node sizes change.
	ReasonScale
	// ReasonFilter brings the layout to full heat while nodes come and go.
	ReasonFilter
)

// Config holds the force parameters and reheat schedule.
type Config struct {
	CompanyCharge  float64
	InvestorCharge float64
	LinkStrength   float64
	LinkDistance   float64
	Radius         float64
	RadialStrength float64
	FrameInterval  time.Duration

	ScaleTarget   float64
	ScaleCoolDown time.Duration

	FilterTarget float64
	FilterPeak   float64
	FilterPeakIn time.Duration
	FilterCoolIn time.Duration
	DragTarget   float64
}

// DefaultConfig returns the stock network layout parameters.
func DefaultConfig() Config {
	return Config{
		CompanyCharge:  -50,
		InvestorCharge: -200,
		LinkStrength:   0.75,
		LinkDistance:   30,
		Radius:         180,
		RadialStrength: 1,
		FrameInterval:  16 * time.Millisecond,

		ScaleTarget:   0.1,
		ScaleCoolDown: 150 * time.Millisecond,

		FilterTarget: 0.2,
		FilterPeak:   1,
		FilterPeakIn: 100 * time.Millisecond,
		FilterCoolIn: 200 * time.Millisecond,
		DragTarget:   0.3,
	}
}

// Engine owns a Simulation for one graph view: it builds nodes from a
// derived graph, carries positions across rebuilds and applies the reheat
// policy. Like Simulation it must be driven from the scheduler's context.
type Engine struct {
	cfg    Config
	sched  loop.Scheduler
	sim    *Simulation
	link   *LinkForce
	logger *slog.Logger

	nodes     []*Node
	links     []*Link
	byID      map[string]*Node
	positions map[string]Position
	pending   []loop.Timer
	dragging  *Node
}

// NewEngine returns a cold engine stepping on sched.
func NewEngine(sched loop.Scheduler, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:       cfg,
		sched:     sched,
		sim:       NewSimulation(sched, cfg.FrameInterval),
		link:      NewLinkForce(cfg.LinkStrength, cfg.LinkDistance),
		logger:    logger,
		byID:      make(map[string]*Node),
		positions: make(map[string]Position),
	}
	e.sim.AddForce(ForceSpec{Name: ForceLink, Force: e.link})
	e.sim.AddForce(ForceSpec{
		Name: ForceCharge,
		Force: NewManyBody(func(n *Node) float64 {
			if n.IsCompany() {
				return cfg.CompanyCharge
			}
			return cfg.InvestorCharge
		}),
	})
	e.sim.AddForce(ForceSpec{
		Name:   ForceRadial,
		Force:  NewRadial(cfg.Radius, cfg.RadialStrength),
		Subset: (*Node).IsInvestor,
	})
	e.sim.OnTick(e.remember)
	return e
}

// Simulation exposes the underlying simulation.
func (e *Engine) Simulation() *Simulation { return e.sim }

// Nodes returns company nodes followed by investor nodes.
func (e *Engine) Nodes() []*Node { return e.nodes }

// Links returns the current links.
func (e *Engine) Links() []*Link { return e.links }

// Node looks up a node by id.
func (e *Engine) Node(id string) (*Node, bool) {
	n, ok := e.byID[id]
	return n, ok
}

// Regime reports the simulation's stepping state.
func (e *Engine) Regime() Regime { return e.sim.Regime() }

// OnTick registers f to run after every simulation step.
func (e *Engine) OnTick(f func()) { e.sim.OnTick(f) }

// CachedPosition returns the last known position of id.
func (e *Engine) CachedPosition(id string) (Position, bool) {
	p, ok := e.positions[id]
	return p, ok
}

// SetGraph rebuilds nodes and links from g, restoring cached positions, and
// reheats according to reason. Nodes absent from the cache are placed by
// the simulation.
func (e *Engine) SetGraph(g derive.Graph, reason Reason) {
	e.remember()

	nodes := make([]*Node, 0, len(g.Companies)+len(g.Investors))
	byID := make(map[string]*Node, cap(nodes))
	for _, c := range g.Companies {
		n := NewCompanyNode(c)
		nodes = append(nodes, n)
		byID[n.ID] = n
	}
	for _, i := range g.Investors {
		n := NewInvestorNode(i)
		nodes = append(nodes, n)
		byID[n.ID] = n
	}
	for _, n := range nodes {
		if p, ok := e.positions[n.ID]; ok {
			n.Place(p.X, p.Y)
		}
	}

	links := make([]*Link, 0, len(g.Links))
	for _, l := range g.Links {
		src, ok1 := byID[l.InvestorID]
		tgt, ok2 := byID[l.CompanyID]
		if !ok1 || !ok2 {
			e.logger.Debug("dropping link with missing endpoint",
				"investor", l.InvestorID, "company", l.CompanyID)
			continue
		}
		links = append(links, &Link{Source: src, Target: tgt})
	}

	e.nodes, e.links, e.byID = nodes, links, byID
	e.dragging = nil
	e.link.SetLinks(links)
	e.sim.SetNodes(nodes)
	e.remember()

	e.Reheat(reason)
}

// Reheat applies the reheat schedule for reason, cancelling any pending
// schedule first.
func (e *Engine) Reheat(reason Reason) {
	switch reason {
	case ReasonScale:
		e.cancelPending()
		e.heat(e.cfg.ScaleTarget)
		e.after(e.cfg.ScaleCoolDown, func() { e.sim.SetAlphaTarget(0) })
	case ReasonFilter:
		e.cancelPending()
		e.heat(e.cfg.FilterTarget)
		e.after(e.cfg.FilterPeakIn, func() {
			e.sim.SetAlphaTarget(e.cfg.FilterPeak)
			e.after(e.cfg.FilterCoolIn, func() { e.sim.SetAlphaTarget(0) })
		})
	}
}

// DragStart pins id at its current position and warms the layout.
func (e *Engine) DragStart(id string) bool {
	n, ok := e.byID[id]
	if !ok {
		return false
	}
	e.cancelPending()
	if e.dragging == nil {
		e.heat(e.cfg.DragTarget)
	}
	n.Pin(n.X, n.Y)
	e.dragging = n
	return true
}

// DragMove moves the pin of the dragged node.
func (e *Engine) DragMove(id string, x, y float64) bool {
	n, ok := e.byID[id]
	if !ok || !n.Pinned() {
		return false
	}
	n.Pin(x, y)
	return true
}

// DragEnd releases the dragged node and lets the layout cool.
func (e *Engine) DragEnd(id string) bool {
	n, ok := e.byID[id]
	if !ok {
		return false
	}
	n.Unpin()
	if e.dragging == n {
		e.dragging = nil
		e.sim.SetAlphaTarget(0)
	}
	return true
}

// Stop halts the simulation and cancels pending reheat timers.
func (e *Engine) Stop() {
	e.cancelPending()
	e.sim.Stop()
}

func (e *Engine) heat(target float64) {
	e.sim.SetAlphaTarget(target)
	e.sim.Restart()
}

func (e *Engine) after(d time.Duration, f func()) {
	e.pending = append(e.pending, e.sched.AfterFunc(d, f))
}

func (e *Engine) cancelPending() {
	for _, t := range e.pending {
		t.Stop()
	}
	e.pending = e.pending[:0]
}

func (e *Engine) remember() {
	for _, n := range e.nodes {
		e.positions[n.ID] = n.Position()
	}
}
