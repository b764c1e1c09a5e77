// Package dashboard wires the views of one dashboard session to the shared
// filter state through the event bus.
package dashboard

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/layout"
	"github.com/alfredjeanlab/unicorns/internal/loop"
	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

// ErrUnknownView is returned for view names outside view.Names.
var ErrUnknownView = errors.New("unknown view")

// Options tune a dashboard session.
type Options struct {
	Derive derive.Options
	Layout layout.Config
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		Derive: derive.Options{TopK: derive.DefaultTopK, ScatterLimit: derive.DefaultScatterLimit},
		Layout: layout.DefaultConfig(),
	}
}

// Coordinator owns the filter state and the bus handlers that mutate it.
// It is not safe for concurrent use; run it on a loop.Loop.
type Coordinator struct {
	bus      *events.Bus
	state    *model.FilterState
	entities *store.Entities
	r        view.Renderer
	opts     Options
	logger   *slog.Logger

	views   map[view.Name]view.View
	order   []view.View
	scatter *view.ScatterplotView
	network *view.NetworkView
	slider  *view.SliderView

	cancels []func()
}

// New builds every view and subscribes the coordinator's handlers. Nothing
// is rendered until Start.
func New(e *store.Entities, bus *events.Bus, r view.Renderer, sched loop.Scheduler, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		bus:      bus,
		state:    model.NewFilterState(e.YearExtent()),
		entities: e,
		r:        r,
		opts:     opts,
		logger:   logger,
		views:    make(map[view.Name]view.View),
	}

	d := view.Deps{Bus: bus, State: c.state, Entities: e, Renderer: r, Logger: logger}
	c.scatter = view.NewScatterplot(d, opts.Derive.ScatterLimit)
	c.network = view.NewNetwork(d, opts.Derive.TopK, sched, opts.Layout)
	c.slider = view.NewSlider(d)
	for _, v := range []view.View{
		view.NewLegend(d),
		c.slider,
		c.scatter,
		view.NewHeatmap(d, opts.Derive.TopK),
		c.network,
		view.NewStackedArea(d),
		view.NewChoropleth(d),
	} {
		c.views[v.Name()] = v
		c.order = append(c.order, v)
	}

	c.subscribe()
	return c
}

func (c *Coordinator) subscribe() {
	on := func(topic string, h events.Handler) {
		c.cancels = append(c.cancels, c.bus.On(topic, h))
	}

	on(events.TopicToggleIndustry, events.Typed(func(e events.ToggleIndustry) error {
		if !c.state.ToggleIndustry(e.Industry) {
			return fmt.Errorf("unknown industry %q", e.Industry)
		}
		c.filterChanged()
		return nil
	}))
	on(events.TopicUpdateYearFilter, events.Typed(func(e events.UpdateYearFilter) error {
		c.state.SetYears(e.Range, c.entities.YearExtent())
		c.filterChanged()
		return nil
	}))

	on(events.TopicSelectItem, events.Typed(func(e events.SelectItem) error {
		if !c.known(e.ID) {
			return nil
		}
		c.state.Select(e.ID)
		c.updateAll(view.UpdateSelection)
		return nil
	}))
	on(events.TopicToggleSelectedItem, events.Typed(func(e events.ToggleSelectedItem) error {
		if !c.known(e.ID) {
			return nil
		}
		c.state.ToggleSelection(e.ID)
		c.updateAll(view.UpdateSelection)
		return nil
	}))
	on(events.TopicClearSelectedItem, events.Typed(func(events.ClearSelectedItem) error {
		c.state.ClearSelection()
		c.updateAll(view.UpdateSelection)
		return nil
	}))

	if c.r == nil {
		return
	}
	on(events.TopicShowCompanyTooltip, events.Typed(func(e events.ShowCompanyTooltip) error {
		c.r.ShowTooltip(view.CompanyTooltip(e))
		return nil
	}))
	on(events.TopicShowInvestorTooltip, events.Typed(func(e events.ShowInvestorTooltip) error {
		c.r.ShowTooltip(view.InvestorTooltip(e))
		return nil
	}))
	on(events.TopicShowHeatmapTooltip, events.Typed(func(e events.ShowHeatmapTooltip) error {
		c.r.ShowTooltip(view.HeatmapTooltip(e))
		return nil
	}))
	on(events.TopicShowMapTooltip, events.Typed(func(e events.ShowMapTooltip) error {
		c.r.ShowTooltip(view.MapTooltip(e))
		return nil
	}))
	on(events.TopicMoveTooltip, events.Typed(func(e events.MoveTooltip) error {
		c.r.MoveTooltip(e.X, e.Y)
		return nil
	}))
	on(events.TopicHideTooltip, events.Typed(func(events.HideTooltip) error {
		c.r.HideTooltip()
		return nil
	}))
}

// known reports whether id names a company or investor, logging misses.
func (c *Coordinator) known(id string) bool {
	if c.entities.Known(id) {
		return true
	}
	c.logger.Debug("ignoring selection of unknown item", "id", id)
	return false
}

// filterChanged clears the selection and re-derives every view.
func (c *Coordinator) filterChanged() {
	c.state.ClearSelection()
	c.updateAll(view.UpdateFilter)
}

func (c *Coordinator) updateAll(kind view.UpdateKind) {
	for _, v := range c.order {
		v.Update(kind)
	}
}

// Start renders every view for the initial state.
func (c *Coordinator) Start() {
	c.logger.Info("dashboard started",
		"companies", len(c.entities.Companies()),
		"years", c.state.Years.String())
	c.updateAll(view.UpdateFilter)
}

// Close unsubscribes the handlers and stops the layout.
func (c *Coordinator) Close() {
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.network.Stop()
}

// Bus returns the session bus.
func (c *Coordinator) Bus() *events.Bus { return c.bus }

// Entities returns the entity store.
func (c *Coordinator) Entities() *store.Entities { return c.entities }

// State returns a snapshot of the filter state.
func (c *Coordinator) State() model.FilterState { return c.state.Snapshot() }

// View looks up a view by name.
func (c *Coordinator) View(name view.Name) (view.View, bool) {
	v, ok := c.views[name]
	return v, ok
}

// Views returns every view in render order.
func (c *Coordinator) Views() []view.View { return c.order }

// Network returns the network view.
func (c *Coordinator) Network() *view.NetworkView { return c.network }

// Slider returns the year slider.
func (c *Coordinator) Slider() *view.SliderView { return c.slider }

// Datasets computes every derived dataset for the current state.
func (c *Coordinator) Datasets() *derive.Datasets {
	return derive.Compute(c.entities, c.state.Snapshot(), c.opts.Derive)
}

// Interact routes a renderer interaction to its view.
func (c *Coordinator) Interact(in view.Interaction) error {
	if err := in.Validate(); err != nil {
		return err
	}
	v, ok := c.views[in.View]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownView, in.View)
	}
	v.Handle(in)
	return nil
}

// SetScale switches the scale of the scatterplot or the network.
func (c *Coordinator) SetScale(name view.Name, t view.ScaleType) error {
	switch name {
	case view.Scatterplot:
		c.scatter.SetScale(t)
	case view.Network:
		c.network.SetScale(t)
	default:
		return fmt.Errorf("view %q has no scale toggle", name)
	}
	return nil
}

// Search runs the network search box.
func (c *Coordinator) Search(text string) string {
	return c.network.Search(text)
}
