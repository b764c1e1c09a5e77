// Package render provides an in-memory renderer that keeps the latest frame
// of every view and fans paint updates out to listeners.
package render

import (
	"fmt"
	"sync"

	"github.com/alfredjeanlab/unicorns/internal/view"
)

// Update kinds delivered to listeners.
const (
	KindFrame       = "frame"
	KindPositions   = "positions"
	KindTooltipShow = "tooltip.show"
	KindTooltipMove = "tooltip.move"
	KindTooltipHide = "tooltip.hide"
)

// Update is one paint instruction.
type Update struct {
	Kind      string              `json:"kind"`
	View      view.Name           `json:"view,omitempty"`
	Frame     *view.Frame         `json:"frame,omitempty"`
	Positions []view.NodePosition `json:"positions,omitempty"`
	Tooltip   *view.Tooltip       `json:"tooltip,omitempty"`
}

// Topic returns the dot-separated stream topic of the update, e.g.
// "frame.network".
func (u Update) Topic() string {
	if u.View == "" {
		return u.Kind
	}
	return u.Kind + "." + string(u.View)
}

// Recorder implements view.Renderer and view.Mover. Render calls arrive on
// the dashboard loop; reads may come from any goroutine.
type Recorder struct {
	mu        sync.RWMutex
	frames    map[view.Name]*view.Frame
	handlers  map[view.Name]view.Handlers
	tooltip   *view.Tooltip
	renders   map[view.Name]int
	listeners map[int]func(Update)
	nextID    int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		frames:    make(map[view.Name]*view.Frame),
		handlers:  make(map[view.Name]view.Handlers),
		renders:   make(map[view.Name]int),
		listeners: make(map[int]func(Update)),
	}
}

// Listen registers f for every subsequent update. f runs on the renderer's
// caller goroutine and must not block.
func (r *Recorder) Listen(f func(Update)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = f
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Recorder) notify(u Update) {
	r.mu.RLock()
	ls := make([]func(Update), 0, len(r.listeners))
	for _, f := range r.listeners {
		ls = append(ls, f)
	}
	r.mu.RUnlock()
	for _, f := range ls {
		f(u)
	}
}

func (r *Recorder) Render(name view.Name, f *view.Frame) {
	r.mu.Lock()
	r.frames[name] = f
	r.renders[name]++
	r.mu.Unlock()
	r.notify(Update{Kind: KindFrame, View: name, Frame: f})
}

func (r *Recorder) AttachHandlers(name view.Name, _ []view.Element, h view.Handlers) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

func (r *Recorder) ShowTooltip(t view.Tooltip) {
	r.mu.Lock()
	r.tooltip = &t
	r.mu.Unlock()
	r.notify(Update{Kind: KindTooltipShow, Tooltip: &t})
}

func (r *Recorder) MoveTooltip(x, y float64) {
	r.mu.Lock()
	var moved *view.Tooltip
	if r.tooltip != nil {
		t := *r.tooltip
		t.X, t.Y = x+view.TooltipPadding, y+view.TooltipPadding
		r.tooltip = &t
		moved = &t
	}
	r.mu.Unlock()
	if moved != nil {
		r.notify(Update{Kind: KindTooltipMove, Tooltip: moved})
	}
}

func (r *Recorder) HideTooltip() {
	r.mu.Lock()
	r.tooltip = nil
	r.mu.Unlock()
	r.notify(Update{Kind: KindTooltipHide})
}

func (r *Recorder) Move(name view.Name, positions []view.NodePosition) {
	r.notify(Update{Kind: KindPositions, View: name, Positions: positions})
}

// Frame returns the latest frame of a view.
func (r *Recorder) Frame(name view.Name) (*view.Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.frames[name]
	return f, ok
}

// Frames returns the latest frame of every rendered view.
func (r *Recorder) Frames() map[view.Name]*view.Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[view.Name]*view.Frame, len(r.frames))
	for k, v := range r.frames {
		out[k] = v
	}
	return out
}

// Renders returns how many times a view has been rendered.
func (r *Recorder) Renders(name view.Name) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renders[name]
}

// Tooltip returns the visible tooltip, if any.
func (r *Recorder) Tooltip() (view.Tooltip, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.tooltip == nil {
		return view.Tooltip{}, false
	}
	return *r.tooltip, true
}

// Dispatch delivers an interaction to the handlers last attached for its
// view. It must run on the dashboard loop.
func (r *Recorder) Dispatch(in view.Interaction) error {
	if err := in.Validate(); err != nil {
		return err
	}
	r.mu.RLock()
	h, ok := r.handlers[in.View]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handlers attached for view %q", in.View)
	}
	h.Dispatch(in)
	return nil
}
