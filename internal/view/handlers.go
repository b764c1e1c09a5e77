package view

import "fmt"

// Pointer tracks whether an entity handler already claimed a click, so
// the view's background handler can ignore it.
type Pointer struct {
	consumed bool
}

// Consume marks the click as handled.
func (p *Pointer) Consume() { p.consumed = true }

// Consumed reports whether an entity handler claimed the click.
func (p *Pointer) Consumed() bool { return p.consumed }

// Handlers are the callbacks a renderer invokes for user interaction.
// Nil callbacks are ignored.
type Handlers struct {
	Click      func(id string, p *Pointer)
	Background func(p *Pointer)
	Hover      func(id string, x, y float64)
	Move       func(id string, x, y float64)
	Leave      func(id string)

	DragStart func(id string)
	Drag      func(id string, x, y float64)
	DragEnd   func(id string)

	// Input receives free text, e.g. slider year fields or search.
	Input func(field, text string)
	// Brush receives a pixel range, or nil when cleared.
	Brush func(px *[2]float64)
}

// InteractionType names a renderer interaction.
type InteractionType string

const (
	InteractClick     InteractionType = "click"
	InteractHover     InteractionType = "hover"
	InteractMove      InteractionType = "move"
	InteractLeave     InteractionType = "leave"
	InteractDragStart InteractionType = "dragstart"
	InteractDrag      InteractionType = "drag"
	InteractDragEnd   InteractionType = "dragend"
	InteractInput     InteractionType = "input"
	InteractBrush     InteractionType = "brush"
)

// Interaction is one user gesture reported by a renderer. An empty ID on
// a click means the background was hit.
type Interaction struct {
	View  Name            `json:"view"`
	Type  InteractionType `json:"type"`
	ID    string          `json:"id,omitempty"`
	X     float64         `json:"x,omitempty"`
	Y     float64         `json:"y,omitempty"`
	Field string          `json:"field,omitempty"`
	Text  string          `json:"text,omitempty"`
	Range *[2]float64     `json:"range,omitempty"`
}

// Validate checks the interaction is well formed.
func (in Interaction) Validate() error {
	switch in.Type {
	case InteractClick, InteractBrush:
	case InteractHover, InteractMove, InteractLeave,
		InteractDragStart, InteractDrag, InteractDragEnd:
		if in.ID == "" {
			return fmt.Errorf("%s interaction requires an id", in.Type)
		}
	case InteractInput:
		if in.Field == "" {
			return fmt.Errorf("input interaction requires a field")
		}
	default:
		return fmt.Errorf("unknown interaction type %q", in.Type)
	}
	return nil
}

// Dispatch routes in to the matching callback. A click runs the entity
// handler first and the background handler only if the click was not
// consumed.
func (h Handlers) Dispatch(in Interaction) {
	switch in.Type {
	case InteractClick:
		p := &Pointer{}
		if in.ID != "" && h.Click != nil {
			h.Click(in.ID, p)
		}
		if !p.Consumed() && h.Background != nil {
			h.Background(p)
		}
	case InteractHover:
		if h.Hover != nil {
			h.Hover(in.ID, in.X, in.Y)
		}
	case InteractMove:
		if h.Move != nil {
			h.Move(in.ID, in.X, in.Y)
		}
	case InteractLeave:
		if h.Leave != nil {
			h.Leave(in.ID)
		}
	case InteractDragStart:
		if h.DragStart != nil {
			h.DragStart(in.ID)
		}
	case InteractDrag:
		if h.Drag != nil {
			h.Drag(in.ID, in.X, in.Y)
		}
	case InteractDragEnd:
		if h.DragEnd != nil {
			h.DragEnd(in.ID)
		}
	case InteractInput:
		if h.Input != nil {
			h.Input(in.Field, in.Text)
		}
	case InteractBrush:
		if h.Brush != nil {
			h.Brush(in.Range)
		}
	}
}
