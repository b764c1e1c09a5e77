package view

import (
	"math"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/model"
)

const (
	sliderWidth  = 300 - 15 - 15
	sliderHeight = 100 - 2 - 15
)

// Slider input fields.
const (
	FieldStart = "start"
	FieldEnd   = "end"
	FieldApply = "apply"
)

// SliderView is the scented year-range slider: a histogram of join years
// over all companies with a draft range edited through text fields or a
// brush and committed as an updateYearFilter event.
type SliderView struct {
	base
	extent    model.YearRange
	histogram []derive.YearCount
	xs        *continuous
	ys        *continuous
	draft     model.YearRange
}

// NewSlider returns a slider over the dataset's year extent.
func NewSlider(d Deps) *SliderView {
	v := &SliderView{base: newBase(Slider, d)}
	v.extent = v.entities.YearExtent()
	v.histogram = derive.YearHistogram(v.entities.Companies())
	v.xs = newLinearScale(float64(v.extent.Start()), float64(v.extent.End()), 0, sliderWidth)
	hi := 0
	for _, yc := range v.histogram {
		hi = max(hi, yc.Count)
	}
	v.ys = newLinearScale(0, float64(hi), sliderHeight, 0)
	v.draft = v.state.Years

	v.handlers = Handlers{
		Input: func(field, text string) {
			switch field {
			case FieldStart:
				v.SetStart(text)
			case FieldEnd:
				v.SetEnd(text)
			case FieldApply:
				v.Commit()
			}
		},
		Brush: func(px *[2]float64) {
			v.Brush(px)
			v.Commit()
		},
	}
	return v
}

// Draft returns the uncommitted year range.
func (v *SliderView) Draft() model.YearRange { return v.draft }

// Extent returns the full year range.
func (v *SliderView) Extent() model.YearRange { return v.extent }

// SetStart parses text as the draft start year. Empty or non-numeric text
// resets the start to the extent's lower bound.
func (v *SliderView) SetStart(text string) model.YearRange {
	v.draft[0] = v.parseYear(text, 0)
	v.draft = v.draft.Normalize(v.extent)
	v.refresh()
	return v.draft
}

// SetEnd parses text as the draft end year. Empty or non-numeric text
// resets the end to the extent's upper bound.
func (v *SliderView) SetEnd(text string) model.YearRange {
	v.draft[1] = v.parseYear(text, 1)
	v.draft = v.draft.Normalize(v.extent)
	v.refresh()
	return v.draft
}

// parseYear reads the leading integer of text, so "2015.7" and "2015ad"
// are both 2015. Text without one falls back to the extent bound at idx.
func (v *SliderView) parseYear(text string, idx int) int {
	text = strings.TrimSpace(text)
	end := 0
	if end < len(text) && (text[end] == '+' || text[end] == '-') {
		end++
	}
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	y, err := strconv.Atoi(text[:end])
	if err != nil {
		return v.extent[idx]
	}
	return y
}

// Brush sets the draft from a pixel selection. A nil selection selects
// the full extent.
func (v *SliderView) Brush(px *[2]float64) model.YearRange {
	if px == nil {
		v.draft = v.extent
	} else {
		v.draft = model.YearRange{
			int(math.Round(v.xs.Invert(px[0]))),
			int(math.Round(v.xs.Invert(px[1]))),
		}.Normalize(v.extent)
	}
	v.refresh()
	return v.draft
}

// Commit emits the draft as the new year filter.
func (v *SliderView) Commit() {
	v.bus.Emit(events.TopicUpdateYearFilter, events.UpdateYearFilter{Range: v.draft})
}

func (v *SliderView) Update(kind UpdateKind) {
	if kind == UpdateFilter {
		v.draft = v.state.Years
	}
	v.render(kind, v.encode())
}

// refresh re-renders the controls after a draft edit.
func (v *SliderView) refresh() {
	if v.frame == nil {
		return
	}
	v.render(UpdateFilter, v.encode())
}

func (v *SliderView) encode() *Frame {
	f := &Frame{Width: sliderWidth, Height: sliderHeight}
	r := v.draft
	f.Range = &r

	area := Element{ID: "histogram", Kind: KindArea, Fill: "steelblue", Points: make([]AreaPoint, len(v.histogram))}
	for i, yc := range v.histogram {
		area.Points[i] = AreaPoint{
			X:  v.xs.Map(float64(yc.Year)),
			Y0: v.ys.Map(0),
			Y1: v.ys.Map(float64(yc.Count)),
		}
	}
	f.Elements = append(f.Elements, area)
	f.Empty = len(v.histogram) == 0

	if r != v.extent {
		b := [2]float64{v.xs.Map(float64(r.Start())), v.xs.Map(float64(r.End()))}
		f.Brush = &b
		f.Elements = append(f.Elements, Element{
			ID:     "brush",
			Kind:   KindBrush,
			X:      b[0],
			Width:  b[1] - b[0],
			Height: sliderHeight,
		})
	}

	x := Axis{Name: "x"}
	for _, t := range v.xs.Ticks(5) {
		x.Ticks = append(x.Ticks, Tick{Value: t, Pos: v.xs.Map(t), Label: strconv.Itoa(int(t))})
	}
	f.Axes = []Axis{x}
	return f
}
