package view

import (
	"math"

	"github.com/alfredjeanlab/unicorns/internal/derive"
)

const (
	stackedWidth  = 600 - 35 - 20
	stackedHeight = 400 - 25 - 20
)

// StackedAreaView stacks the cumulative company count per industry over
// time.
type StackedAreaView struct {
	base
	series []derive.SeriesPoint
}

// NewStackedArea returns a stacked-area chart.
func NewStackedArea(d Deps) *StackedAreaView {
	return &StackedAreaView{base: newBase(StackedArea, d)}
}

// Series returns the current cumulative series.
func (v *StackedAreaView) Series() []derive.SeriesPoint { return v.series }

func (v *StackedAreaView) Update(kind UpdateKind) {
	if kind == UpdateFilter || v.series == nil {
		v.series = derive.CumulativeSeries(v.filtered())
	}
	v.render(kind, v.encode())
}

func (v *StackedAreaView) encode() *Frame {
	f := &Frame{Width: stackedWidth, Height: stackedHeight}
	keys := v.state.Industries.Ordered()
	if len(v.series) == 0 || len(keys) == 0 {
		f.Empty = true
		return f
	}

	// stacks[k][i] holds the [y0, y1] band of key k at point i.
	stacks := make([][][2]float64, len(keys))
	for k := range keys {
		stacks[k] = make([][2]float64, len(v.series))
	}
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for i, p := range v.series {
		base := 0.0
		for k, key := range keys {
			top := base + float64(p.Count(key))
			stacks[k][i] = [2]float64{base, top}
			yMin, yMax = math.Min(yMin, base), math.Max(yMax, top)
			base = top
		}
	}

	t0 := float64(v.series[0].Date.Unix())
	t1 := float64(v.series[len(v.series)-1].Date.Unix())
	xs := newLinearScale(t0, t1, 0, stackedWidth)
	ys := newLinearScale(yMin, yMax, stackedHeight, 0)

	for k, key := range keys {
		e := Element{
			ID:     string(key),
			Kind:   KindArea,
			Fill:   key.Colour(),
			Label:  string(key),
			Points: make([]AreaPoint, len(v.series)),
		}
		for i, p := range v.series {
			e.Points[i] = AreaPoint{
				X:  xs.Map(float64(p.Date.Unix())),
				Y0: ys.Map(stacks[k][i][0]),
				Y1: ys.Map(stacks[k][i][1]),
			}
		}
		f.Elements = append(f.Elements, e)
	}

	x := Axis{Name: "x"}
	for _, p := range []derive.SeriesPoint{v.series[0], v.series[len(v.series)-1]} {
		x.Ticks = append(x.Ticks, Tick{
			Value: float64(p.Date.Unix()),
			Pos:   xs.Map(float64(p.Date.Unix())),
			Label: p.Date.Format("2006-01-02"),
		})
	}
	f.Axes = []Axis{x, ys.axis("y", "# Companies", 10)}
	return f
}
