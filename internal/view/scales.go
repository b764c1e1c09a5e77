package view

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/aclements/go-gg/palette"
	"github.com/aclements/go-moremath/scale"
)

// ScaleType selects how a quantitative encoding maps its domain.
type ScaleType string

const (
	ScaleLog    ScaleType = "log"
	ScaleLinear ScaleType = "linear"
)

// ParseScaleType validates a scale name.
func ParseScaleType(s string) (ScaleType, error) {
	switch ScaleType(s) {
	case ScaleLog, ScaleLinear:
		return ScaleType(s), nil
	}
	return "", fmt.Errorf("unknown scale type %q (want log or linear)", s)
}

// transform returns the domain transform for t.
func (t ScaleType) transform() func(float64) float64 {
	if t == ScaleLinear {
		return func(x float64) float64 { return x }
	}
	return func(x float64) float64 {
		if x <= 0 {
			x = math.SmallestNonzeroFloat64
		}
		return math.Log10(x)
	}
}

// continuous maps a domain onto a pixel range through a normalised
// linear scale.
type continuous struct {
	s      scale.Linear
	r0, r1 float64
	tf     func(float64) float64
	inv    func(float64) float64
	log    bool
}

func newLinearScale(d0, d1, r0, r1 float64) *continuous {
	return &continuous{
		s:   scale.Linear{Min: d0, Max: d1},
		r0:  r0,
		r1:  r1,
		tf:  func(x float64) float64 { return x },
		inv: func(x float64) float64 { return x },
	}
}

// newLogScale maps log10 of the domain linearly, widened to whole decades.
func newLogScale(d0, d1, r0, r1 float64) *continuous {
	tf := ScaleLog.transform()
	lo, hi := math.Floor(tf(d0)), math.Ceil(tf(d1))
	if lo == hi {
		hi = lo + 1
	}
	return &continuous{
		s:   scale.Linear{Min: lo, Max: hi},
		r0:  r0,
		r1:  r1,
		tf:  tf,
		inv: func(x float64) float64 { return math.Pow(10, x) },
		log: true,
	}
}

// newSqrtScale maps the square root of the domain linearly.
func newSqrtScale(d0, d1, r0, r1 float64) *continuous {
	return &continuous{
		s:   scale.Linear{Min: math.Sqrt(d0), Max: math.Sqrt(d1)},
		r0:  r0,
		r1:  r1,
		tf:  math.Sqrt,
		inv: func(x float64) float64 { return x * x },
	}
}

// nice widens a linear domain to round tick values.
func (c *continuous) nice(maxTicks int) *continuous {
	if !c.log && c.s.Min != c.s.Max {
		c.s.Nice(scale.TickOptions{Max: maxTicks})
	}
	return c
}

// Map returns the range position of x. A degenerate domain maps to the
// middle of the range.
func (c *continuous) Map(x float64) float64 {
	if c.s.Min == c.s.Max {
		return (c.r0 + c.r1) / 2
	}
	return c.r0 + c.s.Map(c.tf(x))*(c.r1-c.r0)
}

// Invert returns the domain value at range position px.
func (c *continuous) Invert(px float64) float64 {
	if c.r0 == c.r1 {
		return c.inv(c.s.Min)
	}
	return c.inv(c.s.Unmap((px - c.r0) / (c.r1 - c.r0)))
}

// Domain returns the (possibly widened) domain bounds.
func (c *continuous) Domain() (float64, float64) {
	return c.inv(c.s.Min), c.inv(c.s.Max)
}

// Ticks returns at most max major ticks in domain units.
func (c *continuous) Ticks(max int) []float64 {
	if c.log {
		var out []float64
		for e := c.s.Min; e <= c.s.Max; e++ {
			out = append(out, math.Pow(10, e))
		}
		return out
	}
	if c.s.Min == c.s.Max {
		return []float64{c.s.Min}
	}
	major, _ := c.s.Ticks(scale.TickOptions{Max: max})
	return major
}

// axis builds an Axis from the scale's ticks.
func (c *continuous) axis(name, title string, max int) Axis {
	a := Axis{Name: name, Title: title}
	for _, v := range c.Ticks(max) {
		a.Ticks = append(a.Ticks, Tick{Value: v, Pos: c.Map(v), Label: formatTick(v)})
	}
	return a
}

// band lays n categories out along [r0, r1] with inner padding.
type band struct {
	index     map[string]int
	r0        float64
	step      float64
	bandwidth float64
}

func newBand(domain []string, r0, r1, paddingInner float64) band {
	n := float64(len(domain))
	b := band{index: make(map[string]int, len(domain)), r0: r0}
	for i, d := range domain {
		b.index[d] = i
	}
	b.step = (r1 - r0) / math.Max(1, n-paddingInner)
	b.bandwidth = b.step * (1 - paddingInner)
	return b
}

// Pos returns the start of the band for key.
func (b band) Pos(key string) float64 {
	return b.r0 + float64(b.index[key])*b.step
}

// Sequential colour ramps from ColorBrewer.
var (
	greens = gradient("#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b")
	reds   = gradient("#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d")
)

func gradient(hexes ...string) palette.RGBGradient {
	g := palette.RGBGradient{Colors: make([]color.RGBA, len(hexes))}
	for i, h := range hexes {
		g.Colors[i] = parseHex(h)
	}
	return g
}

func parseHex(h string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(h, "#"), 16, 32)
	if err != nil {
		panic(fmt.Sprintf("bad colour %q", h))
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// hexColour formats c as #rrggbb.
func hexColour(c color.Color) string {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// ramp maps t in [0, 1] through p.
func ramp(p palette.Continuous, t float64) string {
	return hexColour(p.Map(math.Max(0, math.Min(1, t))))
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatFixed formats v with at most digits decimals, trimming trailing
// zeros.
func formatFixed(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'f', digits, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

var siPrefixes = map[int]string{
	-24: "y", -21: "z", -18: "a", -15: "f", -12: "p", -9: "n", -6: "µ", -3: "m",
	0: "", 3: "k", 6: "M", 9: "G", 12: "T", 15: "P", 18: "E", 21: "Z", 24: "Y",
}

// formatSI formats v with six significant digits and an SI prefix,
// trimming trailing zeros.
func formatSI(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return formatTick(v)
	}
	exp := int(math.Floor(math.Log10(math.Abs(v))/3)) * 3
	exp = max(-24, min(24, exp))
	m := v / math.Pow(10, float64(exp))
	m, _ = strconv.ParseFloat(strconv.FormatFloat(m, 'g', 6, 64), 64)
	if math.Abs(m) >= 1000 && exp < 24 {
		m /= 1000
		exp += 3
	}
	return strconv.FormatFloat(m, 'f', -1, 64) + siPrefixes[exp]
}
