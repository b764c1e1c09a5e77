package layout

import (
	"encoding/json"
	"math"
)

// Force accumulates velocity on the nodes it was initialised with.
type Force interface {
	// Initialize hands the force its node subset. jiggle returns a tiny
	// random offset used to separate coincident nodes.
	Initialize(nodes []*Node, jiggle func() float64)
	// Apply adds the force's contribution at the given alpha.
	Apply(alpha float64)
}

// ForceSpec names a force and restricts it to the nodes Subset accepts.
// A nil Subset applies the force to every node.
type ForceSpec struct {
	Name   string
	Force  Force
	Subset func(*Node) bool
}

func (s ForceSpec) filter(nodes []*Node) []*Node {
	if s.Subset == nil {
		return nodes
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if s.Subset(n) {
			out = append(out, n)
		}
	}
	return out
}

// ManyBody is an exact pairwise charge force. Negative strengths repel.
type ManyBody struct {
	Strength     func(*Node) float64
	DistanceMin2 float64

	nodes     []*Node
	strengths []float64
	jiggle    func() float64
}

// NewManyBody returns a charge force with per-node strength.
func NewManyBody(strength func(*Node) float64) *ManyBody {
	return &ManyBody{Strength: strength, DistanceMin2: 1}
}

func (f *ManyBody) Initialize(nodes []*Node, jiggle func() float64) {
	f.nodes, f.jiggle = nodes, jiggle
	f.strengths = make([]float64, len(nodes))
	for i, n := range nodes {
		f.strengths[i] = f.Strength(n)
	}
}

func (f *ManyBody) Apply(alpha float64) {
	for i, n := range f.nodes {
		for j, o := range f.nodes {
			if i == j {
				continue
			}
			x, y := o.X-n.X, o.Y-n.Y
			l := x*x + y*y
			if x == 0 {
				x = f.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle()
				l += y * y
			}
			if l < f.DistanceMin2 {
				l = math.Sqrt(f.DistanceMin2 * l)
			}
			w := f.strengths[j] * alpha / l
			n.VX += x * w
			n.VY += y * w
		}
	}
}

// LinkForce pulls linked nodes toward a fixed distance. Each link's
// displacement is split by degree so that high-degree nodes move less.
type LinkForce struct {
	Strength float64
	Distance float64

	links  []*Link
	bias   []float64
	jiggle func() float64
}

// NewLinkForce returns a link force with constant strength and distance.
func NewLinkForce(strength, distance float64) *LinkForce {
	return &LinkForce{Strength: strength, Distance: distance}
}

// SetLinks replaces the link set. The simulation must re-initialise forces
// afterwards for degree bias to be recomputed.
func (f *LinkForce) SetLinks(links []*Link) {
	f.links = links
}

// Links returns the current link set.
func (f *LinkForce) Links() []*Link { return f.links }

func (f *LinkForce) Initialize(_ []*Node, jiggle func() float64) {
	f.jiggle = jiggle
	count := make(map[*Node]int)
	for _, l := range f.links {
		count[l.Source]++
		count[l.Target]++
	}
	f.bias = make([]float64, len(f.links))
	for i, l := range f.links {
		s, t := float64(count[l.Source]), float64(count[l.Target])
		f.bias[i] = s / (s + t)
	}
}

func (f *LinkForce) Apply(alpha float64) {
	for i, l := range f.links {
		src, tgt := l.Source, l.Target
		x := tgt.X + tgt.VX - src.X - src.VX
		if x == 0 {
			x = f.jiggle()
		}
		y := tgt.Y + tgt.VY - src.Y - src.VY
		if y == 0 {
			y = f.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		d = (d - f.Distance) / d * alpha * f.Strength
		x, y = x*d, y*d

		b := f.bias[i]
		tgt.VX -= x * b
		tgt.VY -= y * b
		b = 1 - b
		src.VX += x * b
		src.VY += y * b
	}
}

// Radial pushes nodes toward a circle around (X, Y).
type Radial struct {
	Radius   float64
	Strength float64
	X, Y     float64

	nodes []*Node
}

// NewRadial returns a radial force centred on the origin.
func NewRadial(radius, strength float64) *Radial {
	return &Radial{Radius: radius, Strength: strength}
}

func (f *Radial) Initialize(nodes []*Node, _ func() float64) {
	f.nodes = nodes
}

func (f *Radial) Apply(alpha float64) {
	for _, n := range f.nodes {
		dx := n.X - f.X
		if dx == 0 {
			dx = 1e-6
		}
		dy := n.Y - f.Y
		if dy == 0 {
			dy = 1e-6
		}
		r := math.Sqrt(dx*dx + dy*dy)
		k := (f.Radius - r) * f.Strength * alpha / r
		n.VX += dx * k
		n.VY += dy * k
	}
}

func marshalLink(l Link) ([]byte, error) {
	return json.Marshal(struct {
		Source string   `json:"source"`
		Target string   `json:"target"`
		From   Position `json:"from"`
		To     Position `json:"to"`
	}{l.Source.ID, l.Target.ID, l.Source.Position(), l.Target.Position()})
}
