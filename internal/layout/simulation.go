package layout

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/loop"
)

const (
	initialRadius = 10.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Regime is the stepping state of a simulation.
type Regime int

const (
	// Cold: not stepping.
	Cold Regime = iota
	// Warm: stepping toward a positive alpha target.
	Warm
	// Cooling: stepping with a zero target, stopping once alpha falls
	// below alphaMin.
	Cooling
)

func (r Regime) String() string {
	switch r {
	case Cold:
		return "cold"
	case Warm:
		return "warm"
	case Cooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// MarshalText encodes the regime as its name.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Simulation integrates node positions under a set of forces. All methods
// must be called from the scheduler's execution context.
type Simulation struct {
	sched    loop.Scheduler
	interval time.Duration
	timer    loop.Timer

	nodes  []*Node
	forces []ForceSpec

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64

	rnd    *rand.Rand
	onTick []func()
	onEnd  []func()
}

// NewSimulation returns a cold simulation that steps every interval on
// sched once restarted.
func NewSimulation(sched loop.Scheduler, interval time.Duration) *Simulation {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	alphaMin := 0.001
	return &Simulation{
		sched:         sched,
		interval:      interval,
		alpha:         1,
		alphaMin:      alphaMin,
		alphaDecay:    1 - math.Pow(alphaMin, 1.0/300),
		velocityDecay: 1 - 0.4,
		rnd:           rand.New(rand.NewPCG(1, 2)),
	}
}

// AddForce registers a force, initialising it against the current nodes.
func (s *Simulation) AddForce(spec ForceSpec) {
	s.forces = append(s.forces, spec)
	spec.Force.Initialize(spec.filter(s.nodes), s.jiggle)
}

// Force returns the force registered under name, or nil.
func (s *Simulation) Force(name string) Force {
	for _, f := range s.forces {
		if f.Name == name {
			return f.Force
		}
	}
	return nil
}

// SetNodes replaces the node set. Unplaced nodes get a phyllotaxis
// position; placed nodes keep theirs. Forces are re-initialised.
func (s *Simulation) SetNodes(nodes []*Node) {
	s.nodes = nodes
	for i, n := range nodes {
		n.index = i
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if !n.placed {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			n.X, n.Y = r*math.Cos(a), r*math.Sin(a)
			n.placed = true
		}
	}
	s.initializeForces()
}

func (s *Simulation) initializeForces() {
	for _, f := range s.forces {
		f.Force.Initialize(f.filter(s.nodes), s.jiggle)
	}
}

// Nodes returns the current node set.
func (s *Simulation) Nodes() []*Node { return s.nodes }

func (s *Simulation) Alpha() float64           { return s.alpha }
func (s *Simulation) SetAlpha(a float64)       { s.alpha = a }
func (s *Simulation) AlphaMin() float64        { return s.alphaMin }
func (s *Simulation) AlphaTarget() float64     { return s.alphaTarget }
func (s *Simulation) SetAlphaTarget(t float64) { s.alphaTarget = t }

// Running reports whether a step is scheduled.
func (s *Simulation) Running() bool { return s.timer != nil }

// Regime reports the stepping state.
func (s *Simulation) Regime() Regime {
	switch {
	case s.timer == nil:
		return Cold
	case s.alphaTarget > 0:
		return Warm
	default:
		return Cooling
	}
}

// OnTick registers f to run after every step.
func (s *Simulation) OnTick(f func()) {
	s.onTick = append(s.onTick, f)
}

// OnEnd registers f to run when the simulation cools down and stops.
func (s *Simulation) OnEnd(f func()) {
	s.onEnd = append(s.onEnd, f)
}

// Restart arms the stepper if it is not already running. Alpha is left
// unchanged.
func (s *Simulation) Restart() {
	if s.timer != nil {
		return
	}
	s.timer = s.sched.AfterFunc(s.interval, s.frame)
}

// Stop halts stepping.
func (s *Simulation) Stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Simulation) frame() {
	s.timer = nil
	if s.Step() {
		s.timer = s.sched.AfterFunc(s.interval, s.frame)
		return
	}
	for _, f := range s.onEnd {
		f()
	}
}

// Step advances the simulation by one tick and runs tick callbacks. It
// reports whether the simulation is still hot.
func (s *Simulation) Step() bool {
	s.Tick()
	for _, f := range s.onTick {
		f()
	}
	return s.alpha >= s.alphaMin
}

// Tick integrates once without running callbacks.
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	for _, f := range s.forces {
		f.Force.Apply(s.alpha)
	}
	for _, n := range s.nodes {
		if n.FX == nil {
			n.VX *= s.velocityDecay
			n.X += n.VX
		} else {
			n.X = *n.FX
			n.VX = 0
		}
		if n.FY == nil {
			n.VY *= s.velocityDecay
			n.Y += n.VY
		} else {
			n.Y = *n.FY
			n.VY = 0
		}
	}
}

func (s *Simulation) jiggle() float64 {
	return (s.rnd.Float64() - 0.5) * 1e-6
}
