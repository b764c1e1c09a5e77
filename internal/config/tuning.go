package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/layout"
	"github.com/alfredjeanlab/unicorns/internal/model"
)

// Duration is a time.Duration decoded from strings such as "150ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Tuning holds the dashboard parameters that may be overridden from a TOML
// file.
type Tuning struct {
	Derive DeriveTuning `toml:"derive"`
	Layout LayoutTuning `toml:"layout"`
}

// DeriveTuning sizes the top-K style derivations.
type DeriveTuning struct {
	TopK         int `toml:"top_k"`
	ScatterLimit int `toml:"scatter_limit"`
}

// LayoutTuning holds the network forces and reheat schedule.
type LayoutTuning struct {
	CompanyCharge  float64      `toml:"company_charge"`
	InvestorCharge float64      `toml:"investor_charge"`
	LinkStrength   float64      `toml:"link_strength"`
	LinkDistance   float64      `toml:"link_distance"`
	Radius         float64      `toml:"radius"`
	RadialStrength float64      `toml:"radial_strength"`
	FrameInterval  Duration     `toml:"frame_interval"`
	Reheat         ReheatTuning `toml:"reheat"`
}

// ReheatTuning is the alpha-target schedule per reheat reason.
type ReheatTuning struct {
	ScaleTarget   float64  `toml:"scale_target"`
	ScaleCoolDown Duration `toml:"scale_cool_down"`
	FilterTarget  float64  `toml:"filter_target"`
	FilterPeak    float64  `toml:"filter_peak"`
	FilterPeakIn  Duration `toml:"filter_peak_in"`
	FilterCoolIn  Duration `toml:"filter_cool_in"`
	DragTarget    float64  `toml:"drag_target"`
}

// DefaultTuning returns the stock parameters.
func DefaultTuning() *Tuning {
	l := layout.DefaultConfig()
	return &Tuning{
		Derive: DeriveTuning{TopK: derive.DefaultTopK, ScatterLimit: derive.DefaultScatterLimit},
		Layout: LayoutTuning{
			CompanyCharge:  l.CompanyCharge,
			InvestorCharge: l.InvestorCharge,
			LinkStrength:   l.LinkStrength,
			LinkDistance:   l.LinkDistance,
			Radius:         l.Radius,
			RadialStrength: l.RadialStrength,
			FrameInterval:  Duration{l.FrameInterval},
			Reheat: ReheatTuning{
				ScaleTarget:   l.ScaleTarget,
				ScaleCoolDown: Duration{l.ScaleCoolDown},
				FilterTarget:  l.FilterTarget,
				FilterPeak:    l.FilterPeak,
				FilterPeakIn:  Duration{l.FilterPeakIn},
				FilterCoolIn:  Duration{l.FilterCoolIn},
				DragTarget:    l.DragTarget,
			},
		},
	}
}

// LoadTuning reads path over the defaults. An empty path or a missing file
// yields the defaults.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	md, err := toml.DecodeFile(path, t)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading tuning file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("tuning file %s: unknown keys %v", path, undecoded)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

// Validate checks every parameter is in range.
func (t *Tuning) Validate() error {
	var verr model.ValidationError
	if t.Derive.TopK <= 0 {
		verr.Add("derive.top_k", "must be positive, got %d", t.Derive.TopK)
	}
	if t.Derive.ScatterLimit <= 0 {
		verr.Add("derive.scatter_limit", "must be positive, got %d", t.Derive.ScatterLimit)
	}

	l := t.Layout
	if l.CompanyCharge > 0 || l.InvestorCharge > 0 {
		verr.Add("layout.charge", "charges must be repulsive (<= 0)")
	}
	if l.LinkDistance <= 0 {
		verr.Add("layout.link_distance", "must be positive, got %g", l.LinkDistance)
	}
	if l.Radius < 0 {
		verr.Add("layout.radius", "must not be negative, got %g", l.Radius)
	}
	if l.FrameInterval.Duration <= 0 {
		verr.Add("layout.frame_interval", "must be positive, got %s", l.FrameInterval.Duration)
	}

	r := l.Reheat
	for field, v := range map[string]float64{
		"layout.reheat.scale_target":  r.ScaleTarget,
		"layout.reheat.filter_target": r.FilterTarget,
		"layout.reheat.filter_peak":   r.FilterPeak,
		"layout.reheat.drag_target":   r.DragTarget,
	} {
		if v < 0 || v > 1 {
			verr.Add(field, "must be within [0, 1], got %g", v)
		}
	}
	for field, d := range map[string]time.Duration{
		"layout.reheat.scale_cool_down": r.ScaleCoolDown.Duration,
		"layout.reheat.filter_peak_in":  r.FilterPeakIn.Duration,
		"layout.reheat.filter_cool_in":  r.FilterCoolIn.Duration,
	} {
		if d < 0 {
			verr.Add(field, "must not be negative, got %s", d)
		}
	}
	return verr.Err()
}

// DeriveOptions returns the derivation sizes.
func (t *Tuning) DeriveOptions() derive.Options {
	return derive.Options{TopK: t.Derive.TopK, ScatterLimit: t.Derive.ScatterLimit}
}

// LayoutConfig returns the network layout parameters.
func (t *Tuning) LayoutConfig() layout.Config {
	l := t.Layout
	return layout.Config{
		CompanyCharge:  l.CompanyCharge,
		InvestorCharge: l.InvestorCharge,
		LinkStrength:   l.LinkStrength,
		LinkDistance:   l.LinkDistance,
		Radius:         l.Radius,
		RadialStrength: l.RadialStrength,
		FrameInterval:  l.FrameInterval.Duration,
		ScaleTarget:    l.Reheat.ScaleTarget,
		ScaleCoolDown:  l.Reheat.ScaleCoolDown.Duration,
		FilterTarget:   l.Reheat.FilterTarget,
		FilterPeak:     l.Reheat.FilterPeak,
		FilterPeakIn:   l.Reheat.FilterPeakIn.Duration,
		FilterCoolIn:   l.Reheat.FilterCoolIn.Duration,
		DragTarget:     l.Reheat.DragTarget,
	}
}
