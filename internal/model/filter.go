package model

import (
	"encoding/json"
	"fmt"
)

// YearRange is an inclusive [start, end] range of calendar years.
type YearRange [2]int

// Start returns the first year of the range.
func (r YearRange) Start() int { return r[0] }

// End returns the last year of the range.
func (r YearRange) End() int { return r[1] }

// Contains reports whether year lies within the range, inclusive.
func (r YearRange) Contains(year int) bool {
	return year >= r[0] && year <= r[1]
}

// Normalize clamps both ends into extent and swaps them if reversed.
// The result always satisfies extent[0] <= r[0] <= r[1] <= extent[1].
func (r YearRange) Normalize(extent YearRange) YearRange {
	out := YearRange{clampYear(r[0], extent), clampYear(r[1], extent)}
	if out[0] > out[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

func (r YearRange) String() string {
	return fmt.Sprintf("[%d,%d]", r[0], r[1])
}

func clampYear(y int, extent YearRange) int {
	if y < extent[0] {
		return extent[0]
	}
	if y > extent[1] {
		return extent[1]
	}
	return y
}

// IndustrySet is a set of industry labels.
type IndustrySet map[Industry]struct{}

// AllIndustries returns a set containing every fixed label.
func AllIndustries() IndustrySet {
	s := make(IndustrySet, len(industryOrder))
	for _, ind := range industryOrder {
		s[ind] = struct{}{}
	}
	return s
}

// NewIndustrySet builds a set from the given labels.
func NewIndustrySet(labels ...Industry) IndustrySet {
	s := make(IndustrySet, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Has reports whether the set contains ind.
func (s IndustrySet) Has(ind Industry) bool {
	_, ok := s[ind]
	return ok
}

// Ordered returns the members in canonical industry order.
func (s IndustrySet) Ordered() []Industry {
	out := make([]Industry, 0, len(s))
	for _, ind := range industryOrder {
		if s.Has(ind) {
			out = append(out, ind)
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s IndustrySet) Clone() IndustrySet {
	out := make(IndustrySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Equal reports whether both sets contain the same labels.
func (s IndustrySet) Equal(o IndustrySet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as an ordered list.
func (s IndustrySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ordered())
}

// UnmarshalJSON decodes a list of labels, remapping unknown ones to Other.
func (s *IndustrySet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	out := make(IndustrySet, len(labels))
	for _, l := range labels {
		out[CanonicalIndustry(l)] = struct{}{}
	}
	*s = out
	return nil
}

// FilterState is the shared filter and selection state of a dashboard
// session. A single instance is owned by the coordinator and mutated only by
// bus handlers; views read snapshots.
type FilterState struct {
	Industries IndustrySet `json:"industries"`
	Years      YearRange   `json:"years"`
	Selected   string      `json:"selected,omitempty"`
}

// NewFilterState returns the initial state: every industry selected, the
// full year extent, nothing selected.
func NewFilterState(extent YearRange) *FilterState {
	return &FilterState{
		Industries: AllIndustries(),
		Years:      extent,
	}
}

// Snapshot returns a deep copy safe to hand to readers.
func (f *FilterState) Snapshot() FilterState {
	return FilterState{
		Industries: f.Industries.Clone(),
		Years:      f.Years,
		Selected:   f.Selected,
	}
}

// ToggleIndustry flips membership of ind. Labels outside the fixed set are
// rejected and reported as false.
func (f *FilterState) ToggleIndustry(ind Industry) bool {
	if !ind.IsValid() {
		return false
	}
	if f.Industries.Has(ind) {
		delete(f.Industries, ind)
	} else {
		f.Industries[ind] = struct{}{}
	}
	return true
}

// SetYears replaces the year range, normalised against extent. A zero end
// is treated as absent and takes the matching extent bound.
func (f *FilterState) SetYears(r, extent YearRange) {
	for i := range r {
		if r[i] == 0 {
			r[i] = extent[i]
		}
	}
	f.Years = r.Normalize(extent)
}

// Select sets the selected item id.
func (f *FilterState) Select(id string) {
	f.Selected = id
}

// ClearSelection unsets the selected item.
func (f *FilterState) ClearSelection() {
	f.Selected = ""
}

// ToggleSelection clears the selection if it already equals id, otherwise
// selects id. It reports whether id is selected afterwards.
func (f *FilterState) ToggleSelection(id string) bool {
	if f.Selected == id {
		f.Selected = ""
		return false
	}
	f.Selected = id
	return true
}

// HasSelection reports whether an item is selected.
func (f FilterState) HasSelection() bool {
	return f.Selected != ""
}

// Matches reports whether c passes the industry and year filters.
func (f FilterState) Matches(c *Company) bool {
	return f.Industries.Has(c.Industry) && f.Years.Contains(c.JoinYear())
}
