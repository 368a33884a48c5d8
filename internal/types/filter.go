package types

import (
	"math"
	"time"
)

// DateRange is inclusive on both ends. A zero Start or End leaves that side open.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Inverted reports a range whose start lies after its end
func (d DateRange) Inverted() bool {
	return !d.Start.IsZero() && !d.End.IsZero() && d.Start.After(d.End)
}

// Contains reports whether t lies inside the range
func (d DateRange) Contains(t time.Time) bool {
	if !d.Start.IsZero() && t.Before(d.Start) {
		return false
	}
	if !d.End.IsZero() && t.After(d.End) {
		return false
	}
	return true
}

// Range is an inclusive numeric interval; use infinities for open sides
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FullRange accepts every number
func FullRange() Range {
	return Range{Min: math.Inf(-1), Max: math.Inf(1)}
}

// Unbounded reports whether the range places no limit on either side
func (r Range) Unbounded() bool {
	return math.IsInf(r.Min, -1) && math.IsInf(r.Max, 1)
}

// Contains reports whether v lies inside the range
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FilterCriteria is the user's current filter selection. Nil pointers and
// empty sets impose no constraint.
type FilterCriteria struct {
	Dates        *DateRange `json:"dates,omitempty"`
	Categories   []string   `json:"categories,omitempty"`
	Tiers        []string   `json:"tiers,omitempty"`
	Outcomes     []string   `json:"outcomes,omitempty"`
	Satisfaction *Range     `json:"satisfaction,omitempty"`
	Revenue      *Range     `json:"revenue,omitempty"`
	Search       string     `json:"search,omitempty"`
}
