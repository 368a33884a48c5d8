package filter

import (
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Apply returns the records matching criteria, in their original order.
// The input slice is not modified.
func Apply(records []types.InteractionRecord, c types.FilterCriteria) []types.InteractionRecord {
	match := Build(c)
	view := make([]types.InteractionRecord, 0, len(records))
	for _, r := range records {
		if match(r) {
			view = append(view, r)
		}
	}
	return view
}

// Snapshotter is anything that can hand out a consistent copy of its records
type Snapshotter interface {
	All() []types.InteractionRecord
}

// View takes one snapshot from src and filters it
func View(src Snapshotter, c types.FilterCriteria) []types.InteractionRecord {
	return Apply(src.All(), c)
}

// DistinctValues lists the values of field in first-occurrence order,
// skipping records where it is absent. This is how the open category, tier
// and outcome sets are discovered.
func DistinctValues(records []types.InteractionRecord, field types.Field) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, r := range records {
		v := r.Get(field)
		if !v.Defined() {
			continue
		}
		s := v.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		values = append(values, s)
	}
	return values
}

// Options holds the selectable values for each categorical filter
type Options struct {
	Categories []string `json:"categories"`
	Tiers      []string `json:"tiers"`
	Outcomes   []string `json:"outcomes"`
	Customers  []string `json:"customers"`
	Agents     []string `json:"agents"`
}

// OptionsFor derives filter options from a record set
func OptionsFor(records []types.InteractionRecord) Options {
	return Options{
		Categories: DistinctValues(records, types.FieldCategory),
		Tiers:      DistinctValues(records, types.FieldTier),
		Outcomes:   DistinctValues(records, types.FieldOutcome),
		Customers:  DistinctValues(records, types.FieldCustomerName),
		Agents:     DistinctValues(records, types.FieldAgentName),
	}
}
