package filter

import (
	"strings"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Predicate reports whether a record belongs to the filtered view
type Predicate func(types.InteractionRecord) bool

// Build compiles criteria into a single predicate.
//
// Empty value sets and unbounded ranges impose no constraint. Bounded numeric
// ranges are inclusive and never match a record that lacks the field. The
// search string is matched case-insensitively against any of the search
// fields. An inverted date range matches nothing.
func Build(c types.FilterCriteria) Predicate {
	var checks []Predicate

	if c.Dates != nil {
		if c.Dates.Inverted() {
			return func(types.InteractionRecord) bool { return false }
		}
		dates := *c.Dates
		checks = append(checks, func(r types.InteractionRecord) bool {
			return dates.Contains(r.OccurredAt)
		})
	}

	if p := inSet(types.FieldCategory, c.Categories); p != nil {
		checks = append(checks, p)
	}
	if p := inSet(types.FieldTier, c.Tiers); p != nil {
		checks = append(checks, p)
	}
	if p := inSet(types.FieldOutcome, c.Outcomes); p != nil {
		checks = append(checks, p)
	}

	if p := inRange(types.FieldSatisfactionScore, c.Satisfaction); p != nil {
		checks = append(checks, p)
	}
	if p := inRange(types.FieldRevenueImpact, c.Revenue); p != nil {
		checks = append(checks, p)
	}

	if p := search(c.Search); p != nil {
		checks = append(checks, p)
	}

	return func(r types.InteractionRecord) bool {
		for _, check := range checks {
			if !check(r) {
				return false
			}
		}
		return true
	}
}

func inSet(field types.Field, accepted []string) Predicate {
	if len(accepted) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(accepted))
	for _, v := range accepted {
		set[v] = struct{}{}
	}
	return func(r types.InteractionRecord) bool {
		v := r.Get(field)
		if !v.Defined() {
			return false
		}
		_, ok := set[v.String()]
		return ok
	}
}

func inRange(field types.Field, rng *types.Range) Predicate {
	if rng == nil || rng.Unbounded() {
		return nil
	}
	bounds := *rng
	return func(r types.InteractionRecord) bool {
		n, ok := r.Get(field).Float()
		return ok && bounds.Contains(n)
	}
}

func search(query string) Predicate {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	return func(r types.InteractionRecord) bool {
		for _, f := range types.SearchFields {
			v := r.Get(f)
			if !v.Defined() {
				continue
			}
			if strings.Contains(strings.ToLower(v.String()), needle) {
				return true
			}
		}
		return false
	}
}
