package records

import (
	"fmt"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Validate checks the required fields and hard bounds of a record.
// Satisfaction scores outside 1-10 are accepted here and reported by the
// data quality checks instead.
func Validate(r types.InteractionRecord) error {
	var missing []string
	if r.ID == "" {
		missing = append(missing, string(types.FieldID))
	}
	if r.CustomerName == "" {
		missing = append(missing, string(types.FieldCustomerName))
	}
	if r.AgentName == "" {
		missing = append(missing, string(types.FieldAgentName))
	}
	if r.OccurredAt.IsZero() {
		missing = append(missing, string(types.FieldOccurredAt))
	}
	if r.Category == "" {
		missing = append(missing, string(types.FieldCategory))
	}
	if r.Outcome == "" {
		missing = append(missing, string(types.FieldOutcome))
	}
	if len(missing) > 0 {
		return &ValidationError{
			Reason: fmt.Sprintf("missing required fields %v", missing),
			IDs:    idList(r.ID),
		}
	}

	if r.DurationSeconds < 0 {
		return &ValidationError{Reason: "durationSeconds must not be negative", IDs: idList(r.ID)}
	}
	if r.RevenueImpact < 0 {
		return &ValidationError{Reason: "revenueImpact must not be negative", IDs: idList(r.ID)}
	}
	return nil
}

func idList(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}
