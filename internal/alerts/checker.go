package alerts

import (
	"fmt"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/kpi"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Severity of a data quality warning
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Rule names
const (
	RuleSatisfactionRange = "satisfaction_out_of_range"
	RuleProbabilityRange  = "conversion_probability_out_of_range"
	RuleUndefinedMean     = "undefined_mean"
	RuleUndefinedAverage  = "undefined_average_satisfaction"
)

// Warning is a non-fatal computation or data quality finding. It never
// stops a computation; the affected value is reported as missing instead.
type Warning struct {
	Rule     string      `json:"rule"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
	Key      string      `json:"key,omitempty"` // record id or group key
	Field    types.Field `json:"field,omitempty"`
}

// CheckRecords flags values outside their nominal range. Nothing is clamped.
func CheckRecords(records []types.InteractionRecord) []Warning {
	var warnings []Warning
	for _, r := range records {
		if s := r.SatisfactionScore; s != nil && (*s < 1 || *s > 10) {
			warnings = append(warnings, Warning{
				Rule:     RuleSatisfactionRange,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("satisfaction score %g outside 1-10", *s),
				Key:      r.ID,
				Field:    types.FieldSatisfactionScore,
			})
		}
		if p := r.ConversionProbability; p != nil && (*p < 0 || *p > 1) {
			warnings = append(warnings, Warning{
				Rule:     RuleProbabilityRange,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("conversion probability %g outside 0-1", *p),
				Key:      r.ID,
				Field:    types.FieldConversionProbability,
			})
		}
	}
	return warnings
}

// CheckRows flags mean columns that came out undefined because every record
// of the group lacked the field
func CheckRows(rows []types.SummaryRow, reducers []aggregator.Reducer) []Warning {
	var warnings []Warning
	for _, row := range rows {
		for _, red := range reducers {
			if red.Op != aggregator.OpMean || row.Get(red.Name).Defined() {
				continue
			}
			warnings = append(warnings, Warning{
				Rule:     RuleUndefinedMean,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("%s: no %s values in group", red.Name, red.Field),
				Key:      row.Key,
				Field:    red.Field,
			})
		}
	}
	return warnings
}

// CheckKPIs flags metrics that could not be computed for the view
func CheckKPIs(s kpi.Summary) []Warning {
	if s.AverageSatisfaction.Defined() {
		return nil
	}
	msg := "no satisfaction scores in view"
	if s.Records == 0 {
		msg = "view is empty"
	}
	return []Warning{{
		Rule:     RuleUndefinedAverage,
		Severity: SeverityInfo,
		Message:  msg,
		Field:    types.FieldSatisfactionScore,
	}}
}
