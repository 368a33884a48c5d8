// Package kpi computes the scalar dashboard metrics over a filtered view.
//
// Every function takes the view itself, never the store, so the numbers
// always describe exactly the rows on screen.
package kpi

import "github.com/dennisdiepolder/monti/insights/internal/types"

// conversionThreshold is the probability above which an interaction counts as converted
const conversionThreshold = 0.5

// Summary holds all metrics of one view
type Summary struct {
	Records             int         `json:"records"`
	SuccessRate         float64     `json:"successRate"`
	AverageSatisfaction types.Value `json:"averageSatisfaction"`
	TotalRevenue        float64     `json:"totalRevenue"`
	ConversionRate      float64     `json:"conversionRate"`
	PipelineValue       float64     `json:"pipelineValue"`
}

// Compute derives every metric in a single pass
func Compute(view []types.InteractionRecord) Summary {
	var (
		successes  int
		converted  int
		satSum     float64
		satPresent int
		revenue    float64
		pipeline   float64
	)

	for _, r := range view {
		if r.Success {
			successes++
		}
		if r.SatisfactionScore != nil {
			satSum += *r.SatisfactionScore
			satPresent++
		}
		revenue += r.RevenueImpact
		if r.ConversionProbability != nil && *r.ConversionProbability > conversionThreshold {
			converted++
		}
		pipeline += pipelineContribution(r)
	}

	s := Summary{
		Records:             len(view),
		AverageSatisfaction: types.Missing(),
		TotalRevenue:        revenue,
		PipelineValue:       pipeline,
	}
	if len(view) > 0 {
		s.SuccessRate = float64(successes) / float64(len(view))
		s.ConversionRate = float64(converted) / float64(len(view))
	}
	if satPresent > 0 {
		s.AverageSatisfaction = types.Number(satSum / float64(satPresent))
	}
	return s
}

// SuccessRate is the share of records marked successful; 0 on an empty view
func SuccessRate(view []types.InteractionRecord) float64 {
	return Compute(view).SuccessRate
}

// AverageSatisfaction is the mean of the present scores, missing if there are none
func AverageSatisfaction(view []types.InteractionRecord) types.Value {
	return Compute(view).AverageSatisfaction
}

// TotalRevenue sums revenueImpact
func TotalRevenue(view []types.InteractionRecord) float64 {
	return Compute(view).TotalRevenue
}

// ConversionRate is the share of records with conversionProbability above 0.5
func ConversionRate(view []types.InteractionRecord) float64 {
	return Compute(view).ConversionRate
}

// PipelineValue sums lifetimeValue * conversionProbability, a missing factor
// contributing nothing
func PipelineValue(view []types.InteractionRecord) float64 {
	return Compute(view).PipelineValue
}

func pipelineContribution(r types.InteractionRecord) float64 {
	if r.LifetimeValue == nil || r.ConversionProbability == nil {
		return 0
	}
	return *r.LifetimeValue * *r.ConversionProbability
}
