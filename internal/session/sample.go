package session

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

var (
	sampleCustomers  = []string{"Acme Corp", "Globex", "Initech", "Umbrella", "Hooli", "Stark Industries", "Wayne Enterprises", "Soylent"}
	sampleAgents     = []string{"Sarah Chen", "Marcus Webb", "Priya Nair", "Tom Fischer", "Lena Kowalski"}
	sampleCategories = []string{"billing", "support", "sales", "onboarding"}
	sampleOutcomes   = []string{"resolved", "escalated", "follow-up", "churned"}
	sampleTiers      = []string{"gold", "silver", "bronze", ""}
	sampleKeywords   = []string{"pricing", "renewal", "upsell", "outage", "refund", "integration", "training"}
)

const sampleSize = 60

// SampleRecords builds a deterministic set of demo interactions spread over
// the 30 days before now
func SampleRecords(now time.Time) []types.InteractionRecord {
	rng := rand.New(rand.NewSource(42))
	end := now.UTC().Truncate(time.Hour)

	out := make([]types.InteractionRecord, 0, sampleSize)
	for i := 0; i < sampleSize; i++ {
		customer := sampleCustomers[rng.Intn(len(sampleCustomers))]
		category := sampleCategories[rng.Intn(len(sampleCategories))]
		outcome := sampleOutcomes[rng.Intn(len(sampleOutcomes))]
		success := outcome == "resolved" || (outcome == "follow-up" && rng.Intn(2) == 0)

		r := types.InteractionRecord{
			ID:              fmt.Sprintf("S%03d", i+1),
			CustomerName:    customer,
			AgentName:       sampleAgents[rng.Intn(len(sampleAgents))],
			OccurredAt:      end.Add(-time.Duration(rng.Intn(30*24)) * time.Hour),
			DurationSeconds: 60 + rng.Intn(1500),
			Category:        category,
			Outcome:         outcome,
			Tier:            sampleTiers[rng.Intn(len(sampleTiers))],
			Success:         success,
			KeywordTags:     strings.Join(pickKeywords(rng), ","),
		}

		// roughly one in six calls has no survey answer
		if rng.Intn(6) != 0 {
			score := 1 + rng.Intn(10)
			if success && score < 6 {
				score += 4
			}
			r.SatisfactionScore = types.Float(float64(score))
		}
		if category == "sales" || rng.Intn(4) == 0 {
			r.RevenueImpact = math.Round(rng.Float64()*8000) + 200
			p := math.Round(rng.Float64()*100) / 100
			r.ConversionProbability = &p
		}
		if rng.Intn(3) != 0 {
			ltv := math.Round(rng.Float64()*50000) + 1000
			r.LifetimeValue = &ltv
		}
		r.Summary = fmt.Sprintf("%s call with %s, %s", category, customer, outcome)
		r.Transcript = fmt.Sprintf("Customer: I'm calling about %s.\nAgent: Let me look into that for you.", r.KeywordTags)

		out = append(out, r)
	}
	return out
}

func pickKeywords(rng *rand.Rand) []string {
	n := 1 + rng.Intn(3)
	perm := rng.Perm(len(sampleKeywords))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = sampleKeywords[perm[i]]
	}
	return out
}
