package types

import (
	"strconv"
	"time"
)

// Field names a column of an interaction record. Names match the JSON keys so
// the same identifiers work for query parameters, reducer specs and exports.
type Field string

const (
	FieldID                    Field = "id"
	FieldCustomerName          Field = "customerName"
	FieldAgentName             Field = "agentName"
	FieldOccurredAt            Field = "occurredAt"
	FieldDurationSeconds       Field = "durationSeconds"
	FieldCategory              Field = "category"
	FieldOutcome               Field = "outcome"
	FieldTier                  Field = "tier"
	FieldSuccess               Field = "success"
	FieldSatisfactionScore     Field = "satisfactionScore"
	FieldRevenueImpact         Field = "revenueImpact"
	FieldConversionProbability Field = "conversionProbability"
	FieldLifetimeValue         Field = "lifetimeValue"
	FieldTranscript            Field = "transcript"
	FieldSummary               Field = "summary"
	FieldKeywordTags           Field = "keywordTags"
)

// CoreFields lists the fixed schema in export column order
var CoreFields = []Field{
	FieldID,
	FieldCustomerName,
	FieldAgentName,
	FieldOccurredAt,
	FieldDurationSeconds,
	FieldCategory,
	FieldOutcome,
	FieldTier,
	FieldSuccess,
	FieldSatisfactionScore,
	FieldRevenueImpact,
	FieldConversionProbability,
	FieldLifetimeValue,
	FieldTranscript,
	FieldSummary,
	FieldKeywordTags,
}

// SearchFields are the text fields matched by the free-text search
var SearchFields = []Field{
	FieldCustomerName,
	FieldAgentName,
	FieldCategory,
	FieldOutcome,
	FieldTier,
	FieldTranscript,
	FieldSummary,
	FieldKeywordTags,
}

// IsCore reports whether f belongs to the fixed schema
func (f Field) IsCore() bool {
	for _, c := range CoreFields {
		if c == f {
			return true
		}
	}
	return false
}

// Clearable reports whether a patch may unset f
func (f Field) Clearable() bool {
	switch f {
	case FieldTier, FieldSatisfactionScore, FieldConversionProbability, FieldLifetimeValue,
		FieldTranscript, FieldSummary, FieldKeywordTags:
		return true
	}
	return false
}

// InteractionRecord is one logged customer interaction
type InteractionRecord struct {
	ID              string    `json:"id"`
	CustomerName    string    `json:"customerName"`
	AgentName       string    `json:"agentName"`
	OccurredAt      time.Time `json:"occurredAt"`
	DurationSeconds int       `json:"durationSeconds"`
	Category        string    `json:"category"`
	Outcome         string    `json:"outcome"`
	Tier            string    `json:"tier,omitempty"`
	Success         bool      `json:"success"`

	SatisfactionScore     *float64 `json:"satisfactionScore,omitempty"`     // nominal 1-10
	RevenueImpact         float64  `json:"revenueImpact"`                   // 0 = no monetizable outcome
	ConversionProbability *float64 `json:"conversionProbability,omitempty"` // 0-1
	LifetimeValue         *float64 `json:"lifetimeValue,omitempty"`         // per customer

	Transcript  string `json:"transcript,omitempty"`
	Summary     string `json:"summary,omitempty"`
	KeywordTags string `json:"keywordTags,omitempty"`

	// Extra carries uploaded columns outside the fixed schema, untouched
	Extra map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy that shares no pointers or maps with r
func (r InteractionRecord) Clone() InteractionRecord {
	out := r
	out.SatisfactionScore = cloneFloat(r.SatisfactionScore)
	out.ConversionProbability = cloneFloat(r.ConversionProbability)
	out.LifetimeValue = cloneFloat(r.LifetimeValue)
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Get returns the value of a field. Empty text and nil optional numbers are
// missing. Unknown names are looked up in Extra.
func (r InteractionRecord) Get(f Field) Value {
	switch f {
	case FieldID:
		return textValue(r.ID)
	case FieldCustomerName:
		return textValue(r.CustomerName)
	case FieldAgentName:
		return textValue(r.AgentName)
	case FieldOccurredAt:
		if r.OccurredAt.IsZero() {
			return Missing()
		}
		return Text(r.OccurredAt.Format(time.RFC3339))
	case FieldDurationSeconds:
		return Number(float64(r.DurationSeconds))
	case FieldCategory:
		return textValue(r.Category)
	case FieldOutcome:
		return textValue(r.Outcome)
	case FieldTier:
		return textValue(r.Tier)
	case FieldSuccess:
		if r.Success {
			return Text("Yes")
		}
		return Text("No")
	case FieldSatisfactionScore:
		return optionalValue(r.SatisfactionScore)
	case FieldRevenueImpact:
		return Number(r.RevenueImpact)
	case FieldConversionProbability:
		return optionalValue(r.ConversionProbability)
	case FieldLifetimeValue:
		return optionalValue(r.LifetimeValue)
	case FieldTranscript:
		return textValue(r.Transcript)
	case FieldSummary:
		return textValue(r.Summary)
	case FieldKeywordTags:
		return textValue(r.KeywordTags)
	}
	if r.Extra == nil {
		return Missing()
	}
	return textValue(r.Extra[string(f)])
}

// Number returns a numeric field. Success counts as 1 or 0 so it can be
// summed or averaged like any other column.
func (r InteractionRecord) Number(f Field) (float64, bool) {
	if f == FieldSuccess {
		if r.Success {
			return 1, true
		}
		return 0, true
	}
	v := r.Get(f)
	if v.Kind == KindText {
		n, err := strconv.ParseFloat(v.Text, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return v.Float()
}

// RecordPatch is a partial update. Nil fields are left untouched.
type RecordPatch struct {
	CustomerName          *string    `json:"customerName,omitempty"`
	AgentName             *string    `json:"agentName,omitempty"`
	OccurredAt            *time.Time `json:"occurredAt,omitempty"`
	DurationSeconds       *int       `json:"durationSeconds,omitempty"`
	Category              *string    `json:"category,omitempty"`
	Outcome               *string    `json:"outcome,omitempty"`
	Tier                  *string    `json:"tier,omitempty"`
	Success               *bool      `json:"success,omitempty"`
	SatisfactionScore     *float64   `json:"satisfactionScore,omitempty"`
	RevenueImpact         *float64   `json:"revenueImpact,omitempty"`
	ConversionProbability *float64   `json:"conversionProbability,omitempty"`
	LifetimeValue         *float64   `json:"lifetimeValue,omitempty"`
	Transcript            *string    `json:"transcript,omitempty"`
	Summary               *string    `json:"summary,omitempty"`
	KeywordTags           *string    `json:"keywordTags,omitempty"`

	// Extra is merged key by key; an empty value deletes the key
	Extra map[string]string `json:"extra,omitempty"`

	// Unset clears optional fields after the setters above are applied
	Unset []Field `json:"unset,omitempty"`
}

// Apply merges the patch into a copy of r
func (p RecordPatch) Apply(r InteractionRecord) (InteractionRecord, error) {
	out := r.Clone()

	setString(&out.CustomerName, p.CustomerName)
	setString(&out.AgentName, p.AgentName)
	setString(&out.Category, p.Category)
	setString(&out.Outcome, p.Outcome)
	setString(&out.Tier, p.Tier)
	setString(&out.Transcript, p.Transcript)
	setString(&out.Summary, p.Summary)
	setString(&out.KeywordTags, p.KeywordTags)

	if p.OccurredAt != nil {
		out.OccurredAt = *p.OccurredAt
	}
	if p.DurationSeconds != nil {
		out.DurationSeconds = *p.DurationSeconds
	}
	if p.Success != nil {
		out.Success = *p.Success
	}
	if p.RevenueImpact != nil {
		out.RevenueImpact = *p.RevenueImpact
	}
	if p.SatisfactionScore != nil {
		out.SatisfactionScore = cloneFloat(p.SatisfactionScore)
	}
	if p.ConversionProbability != nil {
		out.ConversionProbability = cloneFloat(p.ConversionProbability)
	}
	if p.LifetimeValue != nil {
		out.LifetimeValue = cloneFloat(p.LifetimeValue)
	}

	for k, v := range p.Extra {
		if v == "" {
			delete(out.Extra, k)
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]string)
		}
		out.Extra[k] = v
	}

	for _, f := range p.Unset {
		if !f.Clearable() {
			return r, &FieldError{Field: f, Reason: "field cannot be unset"}
		}
		switch f {
		case FieldTier:
			out.Tier = ""
		case FieldSatisfactionScore:
			out.SatisfactionScore = nil
		case FieldConversionProbability:
			out.ConversionProbability = nil
		case FieldLifetimeValue:
			out.LifetimeValue = nil
		case FieldTranscript:
			out.Transcript = ""
		case FieldSummary:
			out.Summary = ""
		case FieldKeywordTags:
			out.KeywordTags = ""
		}
	}

	return out, nil
}

// FieldError describes a problem with a single field
type FieldError struct {
	Field  Field
	Reason string
}

func (e *FieldError) Error() string {
	return string(e.Field) + ": " + e.Reason
}

// Float returns a pointer to v, for building optional fields
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func textValue(s string) Value {
	if s == "" {
		return Missing()
	}
	return Text(s)
}

func optionalValue(p *float64) Value {
	if p == nil {
		return Missing()
	}
	return Number(*p)
}
