package types

// SummaryRow is one grouped roll-up produced by the aggregator
type SummaryRow struct {
	Key    string           `json:"key"`
	Count  int              `json:"count"`
	Values map[string]Value `json:"values"`
}

// Get returns a reduced column, or a missing value if the column is unknown
func (r SummaryRow) Get(name string) Value {
	if v, ok := r.Values[name]; ok {
		return v
	}
	return Missing()
}
