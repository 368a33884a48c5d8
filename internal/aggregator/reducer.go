package aggregator

import (
	"fmt"
	"strings"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Op is a reduction applied to every record of a group
type Op string

const (
	OpCount      Op = "count"
	OpSum        Op = "sum"        // absent values count as 0
	OpMean       Op = "mean"       // absent values are skipped; all absent -> missing
	OpFirst      Op = "first"      // first present value in view order
	OpLast       Op = "last"       // last present value in view order
	OpUniqueJoin Op = "uniqueJoin" // distinct present values, comma joined
)

// Reducer produces one output column of a summary row
type Reducer struct {
	Name  string      `json:"name"`
	Op    Op          `json:"op"`
	Field types.Field `json:"field,omitempty"`
}

func Count(name string) Reducer                { return Reducer{Name: name, Op: OpCount} }
func Sum(name string, f types.Field) Reducer   { return Reducer{Name: name, Op: OpSum, Field: f} }
func Mean(name string, f types.Field) Reducer  { return Reducer{Name: name, Op: OpMean, Field: f} }
func First(name string, f types.Field) Reducer { return Reducer{Name: name, Op: OpFirst, Field: f} }
func Last(name string, f types.Field) Reducer  { return Reducer{Name: name, Op: OpLast, Field: f} }
func UniqueJoin(name string, f types.Field) Reducer {
	return Reducer{Name: name, Op: OpUniqueJoin, Field: f}
}

// Validate checks that the reducer is complete
func (r Reducer) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("reducer name is required")
	}
	switch r.Op {
	case OpCount:
		return nil
	case OpSum, OpMean, OpFirst, OpLast, OpUniqueJoin:
		if r.Field == "" {
			return fmt.Errorf("reducer %s: %s needs a field", r.Name, r.Op)
		}
		return nil
	}
	return fmt.Errorf("reducer %s: unknown op %q", r.Name, r.Op)
}

// ParseReducer reads the "name:op[:field]" form used by query strings and
// the command line, e.g. "avgSat:mean:satisfactionScore" or "calls:count".
func ParseReducer(spec string) (Reducer, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Reducer{}, fmt.Errorf("invalid reducer %q, want name:op[:field]", spec)
	}

	r := Reducer{Name: parts[0], Op: Op(parts[1])}
	if len(parts) == 3 {
		r.Field = types.Field(parts[2])
	}
	if err := r.Validate(); err != nil {
		return Reducer{}, err
	}
	return r, nil
}

// ParseReducers parses a list of specs and rejects duplicate column names
func ParseReducers(specs []string) ([]Reducer, error) {
	out := make([]Reducer, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		r, err := ParseReducer(spec)
		if err != nil {
			return nil, err
		}
		if seen[r.Name] || r.Name == ColumnKey || r.Name == ColumnCount {
			return nil, fmt.Errorf("duplicate column %q", r.Name)
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out, nil
}

// accumulator folds one column of one group
type accumulator struct {
	count   int
	present int
	sum     float64
	first   types.Value
	last    types.Value
	unique  []string
	seen    map[string]struct{}
}

func (a *accumulator) add(op Op, field types.Field, r types.InteractionRecord) {
	a.count++

	switch op {
	case OpSum, OpMean:
		if n, ok := r.Number(field); ok {
			a.sum += n
			a.present++
		}

	case OpFirst, OpLast:
		v := r.Get(field)
		if !v.Defined() {
			return
		}
		if !a.first.Defined() {
			a.first = v
		}
		a.last = v

	case OpUniqueJoin:
		v := r.Get(field)
		if !v.Defined() {
			return
		}
		s := v.String()
		if a.seen == nil {
			a.seen = make(map[string]struct{})
		}
		if _, ok := a.seen[s]; ok {
			return
		}
		a.seen[s] = struct{}{}
		a.unique = append(a.unique, s)
	}
}

func (a *accumulator) result(op Op) types.Value {
	switch op {
	case OpCount:
		return types.Number(float64(a.count))
	case OpSum:
		return types.Number(a.sum)
	case OpMean:
		if a.present == 0 {
			return types.Missing()
		}
		return types.Number(a.sum / float64(a.present))
	case OpFirst:
		return a.first
	case OpLast:
		return a.last
	case OpUniqueJoin:
		if len(a.unique) == 0 {
			return types.Missing()
		}
		return types.Text(strings.Join(a.unique, ", "))
	}
	return types.Missing()
}
