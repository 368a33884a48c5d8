package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Column names every summary carries besides the reducer outputs
const (
	ColumnKey   = "key"
	ColumnCount = "count"
)

// KeyFunc extracts the grouping key of a record
type KeyFunc func(types.InteractionRecord) string

// ByField groups on the exact string value of a field. Keys are not
// normalized, so "Bob" and "bob" are separate groups. Records lacking the
// field share the empty key.
func ByField(f types.Field) KeyFunc {
	return func(r types.InteractionRecord) string {
		v := r.Get(f)
		if !v.Defined() {
			return ""
		}
		return v.String()
	}
}

// ByDay groups on the UTC calendar day of occurredAt
func ByDay() KeyFunc {
	return func(r types.InteractionRecord) string {
		return r.OccurredAt.UTC().Format(time.DateOnly)
	}
}

// ByMonth groups on the UTC month of occurredAt
func ByMonth() KeyFunc {
	return func(r types.InteractionRecord) string {
		return r.OccurredAt.UTC().Format("2006-01")
	}
}

// KeyFor resolves a grouping name: "day", "month", or any record field
func KeyFor(name string) (KeyFunc, error) {
	switch name {
	case "":
		return nil, fmt.Errorf("group is required")
	case "day":
		return ByDay(), nil
	case "month":
		return ByMonth(), nil
	}
	return ByField(types.Field(name)), nil
}

// AggregateBy groups records by key and reduces each group with reducers.
//
// Rows come back in the order each key first appears in records. Every
// record lands in exactly one row, so the row counts sum to len(records).
func AggregateBy(records []types.InteractionRecord, key KeyFunc, reducers []Reducer) []types.SummaryRow {
	type group struct {
		key   string
		count int
		accs  []accumulator
	}

	order := make([]*group, 0)
	byKey := make(map[string]*group)

	for _, r := range records {
		k := key(r)
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k, accs: make([]accumulator, len(reducers))}
			byKey[k] = g
			order = append(order, g)
		}
		g.count++
		for i, red := range reducers {
			g.accs[i].add(red.Op, red.Field, r)
		}
	}

	rows := make([]types.SummaryRow, 0, len(order))
	for _, g := range order {
		row := types.SummaryRow{
			Key:    g.key,
			Count:  g.count,
			Values: make(map[string]types.Value, len(reducers)),
		}
		for i, red := range reducers {
			row.Values[red.Name] = g.accs[i].result(red.Op)
		}
		rows = append(rows, row)
	}
	return rows
}

// Columns lists the output columns of a summary in display order
func Columns(reducers []Reducer) []string {
	cols := []string{ColumnKey, ColumnCount}
	for _, r := range reducers {
		cols = append(cols, r.Name)
	}
	return cols
}

// Cell returns a column of a row, including the key and count columns
func Cell(row types.SummaryRow, column string) types.Value {
	switch column {
	case ColumnKey:
		return types.Text(row.Key)
	case ColumnCount:
		return types.Number(float64(row.Count))
	}
	return row.Get(column)
}

// SortRows stably sorts rows in place by a column. Missing values always
// sort last. Numbers compare numerically, everything else as strings.
func SortRows(rows []types.SummaryRow, column string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := Cell(rows[i], column), Cell(rows[j], column)
		if !a.Defined() || !b.Defined() {
			return a.Defined() && !b.Defined()
		}
		if x, ok := a.Float(); ok {
			if y, ok := b.Float(); ok {
				if desc {
					return x > y
				}
				return x < y
			}
		}
		if desc {
			return a.String() > b.String()
		}
		return a.String() < b.String()
	})
}
