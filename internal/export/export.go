// Package export serializes record views and summaries exactly as given.
// Nothing here filters, sorts or re-aggregates.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Format is an export encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat maps a query value to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type for f
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds a download name like records-20250701-093000.csv
func Filename(prefix string, f Format, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, now.UTC().Format("20060102-150405"), f)
}

// RecordColumns returns the CSV header for recs: the fixed schema followed by
// every extra column present in any record, sorted by name.
func RecordColumns(recs []types.InteractionRecord) []string {
	cols := make([]string, 0, len(types.CoreFields))
	for _, f := range types.CoreFields {
		cols = append(cols, string(f))
	}

	extra := make(map[string]struct{})
	for _, r := range recs {
		for k := range r.Extra {
			if !types.Field(k).IsCore() {
				extra[k] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(extra))
	for k := range extra {
		names = append(names, k)
	}
	sort.Strings(names)
	return append(cols, names...)
}

// WriteRecordsCSV writes recs in order. Absent values become empty cells so
// the file can be uploaded again.
func WriteRecordsCSV(w io.Writer, recs []types.InteractionRecord) error {
	cw := csv.NewWriter(w)
	cols := RecordColumns(recs)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(cols))
	for _, r := range recs {
		for i, c := range cols {
			v := r.Get(types.Field(c))
			if v.Defined() {
				row[i] = v.String()
			} else {
				row[i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteRecordsJSON writes recs as a JSON array
func WriteRecordsJSON(w io.Writer, recs []types.InteractionRecord) error {
	if recs == nil {
		recs = []types.InteractionRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteSummaryCSV writes one line per row with the key, the group size and
// each reducer column. Undefined results are written as N/A.
func WriteSummaryCSV(w io.Writer, rows []types.SummaryRow, reducers []aggregator.Reducer) error {
	cw := csv.NewWriter(w)
	cols := aggregator.Columns(reducers)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	line := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			line[i] = aggregator.Cell(row, c).String()
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row %s: %w", row.Key, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummaryJSON writes rows as a JSON array. Undefined results are null.
func WriteSummaryJSON(w io.Writer, rows []types.SummaryRow) error {
	if rows == nil {
		rows = []types.SummaryRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
