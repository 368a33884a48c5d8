package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/alerts"
	"github.com/dennisdiepolder/monti/insights/internal/kpi"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSummary renders rows as an aligned table. Undefined values show as N/A.
func printSummary(w io.Writer, rows []types.SummaryRow, reducers []aggregator.Reducer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	columns := aggregator.Columns(reducers)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = aggregator.Cell(row, c).String()
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func printKPIs(w io.Writer, s kpi.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Records\t%d\n", s.Records)
	fmt.Fprintf(tw, "Success rate\t%s\n", percent(s.SuccessRate))
	fmt.Fprintf(tw, "Avg satisfaction\t%s\n", s.AverageSatisfaction.String())
	fmt.Fprintf(tw, "Total revenue\t%s\n", money(s.TotalRevenue))
	fmt.Fprintf(tw, "Conversion rate\t%s\n", percent(s.ConversionRate))
	fmt.Fprintf(tw, "Pipeline value\t%s\n", money(s.PipelineValue))
	return tw.Flush()
}

func printCheck(w io.Writer, r checkReport) error {
	fmt.Fprintf(w, "%s: %d rows accepted, %d rejected\n", r.File, r.Accepted, len(r.Rejected))
	if len(r.Unmapped) > 0 {
		fmt.Fprintf(w, "extra columns kept as-is: %s\n", strings.Join(r.Unmapped, ", "))
	}
	for _, e := range r.Rejected {
		fmt.Fprintf(w, "  rejected %s\n", e.Error())
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s %s: %s\n", warn.Severity, warn.Key, warn.Message)
	}
	if len(r.Rejected) == 0 && len(r.Warnings) == 0 {
		fmt.Fprintln(w, "no problems found")
	}
	return nil
}

// printWarnings goes to stderr so piped output stays clean
func printWarnings(cmd *cobra.Command, warnings []alerts.Warning) {
	for _, w := range warnings {
		if w.Key != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", w.Severity, w.Message, w.Key)
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", w.Severity, w.Message)
	}
}

func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

func money(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
