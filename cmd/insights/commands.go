package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/alerts"
	"github.com/dennisdiepolder/monti/insights/internal/export"
	"github.com/dennisdiepolder/monti/insights/internal/filter"
	"github.com/dennisdiepolder/monti/insights/internal/ingestion"
	"github.com/dennisdiepolder/monti/insights/internal/kpi"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// --- summarize ---

func newSummarizeCmd(opts *options) *cobra.Command {
	var (
		group   string
		reduce  []string
		sortBy  string
		desc    bool
		csvOut  bool
		noWarns bool
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Group the filtered records and reduce each group",
		Long: `Group the filtered records and reduce each group.

Reducers use the form name:op[:field] where op is one of
count, sum, mean, first, last or uniqueJoin.

Examples:
  insights summarize -f calls.csv --group customerName --reduce avg:mean:satisfactionScore
  insights summarize -f calls.csv --group month --reduce rev:sum:revenueImpact --sort rev --desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := aggregator.KeyFor(group)
			if err != nil {
				return err
			}
			reducers, err := aggregator.ParseReducers(reduce)
			if err != nil {
				return err
			}
			if sortBy != "" && !hasColumn(aggregator.Columns(reducers), sortBy) {
				return fmt.Errorf("unknown sort column %q", sortBy)
			}

			view, _, err := opts.loadView(cmd)
			if err != nil {
				return err
			}

			rows := aggregator.AggregateBy(view, key, reducers)
			if sortBy != "" {
				aggregator.SortRows(rows, sortBy, desc)
			}

			if !noWarns {
				printWarnings(cmd, alerts.CheckRows(rows, reducers))
			}

			out := cmd.OutOrStdout()
			switch {
			case opts.asJSON:
				return printJSON(out, rows)
			case csvOut:
				return export.WriteSummaryCSV(out, rows, reducers)
			}
			return printSummary(out, rows, reducers)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&group, "group", "g", string(types.FieldCustomerName), "field to group by, or day / month")
	f.StringArrayVarP(&reduce, "reduce", "r", nil, "reducer spec name:op[:field], repeatable")
	f.StringVar(&sortBy, "sort", "", "column to sort by")
	f.BoolVar(&desc, "desc", false, "sort descending")
	f.BoolVar(&csvOut, "csv", false, "print CSV instead of a table")
	f.BoolVar(&noWarns, "no-warnings", false, "do not report undefined means")
	return cmd
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// --- kpis ---

func newKPIsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "kpis",
		Short: "Print the dashboard metrics of the filtered records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, _, err := opts.loadView(cmd)
			if err != nil {
				return err
			}

			summary := kpi.Compute(view)
			printWarnings(cmd, alerts.CheckKPIs(summary))

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			return printKPIs(cmd.OutOrStdout(), summary)
		},
	}
}

// --- check ---

type checkReport struct {
	File     string               `json:"file"`
	Accepted int                  `json:"accepted"`
	Rejected []ingestion.RowError `json:"rejected"`
	Unmapped []string             `json:"unmappedColumns,omitempty"`
	Warnings []alerts.Warning     `json:"warnings"`
}

func newCheckCmd(opts *options) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report rows that fail to import and values outside their nominal range",
		Long: `Report rows that fail to import and values outside their nominal range.

Filters apply to the range checks only; every row is validated.
With --strict the command fails when anything is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.file == "" {
				return fmt.Errorf("--file is required")
			}
			criteria, err := opts.criteria()
			if err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}

			f, err := os.Open(opts.file)
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			// parse directly so that a file with no valid rows still gets a report
			res, err := ingestion.ParseCSV(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", opts.file, err)
			}

			report := checkReport{
				File:     opts.file,
				Accepted: len(res.Records),
				Rejected: res.Rejected,
				Unmapped: res.Unmapped,
				Warnings: alerts.CheckRecords(filter.Apply(res.Records, criteria)),
			}
			if report.Rejected == nil {
				report.Rejected = []ingestion.RowError{}
			}
			if report.Warnings == nil {
				report.Warnings = []alerts.Warning{}
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				err = printJSON(out, report)
			} else {
				err = printCheck(out, report)
			}
			if err != nil {
				return err
			}

			if problems := len(report.Rejected) + len(report.Warnings); strict && problems > 0 {
				return fmt.Errorf("%d problems found", problems)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any problem is found")
	return cmd
}
