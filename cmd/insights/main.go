// Command insights runs the dashboard computations offline over a CSV export.
//
// Examples:
//
//	insights summarize --file calls.csv --group agentName --reduce avg:mean:satisfactionScore
//	insights kpis --file calls.csv --category billing --from 2025-07-01
//	insights check --file calls.csv
package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dennisdiepolder/monti/insights/internal/filter"
	"github.com/dennisdiepolder/monti/insights/internal/ingestion"
	"github.com/dennisdiepolder/monti/insights/internal/records"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the flags shared by every subcommand
type options struct {
	file    string
	asJSON  bool
	verbose bool

	from, to                   string
	categories, tiers, outcome []string
	satMin, satMax             string
	revMin, revMax             string
	search                     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "insights",
		Short:         "Summaries, KPIs and data checks over interaction CSV files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.file, "file", "f", "", "CSV file to load (required)")
	pf.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log ingestion details to stderr")
	pf.StringVar(&opts.from, "from", "", "earliest occurredAt (RFC3339 or YYYY-MM-DD)")
	pf.StringVar(&opts.to, "to", "", "latest occurredAt; a bare date covers the whole day")
	pf.StringSliceVar(&opts.categories, "category", nil, "categories to keep")
	pf.StringSliceVar(&opts.tiers, "tier", nil, "tiers to keep")
	pf.StringSliceVar(&opts.outcome, "outcome", nil, "outcomes to keep")
	pf.StringVar(&opts.satMin, "sat-min", "", "minimum satisfaction score")
	pf.StringVar(&opts.satMax, "sat-max", "", "maximum satisfaction score")
	pf.StringVar(&opts.revMin, "rev-min", "", "minimum revenue impact")
	pf.StringVar(&opts.revMax, "rev-max", "", "maximum revenue impact")
	pf.StringVarP(&opts.search, "q", "q", "", "free-text search")

	root.AddCommand(newSummarizeCmd(opts))
	root.AddCommand(newKPIsCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	return root
}

func (o *options) logger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// criteria turns the filter flags into the same criteria the HTTP API builds
// from its query string
func (o *options) criteria() (types.FilterCriteria, error) {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set(filter.ParamFrom, o.from)
	set(filter.ParamTo, o.to)
	set(filter.ParamSatMin, o.satMin)
	set(filter.ParamSatMax, o.satMax)
	set(filter.ParamRevMin, o.revMin)
	set(filter.ParamRevMax, o.revMax)
	set(filter.ParamSearch, o.search)
	q[filter.ParamCategory] = o.categories
	q[filter.ParamTier] = o.tiers
	q[filter.ParamOutcome] = o.outcome
	return filter.ParseCriteria(q)
}

// loadView reads the file into a fresh store and returns the filtered view
// together with the ingestion report
func (o *options) loadView(cmd *cobra.Command) ([]types.InteractionRecord, ingestion.Report, error) {
	if o.file == "" {
		return nil, ingestion.Report{}, fmt.Errorf("--file is required")
	}
	criteria, err := o.criteria()
	if err != nil {
		return nil, ingestion.Report{}, fmt.Errorf("invalid filter: %w", err)
	}

	f, err := os.Open(o.file)
	if err != nil {
		return nil, ingestion.Report{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	store := records.NewStore()
	report, err := ingestion.NewProcessor(o.logger(cmd)).Load(f, store, ingestion.ModeReplace)
	if err != nil {
		return nil, report, fmt.Errorf("loading %s: %w", o.file, err)
	}
	if len(report.Rejected) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d rows skipped, run check for details\n", len(report.Rejected))
	}
	return filter.View(store, criteria), report, nil
}
