package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/alerts"
	"github.com/dennisdiepolder/monti/insights/internal/filter"
	"github.com/dennisdiepolder/monti/insights/internal/kpi"
	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// defaultReducers are used when a summary request names none
var defaultReducers = []aggregator.Reducer{
	aggregator.Mean("avgSatisfaction", types.FieldSatisfactionScore),
	aggregator.Sum("totalRevenue", types.FieldRevenueImpact),
	aggregator.Mean("successRate", types.FieldSuccess),
}

// ViewHandler serves read-only computations over the filtered view. Every
// request recomputes from a fresh store snapshot.
type ViewHandler struct {
	logger zerolog.Logger
}

// NewViewHandler creates a new ViewHandler
func NewViewHandler(logger zerolog.Logger) *ViewHandler {
	return &ViewHandler{
		logger: logger.With().Str("component", "view_handler").Logger(),
	}
}

// summaryQuery is a parsed group/reduce/sort request
type summaryQuery struct {
	group    string
	key      aggregator.KeyFunc
	reducers []aggregator.Reducer
	sortBy   string
	desc     bool
}

func parseSummaryQuery(q url.Values) (summaryQuery, error) {
	sq := summaryQuery{group: q.Get("group")}
	if sq.group == "" {
		sq.group = string(types.FieldCustomerName)
	}

	var err error
	if sq.key, err = aggregator.KeyFor(sq.group); err != nil {
		return sq, err
	}

	if specs := q["reduce"]; len(specs) > 0 {
		if sq.reducers, err = aggregator.ParseReducers(specs); err != nil {
			return sq, err
		}
	} else {
		sq.reducers = defaultReducers
	}

	sq.sortBy = q.Get("sort")
	if sq.sortBy != "" {
		known := false
		for _, c := range aggregator.Columns(sq.reducers) {
			if c == sq.sortBy {
				known = true
				break
			}
		}
		if !known {
			return sq, fmt.Errorf("unknown sort column %q", sq.sortBy)
		}
	}
	if d := q.Get("desc"); d != "" {
		if sq.desc, err = strconv.ParseBool(d); err != nil {
			return sq, fmt.Errorf("desc: %w", err)
		}
	}
	return sq, nil
}

// run aggregates view and applies the requested sort. Without a sort the rows
// stay in first-appearance order.
func (sq summaryQuery) run(view []types.InteractionRecord) []types.SummaryRow {
	start := time.Now()
	rows := aggregator.AggregateBy(view, sq.key, sq.reducers)
	if sq.sortBy != "" {
		aggregator.SortRows(rows, sq.sortBy, sq.desc)
	}
	metrics.Get().RecordAggregation(time.Since(start), len(rows))
	return rows
}

// currentView filters one snapshot of the caller's store
func currentView(r *http.Request) ([]types.InteractionRecord, error) {
	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		return nil, err
	}
	start := time.Now()
	view := filter.View(sessionFrom(r).Store, criteria)
	metrics.Get().RecordView(time.Since(start), len(view))
	return view, nil
}

type summaryResponse struct {
	Group    string             `json:"group"`
	Columns  []string           `json:"columns"`
	Rows     []types.SummaryRow `json:"rows"`
	Warnings []alerts.Warning   `json:"warnings"`
}

// Summary groups the filtered view
// GET /api/view/summary?group=customerName&reduce=avg:mean:satisfactionScore&sort=avg&desc=true
func (h *ViewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sq, err := parseSummaryQuery(r.URL.Query())
	if err != nil {
		badRequest(w, "invalid summary request", err)
		return
	}
	view, err := currentView(r)
	if err != nil {
		badRequest(w, "invalid filter", err)
		return
	}

	rows := sq.run(view)
	writeJSON(w, http.StatusOK, summaryResponse{
		Group:    sq.group,
		Columns:  aggregator.Columns(sq.reducers),
		Rows:     rows,
		Warnings: nonNilWarnings(alerts.CheckRows(rows, sq.reducers)),
	})
}

type kpiResponse struct {
	KPIs     kpi.Summary      `json:"kpis"`
	Warnings []alerts.Warning `json:"warnings"`
}

// KPIs computes the dashboard metrics of the filtered view
// GET /api/view/kpis
func (h *ViewHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	view, err := currentView(r)
	if err != nil {
		badRequest(w, "invalid filter", err)
		return
	}

	summary := kpi.Compute(view)
	writeJSON(w, http.StatusOK, kpiResponse{
		KPIs:     summary,
		Warnings: nonNilWarnings(alerts.CheckKPIs(summary)),
	})
}

// Options lists the selectable filter values found in the whole store
// GET /api/view/options
func (h *ViewHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filter.OptionsFor(sessionFrom(r).Store.All()))
}

// Quality reports out-of-range values in the filtered view
// GET /api/view/quality
func (h *ViewHandler) Quality(w http.ResponseWriter, r *http.Request) {
	view, err := currentView(r)
	if err != nil {
		badRequest(w, "invalid filter", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records":  len(view),
		"warnings": nonNilWarnings(alerts.CheckRecords(view)),
	})
}

func nonNilWarnings(ws []alerts.Warning) []alerts.Warning {
	if ws == nil {
		return []alerts.Warning{}
	}
	return ws
}
