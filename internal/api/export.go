package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/export"
	"github.com/dennisdiepolder/monti/insights/internal/metrics"
)

// ExportHandler streams the filtered view or its summary as a download
type ExportHandler struct {
	logger zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		logger: logger.With().Str("component", "export_handler").Logger(),
	}
}

func attach(w http.ResponseWriter, prefix string, format export.Format) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(prefix, format, time.Now())+`"`)
}

// Records exports the filtered view
// GET /api/export/records?format=csv|json
func (h *ExportHandler) Records(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, "invalid format", err)
		return
	}
	view, err := currentView(r)
	if err != nil {
		badRequest(w, "invalid filter", err)
		return
	}

	attach(w, "records", format)
	if format == export.FormatJSON {
		err = export.WriteRecordsJSON(w, view)
	} else {
		err = export.WriteRecordsCSV(w, view)
	}
	if err != nil {
		// headers are gone already; all we can do is log
		h.logger.Error().Err(err).Msg("record export failed")
		return
	}
	metrics.Get().RecordExport(string(format))
}

// Summary exports the grouped summary of the filtered view
// GET /api/export/summary?format=csv|json&group=&reduce=&sort=&desc=
func (h *ExportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, "invalid format", err)
		return
	}
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
	attach(w, "summary-"+sq.group, format)
	if format == export.FormatJSON {
		err = export.WriteSummaryJSON(w, rows)
	} else {
		err = export.WriteSummaryCSV(w, rows, sq.reducers)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("summary export failed")
		return
	}
	metrics.Get().RecordExport(string(format))
}
