package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Record mutations
	RecordsAddedTotal   int64
	RecordsUpdatedTotal int64
	RecordsRemovedTotal int64
	DuplicatesRemoved   int64
	MutationErrorsTotal int64

	// Uploads
	UploadsTotal       int64
	UploadErrorsTotal  int64
	RowsAcceptedTotal  int64
	RowsRejectedTotal  int64
	lastUploadDuration time.Duration

	// Read side
	ViewsComputedTotal  int64
	AggregationsTotal   int64
	ExportsTotal        map[string]int64 // format -> count
	lastViewDuration    time.Duration
	lastViewRecordCount int
	lastAggregation     time.Duration
	lastAggregationRows int

	// Sessions
	SessionsCreatedTotal int64
	SessionsExpiredTotal int64
	activeSessions       int

	// HTTP metrics
	httpRequestsTotal map[string]map[int]int64 // endpoint -> status -> count

	startTime time.Time
}

var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates an independent metrics set. Most callers want Get.
func New() *Metrics {
	return &Metrics{
		ExportsTotal:      make(map[string]int64),
		httpRequestsTotal: make(map[string]map[int]int64),
		startTime:         time.Now(),
	}
}

// RecordAdded counts records added through single-record entry
func (m *Metrics) RecordAdded() {
	m.mu.Lock()
	m.RecordsAddedTotal++
	m.mu.Unlock()
}

// RecordUpdated counts a successful patch
func (m *Metrics) RecordUpdated() {
	m.mu.Lock()
	m.RecordsUpdatedTotal++
	m.mu.Unlock()
}

// RecordRemoved counts records removed by id
func (m *Metrics) RecordRemoved(n int) {
	m.mu.Lock()
	m.RecordsRemovedTotal += int64(n)
	m.mu.Unlock()
}

// RecordDuplicatesRemoved counts records dropped by de-duplication
func (m *Metrics) RecordDuplicatesRemoved(n int) {
	m.mu.Lock()
	m.DuplicatesRemoved += int64(n)
	m.mu.Unlock()
}

// RecordMutationError counts a rejected add, update or replace
func (m *Metrics) RecordMutationError() {
	m.mu.Lock()
	m.MutationErrorsTotal++
	m.mu.Unlock()
}

// RecordUpload records a completed upload
func (m *Metrics) RecordUpload(duration time.Duration, accepted, rejected int) {
	m.mu.Lock()
	m.UploadsTotal++
	m.RowsAcceptedTotal += int64(accepted)
	m.RowsRejectedTotal += int64(rejected)
	m.lastUploadDuration = duration
	m.mu.Unlock()
}

// RecordUploadError counts an upload that could not be applied
func (m *Metrics) RecordUploadError() {
	m.mu.Lock()
	m.UploadErrorsTotal++
	m.mu.Unlock()
}

// RecordView records a filtered view computation
func (m *Metrics) RecordView(duration time.Duration, records int) {
	m.mu.Lock()
	m.ViewsComputedTotal++
	m.lastViewDuration = duration
	m.lastViewRecordCount = records
	m.mu.Unlock()
}

// RecordAggregation records a grouped summary computation
func (m *Metrics) RecordAggregation(duration time.Duration, rows int) {
	m.mu.Lock()
	m.AggregationsTotal++
	m.lastAggregation = duration
	m.lastAggregationRows = rows
	m.mu.Unlock()
}

// RecordExport counts an export by format
func (m *Metrics) RecordExport(format string) {
	m.mu.Lock()
	m.ExportsTotal[format]++
	m.mu.Unlock()
}

// RecordSessionCreated counts a new session
func (m *Metrics) RecordSessionCreated() {
	m.mu.Lock()
	m.SessionsCreatedTotal++
	m.mu.Unlock()
}

// RecordSessionsExpired counts sessions dropped by the sweeper
func (m *Metrics) RecordSessionsExpired(n int) {
	m.mu.Lock()
	m.SessionsExpiredTotal += int64(n)
	m.mu.Unlock()
}

// SetActiveSessions sets the number of live sessions
func (m *Metrics) SetActiveSessions(n int) {
	m.mu.Lock()
	m.activeSessions = n
	m.mu.Unlock()
}

// GetActiveSessions returns the number of live sessions
func (m *Metrics) GetActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeSessions
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		write("insights_uptime_seconds", time.Since(m.startTime).Seconds())

		write("insights_records_added_total", m.RecordsAddedTotal)
		write("insights_records_updated_total", m.RecordsUpdatedTotal)
		write("insights_records_removed_total", m.RecordsRemovedTotal)
		write("insights_duplicates_removed_total", m.DuplicatesRemoved)
		write("insights_mutation_errors_total", m.MutationErrorsTotal)

		write("insights_uploads_total", m.UploadsTotal)
		write("insights_upload_errors_total", m.UploadErrorsTotal)
		write("insights_rows_accepted_total", m.RowsAcceptedTotal)
		write("insights_rows_rejected_total", m.RowsRejectedTotal)
		write("insights_upload_duration_seconds", m.lastUploadDuration.Seconds())

		write("insights_views_computed_total", m.ViewsComputedTotal)
		write("insights_view_duration_seconds", m.lastViewDuration.Seconds())
		write("insights_view_records", m.lastViewRecordCount)
		write("insights_aggregations_total", m.AggregationsTotal)
		write("insights_aggregation_duration_seconds", m.lastAggregation.Seconds())
		write("insights_aggregation_rows", m.lastAggregationRows)

		// map iteration order is random; keep the output stable for scrapers and tests
		formats := make([]string, 0, len(m.ExportsTotal))
		for f := range m.ExportsTotal {
			formats = append(formats, f)
		}
		sort.Strings(formats)
		for _, f := range formats {
			write("insights_exports_total", m.ExportsTotal[f], "format", f)
		}

		write("insights_sessions_created_total", m.SessionsCreatedTotal)
		write("insights_sessions_expired_total", m.SessionsExpiredTotal)
		write("insights_sessions_active", m.activeSessions)

		endpoints := make([]string, 0, len(m.httpRequestsTotal))
		for e := range m.httpRequestsTotal {
			endpoints = append(endpoints, e)
		}
		sort.Strings(endpoints)
		for _, endpoint := range endpoints {
			statuses := make([]int, 0, len(m.httpRequestsTotal[endpoint]))
			for s := range m.httpRequestsTotal[endpoint] {
				statuses = append(statuses, s)
			}
			sort.Ints(statuses)
			for _, status := range statuses {
				write("insights_http_requests_total", m.httpRequestsTotal[endpoint][status], "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
