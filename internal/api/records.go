package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/filter"
	"github.com/dennisdiepolder/monti/insights/internal/ingestion"
	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/records"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// RecordsHandler serves the record store of the caller's session
type RecordsHandler struct {
	processor      *ingestion.Processor
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewRecordsHandler creates a new RecordsHandler
func NewRecordsHandler(processor *ingestion.Processor, maxUploadBytes int64, logger zerolog.Logger) *RecordsHandler {
	return &RecordsHandler{
		processor:      processor,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("component", "records_handler").Logger(),
	}
}

type listResponse struct {
	Records []types.InteractionRecord `json:"records"`
	Count   int                       `json:"count"`
	Total   int                       `json:"total"`
	Version uint64                    `json:"version"`
}

// List returns the filtered view
// GET /api/records?from=&to=&category=&tier=&outcome=&satMin=&satMax=&revMin=&revMax=&q=
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		badRequest(w, "invalid filter", err)
		return
	}

	store := sessionFrom(r).Store
	start := time.Now()
	all, version := store.Snapshot()
	view := filter.Apply(all, criteria)
	metrics.Get().RecordView(time.Since(start), len(view))

	writeJSON(w, http.StatusOK, listResponse{
		Records: view,
		Count:   len(view),
		Total:   len(all),
		Version: version,
	})
}

// Create adds a single record. A missing id is generated.
// POST /api/records
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec types.InteractionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		badRequest(w, "invalid request body", err)
		return
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}

	if err := sessionFrom(r).Store.Add(rec); err != nil {
		metrics.Get().RecordMutationError()
		respondError(w, r, h.logger, err)
		return
	}

	metrics.Get().RecordAdded()
	h.logger.Debug().Str("record_id", rec.ID).Msg("record added")
	writeJSON(w, http.StatusCreated, rec)
}

// ReplaceAll swaps the whole record set
// PUT /api/records
func (h *RecordsHandler) ReplaceAll(w http.ResponseWriter, r *http.Request) {
	var batch []types.InteractionRecord
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		badRequest(w, "invalid request body", err)
		return
	}

	store := sessionFrom(r).Store
	if err := store.ReplaceAll(batch); err != nil {
		metrics.Get().RecordMutationError()
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info().Int("records", len(batch)).Msg("record set replaced")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(batch),
		"version": store.Version(),
	})
}

// Update applies a partial update to one record
// PATCH /api/records/{id}
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch types.RecordPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid request body", err)
		return
	}

	updated, err := sessionFrom(r).Store.Update(id, patch)
	if err != nil {
		metrics.Get().RecordMutationError()
		respondError(w, r, h.logger, err)
		return
	}

	metrics.Get().RecordUpdated()
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes one record. Unknown ids are not an error.
// DELETE /api/records/{id}
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.remove(w, []string{chi.URLParam(r, "id")}, sessionFrom(r).Store)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDelete removes every listed record
// POST /api/records/delete
func (h *RecordsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body", err)
		return
	}
	h.remove(w, req.IDs, sessionFrom(r).Store)
}

func (h *RecordsHandler) remove(w http.ResponseWriter, ids []string, store *records.Store) {
	removed := store.RemoveByIDs(ids)
	metrics.Get().RecordRemoved(removed)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"version": store.Version(),
	})
}

// Dedupe drops records whose content repeats an earlier record
// POST /api/records/dedupe
func (h *RecordsHandler) Dedupe(w http.ResponseWriter, r *http.Request) {
	store := sessionFrom(r).Store
	removed, err := store.RemoveDuplicates()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if removed == nil {
		removed = []string{}
	}

	metrics.Get().RecordDuplicatesRemoved(len(removed))
	h.logger.Info().Int("removed", len(removed)).Msg("duplicates removed")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"version": store.Version(),
	})
}

// Upload imports a CSV file, either as multipart field "file" or as the raw body
// POST /api/records/upload?mode=replace|append
func (h *RecordsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mode, ok := ingestion.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		badRequest(w, "mode must be replace or append", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(w, r, h.logger, err)
			} else {
				badRequest(w, "missing file field", err)
			}
			return
		}
		defer file.Close()
		body = file
	}

	report, err := h.processor.Load(body, sessionFrom(r).Store, mode)
	switch {
	case errors.Is(err, ingestion.ErrNoHeader):
		badRequest(w, "empty upload", err)
		return
	case errors.Is(err, ingestion.ErrMalformed):
		badRequest(w, "unreadable csv", err)
		return
	case err != nil:
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
