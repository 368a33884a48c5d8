package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/ingestion"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

const uploadCSV = `id,customer,agent,date,category,outcome,tier,success,satisfaction,revenue
U1,Alice,Ed,2025-07-01,billing,resolved,gold,yes,9,100
U2,Bob,Flo,2025-07-02,support,escalated,silver,no,4,0
U3,Alice,Flo,2025-07-03,billing,resolved,gold,yes,,250
U4,,Flo,2025-07-03,billing,resolved,gold,yes,8,10
`

func newRecord(id, customer, category string) types.InteractionRecord {
	return types.InteractionRecord{
		ID:           id,
		CustomerName: customer,
		AgentName:    "Ed",
		OccurredAt:   time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		Category:     category,
		Outcome:      "resolved",
	}
}

func TestCreateAndList(t *testing.T) {
	s := newTestServer(t, true)

	for _, r := range []types.InteractionRecord{
		newRecord("R1", "Alice", "billing"),
		newRecord("R2", "Bob", "support"),
	} {
		if rec := s.doJSON(t, http.MethodPost, "/api/records", "", r); rec.Code != http.StatusCreated {
			t.Fatalf("create %s: expected 201, got %d: %s", r.ID, rec.Code, rec.Body.String())
		}
	}

	var list listResponse
	decode(t, s.do(t, http.MethodGet, "/api/records?category=support", "", nil, ""), &list)
	if list.Count != 1 || list.Total != 2 {
		t.Fatalf("expected 1 of 2 records, got %d of %d", list.Count, list.Total)
	}
	if list.Records[0].ID != "R2" {
		t.Errorf("expected R2, got %s", list.Records[0].ID)
	}
	if list.Version != 2 {
		t.Errorf("expected version 2 after two adds, got %d", list.Version)
	}
}

func TestCreateGeneratesID(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.doJSON(t, http.MethodPost, "/api/records", "", newRecord("", "Alice", "billing"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created types.InteractionRecord
	decode(t, rec, &created)
	if created.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestCreateRejectsInvalidRecords(t *testing.T) {
	s := newTestServer(t, true)
	s.doJSON(t, http.MethodPost, "/api/records", "", newRecord("R1", "Alice", "billing"))

	tests := []struct {
		name     string
		body     interface{}
		wantCode string
		wantIDs  []string
	}{
		{"duplicate id", newRecord("R1", "Bob", "billing"), CodeValidationError, []string{"R1"}},
		{"missing customer", newRecord("R2", "", "billing"), CodeValidationError, []string{"R2"}},
		{"not json", "{{", CodeBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(t, http.MethodPost, "/api/records", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Error != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, resp.Error)
			}
			if len(resp.IDs) != len(tt.wantIDs) || (len(tt.wantIDs) > 0 && resp.IDs[0] != tt.wantIDs[0]) {
				t.Errorf("expected ids %v, got %v", tt.wantIDs, resp.IDs)
			}
		})
	}

	var list listResponse
	decode(t, s.do(t, http.MethodGet, "/api/records", "", nil, ""), &list)
	if list.Total != 1 {
		t.Errorf("expected rejected records to leave the store untouched, got %d", list.Total)
	}
}

func TestUpdateRecord(t *testing.T) {
	s := newTestServer(t, true)
	s.doJSON(t, http.MethodPost, "/api/records", "", newRecord("R1", "Alice", "billing"))

	rec := s.doJSON(t, http.MethodPatch, "/api/records/R1", "", map[string]interface{}{
		"category":          "support",
		"satisfactionScore": 7,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated types.InteractionRecord
	decode(t, rec, &updated)
	if updated.Category != "support" || updated.SatisfactionScore == nil || *updated.SatisfactionScore != 7 {
		t.Errorf("unexpected update result: %+v", updated)
	}
	if updated.CustomerName != "Alice" {
		t.Errorf("expected untouched fields to survive, got %q", updated.CustomerName)
	}

	rec = s.doJSON(t, http.MethodPatch, "/api/records/R1", "", map[string]interface{}{"unset": []string{"satisfactionScore"}})
	decode(t, rec, &updated)
	if updated.SatisfactionScore != nil {
		t.Errorf("expected satisfaction to be cleared, got %v", *updated.SatisfactionScore)
	}

	rec = s.doJSON(t, http.MethodPatch, "/api/records/nope", "", map[string]string{"category": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestDeleteRecords(t *testing.T) {
	s := newTestServer(t, true)
	for _, id := range []string{"R1", "R2", "R3"} {
		s.doJSON(t, http.MethodPost, "/api/records", "", newRecord(id, "Alice", "billing"))
	}

	var resp struct {
		Removed int    `json:"removed"`
		Version uint64 `json:"version"`
	}

	rec := s.do(t, http.MethodDelete, "/api/records/R1", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decode(t, rec, &resp)
	if resp.Removed != 1 {
		t.Errorf("expected 1 removed, got %d", resp.Removed)
	}

	decode(t, s.do(t, http.MethodDelete, "/api/records/R1", "", nil, ""), &resp)
	if resp.Removed != 0 {
		t.Errorf("expected deleting a missing id to remove nothing, got %d", resp.Removed)
	}

	decode(t, s.doJSON(t, http.MethodPost, "/api/records/delete", "", bulkDeleteRequest{IDs: []string{"R2", "R3", "R9"}}), &resp)
	if resp.Removed != 2 {
		t.Errorf("expected 2 removed by bulk delete, got %d", resp.Removed)
	}

	var list listResponse
	decode(t, s.do(t, http.MethodGet, "/api/records", "", nil, ""), &list)
	if list.Total != 0 {
		t.Errorf("expected empty store, got %d", list.Total)
	}
}

func TestReplaceAllAndDedupe(t *testing.T) {
	s := newTestServer(t, true)

	a := newRecord("R1", "Alice", "billing")
	b := newRecord("R2", "Alice", "billing")
	c := newRecord("R3", "Bob", "billing")
	rec := s.doJSON(t, http.MethodPut, "/api/records", "", []types.InteractionRecord{a, b, c})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/records/dedupe", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Removed []string `json:"removed"`
	}
	decode(t, rec, &resp)
	if len(resp.Removed) != 1 || resp.Removed[0] != "R2" {
		t.Errorf("expected R2 removed as a duplicate of R1, got %v", resp.Removed)
	}

	rec = s.doJSON(t, http.MethodPut, "/api/records", "", []types.InteractionRecord{a, a})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected duplicate ids in a replacement to be rejected, got %d", rec.Code)
	}
	var list listResponse
	decode(t, s.do(t, http.MethodGet, "/api/records", "", nil, ""), &list)
	if list.Total != 2 {
		t.Errorf("expected failed replacement to keep 2 records, got %d", list.Total)
	}
}

func TestUploadRawBody(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodPost, "/api/records/upload", "", strings.NewReader(uploadCSV), "text/csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report ingestion.Report
	decode(t, rec, &report)
	if report.Mode != ingestion.ModeReplace || report.Accepted != 3 {
		t.Errorf("expected 3 rows replaced, got %+v", report)
	}
	if len(report.Rejected) != 1 || report.Rejected[0].Line != 5 {
		t.Errorf("expected line 5 rejected, got %v", report.Rejected)
	}
}

func TestUploadMultipartAppend(t *testing.T) {
	s := newTestServer(t, true)
	s.doJSON(t, http.MethodPost, "/api/records", "", newRecord("R1", "Zed", "billing"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "interactions.csv")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	fw.Write([]byte(uploadCSV))
	mw.Close()

	rec := s.do(t, http.MethodPost, "/api/records/upload?mode=append", "", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var list listResponse
	decode(t, s.do(t, http.MethodGet, "/api/records", "", nil, ""), &list)
	if list.Total != 4 {
		t.Errorf("expected 1 existing + 3 appended records, got %d", list.Total)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
	}{
		{"bad mode", "/api/records/upload?mode=merge", uploadCSV, http.StatusBadRequest},
		{"empty body", "/api/records/upload", "", http.StatusBadRequest},
		{"no valid rows", "/api/records/upload", "id,customer\nX1,\n", http.StatusBadRequest},
		{"too large", "/api/records/upload", strings.Repeat("a,b,c\n", 1<<18), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true)
			rec := s.do(t, http.MethodPost, tt.target, "", strings.NewReader(tt.body), "text/csv")
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUploadAppendCollisionKeepsStore(t *testing.T) {
	s := newTestServer(t, true)
	s.doJSON(t, http.MethodPost, "/api/records", "", newRecord("U2", "Zed", "billing"))

	rec := s.do(t, http.MethodPost, "/api/records/upload?mode=append", "", strings.NewReader(uploadCSV), "text/csv")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp ErrorResponse
	decode(t, rec, &resp)
	if len(resp.IDs) != 1 || resp.IDs[0] != "U2" {
		t.Errorf("expected U2 reported as the colliding id, got %v", resp.IDs)
	}

	var list listResponse
	decode(t, s.do(t, http.MethodGet, "/api/records", "", nil, ""), &list)
	if list.Total != 1 {
		t.Errorf("expected the store to be untouched, got %d records", list.Total)
	}
}
