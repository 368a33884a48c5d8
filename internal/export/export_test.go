package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/ingestion"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

func sampleRecords() []types.InteractionRecord {
	return []types.InteractionRecord{
		{
			ID: "A2", CustomerName: "Bob", AgentName: "Flo",
			OccurredAt: time.Date(2025, 7, 5, 8, 0, 0, 0, time.UTC),
			Category:   "support", Outcome: "escalated", Success: false,
			Extra: map[string]string{"region": "south"},
		},
		{
			ID: "A1", CustomerName: "Alice", AgentName: "Ed",
			OccurredAt:      time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
			DurationSeconds: 300, Category: "billing", Outcome: "resolved", Tier: "gold",
			Success: true, SatisfactionScore: types.Float(9), RevenueImpact: 5000,
			Summary: "asked about plan, upgraded",
		},
	}
}

func TestWriteRecordsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,customerName,agentName,occurredAt") || !strings.HasSuffix(lines[0], ",keywordTags,region") {
		t.Errorf("unexpected header %s", lines[0])
	}
	// order is kept as given
	if !strings.HasPrefix(lines[1], "A2,Bob,Flo,2025-07-05T08:00:00Z") {
		t.Errorf("unexpected first row %s", lines[1])
	}
	if !strings.Contains(lines[2], `"asked about plan, upgraded"`) {
		t.Errorf("expected quoted summary, got %s", lines[2])
	}
	if strings.Contains(buf.String(), types.NotAvailable) {
		t.Error("record export must leave absent values blank")
	}
}

func TestRecordsCSVCanBeReimported(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := ingestion.ParseCSV(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rejected) != 0 {
		t.Fatalf("expected no rejected rows, got %v", res.Rejected)
	}
	got := res.Records[1]
	want := sampleRecords()[1]
	if got.ID != want.ID || !got.OccurredAt.Equal(want.OccurredAt) || got.RevenueImpact != want.RevenueImpact {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.SatisfactionScore == nil || *got.SatisfactionScore != 9 || !got.Success {
		t.Errorf("round trip lost satisfaction or success: %+v", got)
	}
	if res.Records[0].Extra["region"] != "south" {
		t.Errorf("expected extra column kept, got %v", res.Records[0].Extra)
	}
}

func TestWriteRecordsJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsJSON(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected [], got %s", buf.String())
	}
}

func TestWriteSummary(t *testing.T) {
	reducers := []aggregator.Reducer{aggregator.Mean("avgSat", types.FieldSatisfactionScore)}
	rows := []types.SummaryRow{
		{Key: "Bob", Count: 2, Values: map[string]types.Value{"avgSat": types.Missing()}},
		{Key: "Ann", Count: 1, Values: map[string]types.Value{"avgSat": types.Number(6.5)}},
	}

	var csvBuf bytes.Buffer
	if err := WriteSummaryCSV(&csvBuf, rows, reducers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "key,count,avgSat\nBob,2,N/A\nAnn,1,6.5\n"
	if csvBuf.String() != want {
		t.Errorf("expected %q, got %q", want, csvBuf.String())
	}

	var jsonBuf bytes.Buffer
	if err := WriteSummaryJSON(&jsonBuf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	values := decoded[0]["values"].(map[string]interface{})
	if v, ok := values["avgSat"]; !ok || v != nil {
		t.Errorf("expected avgSat null for Bob, got %v", v)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatCSV {
		t.Errorf("expected csv default, got %q %v", f, err)
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("expected xlsx to be rejected")
	}
	name := Filename("summary", FormatJSON, time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC))
	if name != "summary-20250701-093000.json" {
		t.Errorf("unexpected filename %s", name)
	}
}
