package records

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

func newRecord(id, customer string) types.InteractionRecord {
	return types.InteractionRecord{
		ID:           id,
		CustomerName: customer,
		AgentName:    "agent-1",
		OccurredAt:   time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC),
		Category:     "billing",
		Outcome:      "resolved",
		Tier:         "gold",
	}
}

func ids(records []types.InteractionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestStoreAddPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		if err := s.Add(newRecord(id, "Bob")); err != nil {
			t.Fatalf("unexpected error adding %s: %v", id, err)
		}
	}

	got := ids(s.All())
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestStoreAddValidation(t *testing.T) {
	tests := []struct {
		name   string
		record types.InteractionRecord
	}{
		{"missing id", newRecord("", "Bob")},
		{"missing customer", newRecord("a", "")},
		{"missing date", func() types.InteractionRecord {
			r := newRecord("a", "Bob")
			r.OccurredAt = time.Time{}
			return r
		}()},
		{"missing category", func() types.InteractionRecord {
			r := newRecord("a", "Bob")
			r.Category = ""
			return r
		}()},
		{"negative revenue", func() types.InteractionRecord {
			r := newRecord("a", "Bob")
			r.RevenueImpact = -1
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			err := s.Add(tt.record)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if s.Len() != 0 {
				t.Errorf("expected empty store, got %d records", s.Len())
			}
		})
	}
}

func TestStoreAddDuplicateID(t *testing.T) {
	s := NewStore()
	if err := s.Add(newRecord("a", "Bob")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.Add(newRecord("a", "Ann"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(verr.IDs, []string{"a"}) {
		t.Errorf("expected offending id a, got %v", verr.IDs)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 record, got %d", s.Len())
	}
}

func TestStoreOutOfRangeSatisfactionIsStored(t *testing.T) {
	s := NewStore()
	r := newRecord("a", "Bob")
	r.SatisfactionScore = types.Float(14)
	if err := s.Add(r); err != nil {
		t.Fatalf("expected out-of-range score to be stored, got %v", err)
	}
	got, _ := s.Get("a")
	if *got.SatisfactionScore != 14 {
		t.Errorf("expected score kept as 14, got %v", *got.SatisfactionScore)
	}
}

func TestStoreRemoveByIDsIdempotent(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Add(newRecord(id, "Bob"))
	}

	removed := s.RemoveByIDs([]string{"b", "d", "missing"})
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	once := s.All()

	removed = s.RemoveByIDs([]string{"b", "d", "missing"})
	if removed != 0 {
		t.Errorf("expected 0 removed on second call, got %d", removed)
	}
	if !reflect.DeepEqual(once, s.All()) {
		t.Error("second removal changed the store")
	}
	if !reflect.DeepEqual(ids(once), []string{"a", "c"}) {
		t.Errorf("expected [a c], got %v", ids(once))
	}
}

func TestStoreAddRemoveRoundTrip(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"a", "b", "c"} {
		s.Add(newRecord(id, "Bob"))
	}
	before := s.All()

	if err := s.Add(newRecord("x", "Ann")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.RemoveByIDs([]string{"x"})

	if !reflect.DeepEqual(before, s.All()) {
		t.Errorf("expected store restored, got %v", ids(s.All()))
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	r := newRecord("a", "Bob")
	r.SatisfactionScore = types.Float(7)
	r.Transcript = "hello"
	s.Add(r)

	outcome := "escalated"
	updated, err := s.Update("a", types.RecordPatch{
		Outcome: &outcome,
		Unset:   []types.Field{types.FieldSatisfactionScore},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Outcome != "escalated" {
		t.Errorf("expected outcome escalated, got %s", updated.Outcome)
	}
	if updated.SatisfactionScore != nil {
		t.Errorf("expected satisfaction cleared, got %v", *updated.SatisfactionScore)
	}
	if updated.Transcript != "hello" || updated.CustomerName != "Bob" {
		t.Error("expected unspecified fields untouched")
	}

	stored, _ := s.Get("a")
	if !reflect.DeepEqual(stored, updated) {
		t.Error("stored record differs from returned record")
	}
}

func TestStoreUpdateErrors(t *testing.T) {
	s := NewStore()
	s.Add(newRecord("a", "Bob"))

	_, err := s.Update("missing", types.RecordPatch{})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.ID != "missing" {
		t.Errorf("expected id missing, got %s", nf.ID)
	}

	empty := ""
	_, err = s.Update("a", types.RecordPatch{CustomerName: &empty})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError when clearing a required field, got %v", err)
	}

	_, err = s.Update("a", types.RecordPatch{Unset: []types.Field{types.FieldCategory}})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError when unsetting category, got %v", err)
	}

	got, _ := s.Get("a")
	if got.CustomerName != "Bob" || got.Category != "billing" {
		t.Error("failed update must leave the record untouched")
	}
}

func TestStoreReplaceAllRejectsDuplicates(t *testing.T) {
	s := NewStore()
	s.Add(newRecord("keep", "Bob"))

	err := s.ReplaceAll([]types.InteractionRecord{
		newRecord("a", "Bob"),
		newRecord("b", "Bob"),
		newRecord("a", "Ann"),
		newRecord("b", "Ann"),
		newRecord("a", "Cy"),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(verr.IDs, []string{"a", "b"}) {
		t.Errorf("expected offending ids [a b], got %v", verr.IDs)
	}
	if !reflect.DeepEqual(ids(s.All()), []string{"keep"}) {
		t.Error("rejected replacement must leave the store untouched")
	}
}

func TestStoreReplaceAll(t *testing.T) {
	s := NewStore()
	s.Add(newRecord("old", "Bob"))

	if err := s.ReplaceAll([]types.InteractionRecord{newRecord("x", "Ann"), newRecord("y", "Cy")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids(s.All()), []string{"x", "y"}) {
		t.Errorf("expected [x y], got %v", ids(s.All()))
	}
	if _, err := s.Get("old"); err == nil {
		t.Error("expected old record gone")
	}
}

func TestStoreAllIsDefensiveCopy(t *testing.T) {
	s := NewStore()
	r := newRecord("a", "Bob")
	r.SatisfactionScore = types.Float(8)
	r.Extra = map[string]string{"region": "north"}
	s.Add(r)

	snap := s.All()
	snap[0].CustomerName = "Mallory"
	*snap[0].SatisfactionScore = 1
	snap[0].Extra["region"] = "south"

	got, _ := s.Get("a")
	if got.CustomerName != "Bob" {
		t.Errorf("expected name Bob, got %s", got.CustomerName)
	}
	if *got.SatisfactionScore != 8 {
		t.Errorf("expected score 8, got %v", *got.SatisfactionScore)
	}
	if got.Extra["region"] != "north" {
		t.Errorf("expected region north, got %s", got.Extra["region"])
	}
}

func TestStoreRemoveDuplicates(t *testing.T) {
	s := NewStore()
	s.Add(newRecord("a", "Bob"))
	s.Add(newRecord("b", "Ann"))
	s.Add(newRecord("c", "Bob"))
	s.Add(newRecord("d", "Bob"))

	removed, err := s.RemoveDuplicates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"c", "d"}) {
		t.Errorf("expected [c d] removed, got %v", removed)
	}
	if !reflect.DeepEqual(ids(s.All()), []string{"a", "b"}) {
		t.Errorf("expected [a b] kept, got %v", ids(s.All()))
	}
}

func TestStoreVersion(t *testing.T) {
	s := NewStore()
	if s.Version() != 0 {
		t.Fatalf("expected version 0, got %d", s.Version())
	}
	s.Add(newRecord("a", "Bob"))
	s.RemoveByIDs([]string{"missing"})
	if s.Version() != 1 {
		t.Errorf("expected no-op removal to keep version 1, got %d", s.Version())
	}
}

func TestStoreConcurrentSnapshots(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := string(rune('a'+worker)) + "-" + time.Duration(j).String()
				s.Add(newRecord(id, "Bob"))
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			snap := s.All()
			seen := make(map[string]bool, len(snap))
			for _, r := range snap {
				if seen[r.ID] {
					t.Errorf("duplicate id %s in snapshot", r.ID)
					return
				}
				seen[r.ID] = true
			}
		}
	}()

	wg.Wait()
	if s.Len() != 200 {
		t.Errorf("expected 200 records, got %d", s.Len())
	}
}

func TestStoreSnapshotMatchesVersion(t *testing.T) {
	s := NewStore()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for j := 0; j < 200; j++ {
			s.Add(newRecord("r-"+time.Duration(j).String(), "Bob"))
		}
	}()

	// every Add bumps the version once and adds one record
	for {
		select {
		case <-done:
			snap, version := s.Snapshot()
			if len(snap) != 200 || version != 200 {
				t.Errorf("expected 200 records at version 200, got %d at %d", len(snap), version)
			}
			return
		default:
			snap, version := s.Snapshot()
			if uint64(len(snap)) != version {
				t.Fatalf("snapshot of %d records reported version %d", len(snap), version)
			}
		}
	}
}

func TestStoreAppendIsAllOrNothing(t *testing.T) {
	s := NewStore()
	s.Add(newRecord("a", "Bob"))

	err := s.Append([]types.InteractionRecord{newRecord("b", "Ann"), newRecord("a", "Cy")})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(verr.IDs, []string{"a"}) {
		t.Errorf("expected offending id a, got %v", verr.IDs)
	}
	if s.Len() != 1 {
		t.Errorf("expected failed append to add nothing, got %d records", s.Len())
	}

	if err := s.Append([]types.InteractionRecord{newRecord("b", "Ann"), newRecord("c", "Cy")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids(s.All()), []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", ids(s.All()))
	}
}
