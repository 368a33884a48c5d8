package records

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Store holds the interaction records of one session.
//
// The backing slice is copy-on-write: every mutation builds a new slice and
// swaps it in under the lock, so a reader that took a snapshot never sees a
// half-applied change.
type Store struct {
	mu      sync.RWMutex
	records []types.InteractionRecord
	index   map[string]int // id -> position in records
	version uint64
}

// NewStore creates an empty record store
func NewStore() *Store {
	return &Store{
		records: make([]types.InteractionRecord, 0),
		index:   make(map[string]int),
	}
}

// Add appends a record. It fails if the id is taken or required fields are missing.
func (s *Store) Add(record types.InteractionRecord) error {
	if err := Validate(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[record.ID]; exists {
		return &ValidationError{Reason: "duplicate id", IDs: []string{record.ID}}
	}

	next := make([]types.InteractionRecord, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, record.Clone())

	s.swap(next)
	return nil
}

// Append adds a batch of records in one step. Nothing is added if any record
// is invalid or its id is already taken.
func (s *Store) Append(batch []types.InteractionRecord) error {
	for _, r := range batch {
		if err := Validate(r); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(batch))
	var dupes []string
	for _, r := range batch {
		_, inStore := s.index[r.ID]
		_, inBatch := seen[r.ID]
		if (inStore || inBatch) && !slices.Contains(dupes, r.ID) {
			dupes = append(dupes, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	if len(dupes) > 0 {
		return &ValidationError{Reason: "duplicate id", IDs: dupes}
	}

	next := make([]types.InteractionRecord, len(s.records), len(s.records)+len(batch))
	copy(next, s.records)
	for _, r := range batch {
		next = append(next, r.Clone())
	}
	s.swap(next)
	return nil
}

// RemoveByIDs removes every record whose id is in ids. Unknown ids are
// ignored. It returns the number of records removed.
func (s *Store) RemoveByIDs(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]types.InteractionRecord, 0, len(s.records))
	for _, r := range s.records {
		if _, ok := drop[r.ID]; ok {
			continue
		}
		next = append(next, r)
	}

	removed := len(s.records) - len(next)
	if removed > 0 {
		s.swap(next)
	}
	return removed
}

// Update merges patch into the record with the given id and returns the result
func (s *Store) Update(id string, patch types.RecordPatch) (types.InteractionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return types.InteractionRecord{}, &NotFoundError{ID: id}
	}

	updated, err := patch.Apply(s.records[pos])
	if err != nil {
		return types.InteractionRecord{}, &ValidationError{Reason: err.Error(), IDs: []string{id}}
	}
	if err := Validate(updated); err != nil {
		return types.InteractionRecord{}, err
	}

	next := slices.Clone(s.records)
	next[pos] = updated
	s.swap(next)

	return updated.Clone(), nil
}

// ReplaceAll swaps in a new record set wholesale. Duplicate ids within the
// incoming set are rejected and listed in the error.
func (s *Store) ReplaceAll(records []types.InteractionRecord) error {
	seen := make(map[string]struct{}, len(records))
	var dupes []string
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			if !slices.Contains(dupes, r.ID) {
				dupes = append(dupes, r.ID)
			}
			continue
		}
		seen[r.ID] = struct{}{}
	}
	if len(dupes) > 0 {
		return &ValidationError{Reason: "duplicate ids in replacement set", IDs: dupes}
	}

	next := make([]types.InteractionRecord, 0, len(records))
	for _, r := range records {
		if err := Validate(r); err != nil {
			return err
		}
		next = append(next, r.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swap(next)
	return nil
}

// RemoveDuplicates drops records whose content, ignoring the id, matches an
// earlier record. The first occurrence is kept. It returns the removed ids.
func (s *Store) RemoveDuplicates() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.records))
	next := make([]types.InteractionRecord, 0, len(s.records))
	var removed []string

	for _, r := range s.records {
		key, err := contentKey(r)
		if err != nil {
			return nil, fmt.Errorf("fingerprint record %s: %w", r.ID, err)
		}
		if _, dup := seen[key]; dup {
			removed = append(removed, r.ID)
			continue
		}
		seen[key] = struct{}{}
		next = append(next, r)
	}

	if len(removed) > 0 {
		s.swap(next)
	}
	return removed, nil
}

// All returns a deep copy of the records in insertion order
func (s *Store) All() []types.InteractionRecord {
	out, _ := s.Snapshot()
	return out
}

// Snapshot returns a deep copy of the records together with the version they
// belong to
func (s *Store) Snapshot() ([]types.InteractionRecord, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.InteractionRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, s.version
}

// Get returns a copy of a single record
func (s *Store) Get(id string) (types.InteractionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return types.InteractionRecord{}, &NotFoundError{ID: id}
	}
	return s.records[pos].Clone(), nil
}

// Len returns the number of stored records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases by one on every applied mutation
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// swap installs next as the current record set. Caller holds the write lock.
func (s *Store) swap(next []types.InteractionRecord) {
	index := make(map[string]int, len(next))
	for i, r := range next {
		index[r.ID] = i
	}
	s.records = next
	s.index = index
	s.version++
}

func contentKey(r types.InteractionRecord) (string, error) {
	r.ID = ""
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
