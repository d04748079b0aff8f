// Package feed keeps the locally cached page set of captured requests in
// step with the backend, push notifications and user mutations.
package feed

import (
	"slices"

	"github.com/sadopc/hookscope/internal/capture"
)

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 100

// Cursor describes pagination progress. The next page starts at Loaded.
type Cursor struct {
	PageSize int
	Loaded   int
}

// Store is the ordered in-memory cache of loaded records. It is not safe
// for concurrent use; the Controller is its only owner.
type Store struct {
	pageSize int
	records  []capture.Record
}

// NewStore creates an empty store. A non-positive pageSize falls back to
// DefaultPageSize.
func NewStore(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{pageSize: pageSize}
}

// Reset replaces the cache with records.
func (s *Store) Reset(records []capture.Record) {
	s.records = slices.Clone(records)
	if s.records == nil {
		s.records = []capture.Record{}
	}
}

// Append extends the cache with records in order. Records whose id is
// already cached are kept; the return value counts them.
func (s *Store) Append(records []capture.Record) int {
	if len(records) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		seen[r.ID] = struct{}{}
	}
	dups := 0
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			dups++
		}
		seen[r.ID] = struct{}{}
	}
	s.records = append(s.records, records...)
	return dups
}

// RemoveByID removes the first record with the given id and reports
// whether one was found.
func (s *Store) RemoveByID(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.records = slices.Delete(s.records, i, i+1)
	return true
}

// Clear empties the cache.
func (s *Store) Clear() {
	s.records = []capture.Record{}
}

// Snapshot returns a copy of the cached records in display order.
func (s *Store) Snapshot() []capture.Record {
	out := make([]capture.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of cached records.
func (s *Store) Len() int { return len(s.records) }

// Find returns the cached record with the given id.
func (s *Store) Find(id string) (capture.Record, bool) {
	if i := s.index(id); i >= 0 {
		return s.records[i], true
	}
	return capture.Record{}, false
}

// Cursor returns the pagination cursor derived from the cache length.
func (s *Store) Cursor() Cursor {
	return Cursor{PageSize: s.pageSize, Loaded: len(s.records)}
}

// PageSize returns the configured page size.
func (s *Store) PageSize() int { return s.pageSize }

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.records, func(r capture.Record) bool { return r.ID == id })
}
