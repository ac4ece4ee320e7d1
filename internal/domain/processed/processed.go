// Package processed tracks tournaments whose results have already been
// merged into a ledger, guarding against double-counting a bracket.
package processed

import "sort"

// Set records processed tournament ids. It grows monotonically: ids are
// recorded after a successful merge and flush, never removed by the
// pipeline. The zero value is not usable; construct with New.
type Set struct {
	seen  map[int64]struct{}
	dirty bool
}

// New builds a Set from previously persisted ids.
func New(ids []int64) *Set {
	s := &Set{seen: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
	return s
}

// Seen reports whether id has already been processed.
func (s *Set) Seen(id int64) bool {
	_, ok := s.seen[id]
	return ok
}

// Record marks id as processed. Recording an already-seen id is a no-op.
func (s *Set) Record(id int64) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.dirty = true
}

// Dirty reports whether the set has changed since construction and
// needs a flush.
func (s *Set) Dirty() bool {
	return s.dirty
}

// IDs returns the recorded ids in ascending order, ready to persist.
func (s *Set) IDs() []int64 {
	ids := make([]int64, 0, len(s.seen))
	for id := range s.seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of recorded ids.
func (s *Set) Len() int {
	return len(s.seen)
}
