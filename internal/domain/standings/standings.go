// Package standings extracts the scoring entries from a completed
// bracket's participant list.
package standings

import (
	"fmt"
	"sort"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/points"
)

const defaultLimit = 7

// Extractor turns a bracket's participant list into an ordered set of
// scoring entries. It is a pure function of its inputs: the placement
// limit, the exclusion list, and the forced entries are all supplied by
// the caller, never read from global state.
type Extractor struct {
	table      points.Table
	limit      int
	exclusions []string
	forced     []model.ForcedEntry
	warn       func(msg string)
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithTable sets the placement-to-points table.
func WithTable(t points.Table) Option {
	return func(e *Extractor) {
		if t != nil {
			e.table = t
		}
	}
}

// WithLimit sets the worst placement still considered for scoring.
func WithLimit(limit int) Option {
	return func(e *Extractor) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// WithExclusions sets handles to drop from the fetched participants.
// Matching is case-sensitive and exact; see the resolver for the
// deliberately different case handling on identity lookups.
func WithExclusions(handles []string) Option {
	return func(e *Extractor) {
		e.exclusions = handles
	}
}

// WithForced appends operator-supplied entries scored independently of
// the fetched participant list.
func WithForced(entries []model.ForcedEntry) Option {
	return func(e *Extractor) {
		e.forced = entries
	}
}

// WithWarnFunc sets the sink for non-fatal extraction warnings.
func WithWarnFunc(fn func(msg string)) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.warn = fn
		}
	}
}

// New constructs an Extractor with the default table and limit.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		table: points.Default(),
		limit: defaultLimit,
		warn:  func(string) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces the scoring entries for a completed tournament,
// sorted ascending by placement (best first). Ties keep their input
// order; the final leaderboard ordering is the merge engine's job.
func (e *Extractor) Extract(t model.Tournament, participants []model.Participant) ([]model.ScoringEntry, error) {
	if !t.Complete() {
		return nil, fmt.Errorf("%w: state is %q", ErrNotComplete, t.State)
	}

	entries := make([]model.ScoringEntry, 0, len(participants)+len(e.forced))
	for _, p := range participants {
		if p.Handle == "" || p.Placement <= 0 || p.Placement > e.limit {
			continue
		}
		pts, ok := e.table.Score(p.Placement)
		if !ok {
			// Placement inside the limit but absent from the table,
			// e.g. 6th place under the default scale.
			continue
		}
		if e.excluded(p.Handle) {
			continue
		}
		entries = append(entries, model.ScoringEntry{
			Handle:    p.Handle,
			Placement: p.Placement,
			Points:    pts,
		})
	}

	for _, f := range e.forced {
		pts, ok := e.table.Score(f.Placement)
		if !ok {
			e.warn(fmt.Sprintf("forced entry %q has unscorable placement %d, dropping", f.Handle, f.Placement))
			continue
		}
		entries = append(entries, model.ScoringEntry{
			Handle:    f.Handle,
			Placement: f.Placement,
			Points:    pts,
			Forced:    true,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Placement < entries[j].Placement
	})
	return entries, nil
}

// excluded reports whether handle is on the exclusion list.
// Exact match only: "Foo" does not exclude "foo".
func (e *Extractor) excluded(handle string) bool {
	for _, x := range e.exclusions {
		if x == handle {
			return true
		}
	}
	return false
}
