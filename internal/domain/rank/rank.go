// Package rank merges scoring batches into a ledger and computes the
// change in leaderboard position against the previous snapshot.
package rank

import (
	"sort"

	"github.com/okian/podium/internal/domain/model"
)

// Entry is one leaderboard row after a merge, annotated with the signed
// change in position versus the pre-merge snapshot. Change is the old
// zero-based rank minus the new one, so positive means the identity
// moved up. An identity with no prior record enters at position i with
// Change == i, the number of positions gained from off the board.
type Entry struct {
	Identity   string
	Score      int
	Change     int
	NewEntrant bool
	// Unverified marks rows whose identity resolution failed this run;
	// the ledger key is the bracket handle, not a confirmed identity.
	Unverified bool
}

// Merge folds a batch of resolved scoring entries into the ledger and
// returns the new ordering with rank deltas. The ledger map is mutated
// in place; callers decide whether it gets flushed.
//
// Snapshots order by score descending with ties broken by identity
// ascending. The tie-break is deterministic so repeated runs over the
// same ledger render identical reports.
func Merge(ledger map[string]int, batch []model.ResolvedEntry) []Entry {
	oldRank := make(map[string]int, len(ledger))
	for i, id := range ordered(ledger) {
		oldRank[id] = i
	}

	unverified := make(map[string]bool)
	for _, e := range batch {
		ledger[e.Identity] += e.Points
		if !e.Verified {
			unverified[e.Identity] = true
		}
	}

	ids := ordered(ledger)
	result := make([]Entry, len(ids))
	for i, id := range ids {
		entry := Entry{
			Identity:   id,
			Score:      ledger[id],
			Unverified: unverified[id],
		}
		if old, ok := oldRank[id]; ok {
			entry.Change = old - i
		} else {
			entry.Change = i
			entry.NewEntrant = true
		}
		result[i] = entry
	}
	return result
}

// Snapshot returns the current ordering of the ledger without mutating
// it, using the same tie-break as Merge.
func Snapshot(ledger map[string]int) []Entry {
	ids := ordered(ledger)
	result := make([]Entry, len(ids))
	for i, id := range ids {
		result[i] = Entry{Identity: id, Score: ledger[id]}
	}
	return result
}

// ordered returns the ledger's identities sorted by score descending,
// identity ascending on ties.
func ordered(ledger map[string]int) []string {
	ids := make([]string, 0, len(ledger))
	for id := range ledger {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	sort.SliceStable(ids, func(i, j int) bool {
		return ledger[ids[i]] > ledger[ids[j]]
	})
	return ids
}
