// Package model contains domain models passed between layers.
package model

// Tournament is the bracket metadata returned by the provider.
type Tournament struct {
	ID     int64  // provider-assigned numeric id
	Name   string // display name
	State  string // lifecycle state; only "complete" brackets are scored
	GameID int64  // game classifier used to select a ledger
	URL    string // full bracket URL
}

// StateComplete is the tournament state required for scoring.
const StateComplete = "complete"

// Complete reports whether the bracket has finished.
func (t Tournament) Complete() bool {
	return t.State == StateComplete
}

// Participant is one bracket entrant as reported by the provider.
// Placement 0 means the participant has no final rank (e.g. the bracket
// was finalized without them, or they never checked in).
type Participant struct {
	Handle    string // bracket-local username; may be empty
	Placement int    // final rank, 1 = winner, 0 = unranked
}

// ForcedEntry is an operator-supplied correction: a handle and the
// placement it should be scored at, independent of the fetched bracket.
type ForcedEntry struct {
	Handle    string
	Placement int
}

// ScoringEntry is one participant's contribution from one bracket.
// Entries are immutable once extracted and discarded after the merge.
type ScoringEntry struct {
	Handle    string
	Placement int
	Points    int
	// Forced entries bypass identity resolution: the operator supplied
	// the persistent identity directly.
	Forced bool
}

// ResolvedEntry is a ScoringEntry after identity resolution. Identity is
// the ledger key; Verified is false when resolution failed and the
// bracket handle is standing in for the identity.
type ResolvedEntry struct {
	Identity string
	Points   int
	Verified bool
}
