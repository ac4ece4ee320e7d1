package app

import "errors"

// Sentinel kinds for pipeline errors.
var (
	// ErrAlreadyProcessed means the tournament's results are already in
	// the ledger. A benign guard, not a failure: callers should exit
	// zero with a notice.
	ErrAlreadyProcessed = errors.New("tournament already processed")

	// ErrUnsupportedGame means the tournament's game classifier has no
	// configured ledger; the pipeline fails closed rather than guess.
	ErrUnsupportedGame = errors.New("unsupported game")

	// ErrDumpUnavailable means a requested raw payload dump cannot be
	// produced.
	ErrDumpUnavailable = errors.New("dump unavailable")
)
