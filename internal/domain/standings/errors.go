package standings

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotComplete means the bracket has not been finalized and must
	// not be scored.
	ErrNotComplete = errors.New("tournament not complete")
)
