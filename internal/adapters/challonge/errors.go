package challonge

import "errors"

// Sentinel kinds for provider errors.
var (
	// ErrStatus means the provider answered with a non-200 status.
	ErrStatus = errors.New("unexpected provider status")
	// ErrNotFound means no bracket matched the given reference.
	ErrNotFound = errors.New("bracket not found")
)
