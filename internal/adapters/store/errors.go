package store

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrMissingFile means a required operator file is absent.
	ErrMissingFile = errors.New("required store file missing")
	// ErrCorruptStore means a store file exists but cannot be decoded.
	ErrCorruptStore = errors.New("store file corrupt")
)
