package session

import "errors"

// Sentinel errors for Store operations, checked with errors.Is().
var (
	// ErrSessionNotFound indicates the requested session does not exist in
	// the collection.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotLoaded indicates a mutation was attempted before Store.Load
	// completed. Load must run exactly once, before any other operation.
	ErrNotLoaded = errors.New("session store not loaded")

	// ErrAlreadyLoaded indicates Store.Load was called a second time.
	ErrAlreadyLoaded = errors.New("session store already loaded")
)
