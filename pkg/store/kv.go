package store

import "errors"

// ErrWriteFailed wraps any failure of the underlying store to accept a write.
// Callers must not assume the write succeeded and should surface the failure
// instead of silently diverging from persisted state.
var ErrWriteFailed = errors.New("store: write failed")

// KV is the persisted store contract shared by every repository. Values are
// serialized text; a missing key reads as absent, never as an error. All
// operations are synchronous from the caller's perspective.
type KV interface {
	// Read returns the value for key and whether it was present.
	Read(key string) (string, bool)
	// Write persists value under key. A rejected write returns an error
	// wrapping ErrWriteFailed.
	Write(key, value string) error
	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string) error
	// Keys returns every persisted key.
	Keys() []string
}

// Event signals that the value under Key changed outside the current
// process's own write path.
type Event struct {
	Key string
}
