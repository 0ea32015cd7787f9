package store

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the key-value map the server applies requests to.
// Implementations must never block: they are called from the reactor goroutine.
type IStore interface {
	// Put inserts or overwrites the value for a key.
	Put(key, value string)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value string, loaded bool)
	// Len returns the number of stored keys.
	Len() int
}
