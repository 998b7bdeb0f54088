package cache

// KV defines the key-value cache contract shared by the in-memory and
// durable stores. Implementations must be safe for concurrent use by
// multiple goroutines and must never fail observably.
type KV interface {
	Get(key string) (string, bool)
	Insert(key, value string)
	Remove(key string) (string, bool)
	// Snapshot returns a point-in-time copy of all entries ordered by key.
	Snapshot() []Entry
}

// Entry is a single key/value pair held by the cache.
type Entry struct {
	Key   string
	Value string
}
