package cache

import (
	"encoding/json"
	"sort"
	"sync"
)

// Store is the in-memory cache. A single lock covers the whole map and is
// held only for the duration of one call.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]string)}
}

// Insert overwrites any existing value for key.
func (s *Store) Insert(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

// Get returns the current value for key. The boolean is false when the key
// is not cached, which is distinct from an empty value.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Remove deletes key and returns its prior value. Removing an absent key is
// a no-op.
func (s *Store) Remove(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return v, ok
}

// Snapshot copies every entry under the read lock and sorts the copy after
// the lock is released.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for k, v := range s.entries {
		out = append(out, Entry{Key: k, Value: v})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SnapshotText renders a snapshot of kv as a JSON object keyed by entry key.
func SnapshotText(kv KV) string {
	snap := kv.Snapshot()
	m := make(map[string]string, len(snap))
	for _, e := range snap {
		m[e.Key] = e.Value
	}
	// Map keys are emitted in sorted order; marshaling strings cannot fail.
	b, _ := json.Marshal(m)
	return string(b)
}
