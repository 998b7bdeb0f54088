package syncer

import "github.com/MikeTeddyOmondi/syscache/internal/cache"

// Store is the part of the cache a session touches.
type Store interface {
	Insert(key, value string)
	Snapshot() []cache.Entry
}

// Inserter receives applied entries.
type Inserter interface {
	Insert(key, value string)
}

// Apply decodes msg and inserts the entry into kv, overwriting any existing
// value. On a *cache.DecodeError kv is left untouched.
func Apply(kv Inserter, msg []byte) error {
	e, err := cache.Decode(msg)
	if err != nil {
		return err
	}
	kv.Insert(e.Key, e.Value)
	return nil
}
