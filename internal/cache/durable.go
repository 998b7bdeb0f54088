package cache

import (
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MikeTeddyOmondi/syscache/internal/logger"
)

// Durable is a KV that serves reads from an in-memory Store and writes
// every mutation through to a Bolt bucket. On open, the bucket is loaded
// into memory. It is safe for concurrent use by multiple goroutines.
type Durable struct {
	mem    *Store
	db     *bolt.DB
	bucket []byte
	// wmu orders the memory and disk halves of a write so both see the
	// same sequence of mutations.
	wmu sync.Mutex
}

type Options struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

var ErrNoBucket = errors.New("cache: bucket missing")

// OpenDurable initializes or opens a Durable store at the given path.
func OpenDurable(path string, opts Options) (*Durable, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte("cache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	mem := New()
	if err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return ErrNoBucket
		}
		return b.ForEach(func(k, v []byte) error {
			mem.Insert(string(k), string(v))
			return nil
		})
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Durable{mem: mem, db: db, bucket: bucket}, nil
}

// Close closes the underlying database.
func (d *Durable) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Durable) Get(key string) (string, bool) { return d.mem.Get(key) }

func (d *Durable) Snapshot() []Entry { return d.mem.Snapshot() }

func (d *Durable) Len() int { return d.mem.Len() }

// Insert stores value in memory and on disk. A disk failure is logged and
// leaves the in-memory value in place.
func (d *Durable) Insert(key, value string) {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	d.mem.Insert(key, value)
	if err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(d.bucket)
		if b == nil {
			return ErrNoBucket
		}
		return b.Put([]byte(key), []byte(value))
	}); err != nil {
		logger.Errorf("durable insert %q: %v", key, err)
	}
}

// Remove deletes key from memory and disk.
func (d *Durable) Remove(key string) (string, bool) {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	v, ok := d.mem.Remove(key)
	if !ok {
		return "", false
	}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(d.bucket)
		if b == nil {
			return ErrNoBucket
		}
		return b.Delete([]byte(key))
	}); err != nil {
		logger.Errorf("durable remove %q: %v", key, err)
	}
	return v, true
}
