// Package syscache is a concurrency-safe, process-local key-value cache that
// synchronizes with a remote peer over a WebSocket.
//
// Local reads and writes never touch the network. StartSync opens a session
// that pushes the full local snapshot to the peer, one message per entry in
// key order, then applies every entry the peer sends, last write wins.
package syscache

import (
	"context"
	"sync"
	"time"

	"github.com/MikeTeddyOmondi/syscache/internal/cache"
	"github.com/MikeTeddyOmondi/syscache/internal/metrics"
	"github.com/MikeTeddyOmondi/syscache/internal/syncer"
	"github.com/MikeTeddyOmondi/syscache/internal/transport"
	"github.com/MikeTeddyOmondi/syscache/internal/transport/ws"
)

type (
	Entry       = cache.Entry
	SyncSession = syncer.Session
	SyncState   = syncer.State
)

const defaultHandshakeTimeout = 10 * time.Second

// Cache owns the shared store and the sync sessions started from it.
type Cache struct {
	store   *cache.Store
	dialer  transport.Dialer
	metrics *metrics.Sync

	mu       sync.Mutex
	sessions map[*syncer.Session]struct{}
}

type Option func(*Cache)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d transport.Dialer) Option {
	return func(c *Cache) { c.dialer = d }
}

// WithMetrics records sync activity of every session on m.
func WithMetrics(m *metrics.Sync) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		store:    cache.New(),
		dialer:   &ws.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
		sessions: make(map[*syncer.Session]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Insert stores value under key, overwriting any existing value.
func (c *Cache) Insert(key, value string) { c.store.Insert(key, value) }

// Get returns the value for key. It returns false for an absent key, which
// is distinct from a cached empty value.
func (c *Cache) Get(key string) (string, bool) { return c.store.Get(key) }

// Remove deletes key and returns its prior value, or false if the key was
// absent. Removing an absent key is a no-op.
func (c *Cache) Remove(key string) (string, bool) { return c.store.Remove(key) }

// Snapshot returns a copy of all entries ordered by key.
func (c *Cache) Snapshot() []Entry { return c.store.Snapshot() }

// SnapshotText returns the snapshot as a JSON object keyed by entry key.
func (c *Cache) SnapshotText() string { return cache.SnapshotText(c.store) }

// Len reports the number of cached entries.
func (c *Cache) Len() int { return c.store.Len() }

// StartSync opens a session with the peer at address and returns once the
// local snapshot has been pushed. The session keeps applying inbound entries
// until it is closed. The session is returned even on error so callers can
// inspect its terminal state.
func (c *Cache) StartSync(ctx context.Context, address string) (*SyncSession, error) {
	s := syncer.New(c.store, c.dialer, address, syncer.WithMetrics(c.metrics))
	c.track(s)
	return s, s.Start(ctx)
}

// Sessions returns the sessions that have not yet ended.
func (c *Cache) Sessions() []*SyncSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*SyncSession, 0, len(c.sessions))
	for s := range c.sessions {
		out = append(out, s)
	}
	return out
}

// Close closes every live session. The cache stays usable locally.
func (c *Cache) Close() error {
	var first error
	for _, s := range c.Sessions() {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Cache) track(s *syncer.Session) {
	c.mu.Lock()
	c.sessions[s] = struct{}{}
	c.mu.Unlock()
	go func() {
		<-s.Done()
		c.mu.Lock()
		delete(c.sessions, s)
		c.mu.Unlock()
	}()
}
