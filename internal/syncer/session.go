// Package syncer runs the cache synchronization protocol with one remote
// peer. On connect a session pushes the full local snapshot, one message per
// entry in key order, then applies every inbound message to the local cache
// until the connection ends.
package syncer

import (
	"context"
	"errors"
	"sync"

	"github.com/MikeTeddyOmondi/syscache/internal/cache"
	"github.com/MikeTeddyOmondi/syscache/internal/logger"
	"github.com/MikeTeddyOmondi/syscache/internal/metrics"
	"github.com/MikeTeddyOmondi/syscache/internal/transport"
)

// Session owns one synchronization attempt. It does not own the store.
// Sessions are single use: once Closed or Errored, a new Session is needed.
type Session struct {
	address string
	store   Store
	dialer  transport.Dialer
	metrics *metrics.Sync

	mu      sync.Mutex
	state   State
	conn    transport.Conn
	err     error
	closing bool
	// cancelDial aborts an in-flight dial when the session is closed.
	cancelDial context.CancelFunc
	pushed     int
	applied int
	done    chan struct{}
}

type Option func(*Session)

// WithMetrics records session activity on m.
func WithMetrics(m *metrics.Sync) Option {
	return func(s *Session) { s.metrics = m }
}

// New returns an Idle session that will sync store with address. dialer may
// be nil for sessions that are only ever used with Serve.
func New(store Store, dialer transport.Dialer, address string, opts ...Option) *Session {
	s := &Session{
		address: address,
		store:   store,
		dialer:  dialer,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Address() string { return s.address }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended the session, or nil while it is running
// and after a normal close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pushed reports how many entries were sent during the push phase.
func (s *Session) Pushed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushed
}

// Applied reports how many inbound entries were applied to the store.
func (s *Session) Applied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends or ctx is done. It returns the
// session's terminal error, nil after a normal close.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start dials the peer, pushes the local snapshot and returns once the push
// phase is over. Inbound messages keep being applied in the background until
// the connection ends. A dial failure returns *ConnectError and a push
// failure returns *SendError; both leave the session Errored unless Close
// was called first, in which case it ends Closed.
func (s *Session) Start(ctx context.Context) error {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.begin(cancel); err != nil {
		return err
	}
	if s.dialer == nil {
		cerr := &ConnectError{Address: s.address, Err: errors.New("no dialer configured")}
		s.finish(Errored, cerr)
		return cerr
	}
	logger.Infof("sync %s: connecting", s.address)
	conn, err := s.dialer.Dial(dialCtx, s.address)
	if err != nil {
		cerr := &ConnectError{Address: s.address, Err: err}
		if s.isClosing() {
			s.finish(Closed, nil)
		} else {
			s.finish(Errored, cerr)
		}
		return cerr
	}
	return s.run(ctx, conn)
}

// Serve runs the session over an already-open connection, as the accepting
// side does, and blocks until the session ends. Cancelling ctx closes the
// session.
func (s *Session) Serve(ctx context.Context, conn transport.Conn) error {
	if err := s.begin(nil); err != nil {
		return err
	}
	if err := s.run(ctx, conn); err != nil {
		return err
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		_ = s.Close()
		<-s.done
	}
	return s.Err()
}

// Close ends the session by closing its connection. An in-flight dial is
// cancelled and an in-flight push stops at its next send. A session closed
// this way ends in Closed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	state, conn, cancelDial := s.state, s.conn, s.cancelDial
	s.mu.Unlock()

	switch {
	case state == Idle:
		s.finish(Closed, nil)
	case state == Connecting && cancelDial != nil:
		// Start observes the cancelled dial and finishes the session.
		cancelDial()
	case conn != nil:
		// The receive loop observes the close and finishes the session.
		return conn.Close()
	}
	return nil
}

func (s *Session) begin(cancelDial context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return ErrStarted
	}
	s.state = Connecting
	s.cancelDial = cancelDial
	return nil
}

func (s *Session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// run moves Connecting -> Syncing and performs the push phase. The receive
// loop starts first so a peer pushing at the same time is never left
// blocked on us.
func (s *Session) run(ctx context.Context, conn transport.Conn) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		s.finish(Closed, nil)
		return nil
	}
	s.conn = conn
	s.state = Syncing
	s.mu.Unlock()
	s.metrics.SessionSyncing()

	go s.receive(conn)

	if err := s.push(ctx, conn); err != nil {
		if s.isClosing() {
			s.finish(Closed, nil)
		} else {
			s.finish(Errored, err)
		}
		return err
	}
	logger.Infof("sync %s: pushed %d entries", s.address, s.Pushed())
	return nil
}

// push sends the snapshot in key order. The store lock is only held while
// the snapshot is copied. Entries that are not UTF-8 text cannot cross the
// wire unchanged and are skipped.
func (s *Session) push(ctx context.Context, conn transport.Conn) error {
	for _, e := range s.store.Snapshot() {
		if !cache.Encodable(e) {
			s.metrics.ObserveSkip()
			logger.Warnf("sync %s: skipping entry %q: key or value is not UTF-8 text", s.address, e.Key)
			continue
		}
		if err := conn.Send(ctx, cache.Encode(e)); err != nil {
			return &SendError{Key: e.Key, Err: err}
		}
		s.mu.Lock()
		s.pushed++
		s.mu.Unlock()
		s.metrics.ObservePush()
	}
	return nil
}

func (s *Session) receive(conn transport.Conn) {
	ctx := context.Background()
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) || s.isClosing() {
				s.finish(Closed, nil)
			} else {
				s.finish(Errored, &ReceiveError{Err: err})
			}
			return
		}
		s.apply(msg)
	}
}

// apply runs under the session lock so nothing is applied once the session
// has reached a terminal state.
func (s *Session) apply(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Syncing {
		return
	}
	if err := Apply(s.store, msg); err != nil {
		s.metrics.ObserveDecodeError()
		logger.Warnf("sync %s: discarding inbound message: %v", s.address, err)
		return
	}
	s.applied++
	s.metrics.ObserveApply()
}

// finish records the first terminal state and closes the connection. Done
// is closed last, after metrics and logs reflect the outcome.
func (s *Session) finish(state State, err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	wasSyncing := s.state == Syncing
	s.state, s.err = state, err
	conn := s.conn
	s.mu.Unlock()
	defer close(s.done)

	if conn != nil {
		_ = conn.Close()
	}
	s.metrics.SessionEnded(state.String(), wasSyncing)
	if err != nil {
		logger.Errorf("sync %s: %s: %v", s.address, state, err)
		return
	}
	logger.Infof("sync %s: %s", s.address, state)
}
