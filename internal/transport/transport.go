// Package transport defines the connection boundary the sync protocol runs
// over. A Conn carries whole messages; each Send is delivered to the peer as
// exactly one Receive.
package transport

import (
	"context"
	"errors"
)

// ErrClosed reports that the connection was closed normally, by either end.
var ErrClosed = errors.New("transport: connection closed")

// Conn is an open, full-duplex, message-oriented connection.
//
// Send may be called concurrently with Receive, and Close may be called
// concurrently with both. After Close, pending and future calls return an
// error wrapping ErrClosed.
type Conn interface {
	Send(ctx context.Context, msg []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens connections to a remote peer. A returned Conn is open.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(ctx context.Context, address string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, address string) (Conn, error) {
	return f(ctx, address)
}
