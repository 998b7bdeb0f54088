package syncer

import (
	"errors"
	"fmt"
)

// ErrStarted is returned when Start or Serve is called on a session that
// has already left Idle. Sessions are single use.
var ErrStarted = errors.New("syncer: session already started")

// ConnectError reports a failure to establish the connection.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("syncer: connect %s: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendError reports a push send failure. Pushed entries before Key were
// delivered to the transport; Key and everything after it were not.
type SendError struct {
	Key string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("syncer: send %q: %v", e.Key, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ReceiveError reports an unrecoverable transport failure while receiving.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string { return "syncer: receive: " + e.Err.Error() }

func (e *ReceiveError) Unwrap() error { return e.Err }
