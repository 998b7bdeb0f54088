package transport

import (
	"context"
	"sync"
)

const pipeBuffer = 64

type pipeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns two connected in-memory Conns. Closing either end closes
// both. Messages already sent are still delivered before ErrClosed.
func Pipe() (Conn, Conn) {
	a, b := make(chan []byte, pipeBuffer), make(chan []byte, pipeBuffer)
	closed := make(chan struct{})
	once := new(sync.Once)
	return &pipeConn{in: a, out: b, closed: closed, once: once},
		&pipeConn{in: b, out: a, closed: closed, once: once}
}

func (p *pipeConn) Send(ctx context.Context, msg []byte) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	buf := append([]byte(nil), msg...)
	select {
	case p.out <- buf:
		return nil
	case <-p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case m := <-p.in:
		return m, nil
	default:
	}
	select {
	case m := <-p.in:
		return m, nil
	case <-p.closed:
		// Drain anything that raced with the close.
		select {
		case m := <-p.in:
			return m, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
