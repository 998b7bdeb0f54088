package ws

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeTeddyOmondi/syscache/internal/logger"
	"github.com/MikeTeddyOmondi/syscache/internal/transport"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	m.Run()
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestEcho(t *testing.T) {
	srv := httptest.NewServer(NewHandler(func(ctx context.Context, _ string, conn transport.Conn) {
		for {
			msg, err := conn.Receive(ctx)
			if err != nil {
				return
			}
			if err := conn.Send(ctx, msg); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := &Dialer{HandshakeTimeout: time.Second}
	conn, err := d.Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	want := `{"key":"a","value":"1"}`
	if err := conn.Send(ctx, []byte(want)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := conn.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != want {
		t.Fatalf("Receive = %q, want %q", got, want)
	}
}

func TestPeerCloseIsErrClosed(t *testing.T) {
	srv := httptest.NewServer(NewHandler(func(context.Context, string, transport.Conn) {
		// Returning closes the connection normally.
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := (&Dialer{}).Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Receive(ctx); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("Receive err = %v, want ErrClosed", err)
	}
}

func TestDialRejected(t *testing.T) {
	srv := httptest.NewServer(nil) // default mux: 404 for every path
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := (&Dialer{}).Dial(ctx, wsURL(srv)+"/nope"); err == nil {
		t.Fatalf("Dial succeeded, want handshake error")
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(NewHandler(func(context.Context, string, transport.Conn) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	conn, err := (&Dialer{}).Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := conn.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Receive err = %v, want DeadlineExceeded", err)
	}
}
