package minfetch

import (
	"errors"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"
)

func urlFor(t *testing.T, scheme, host string) *url.URL {
	t.Helper()
	return &url.URL{Scheme: scheme, Host: host}
}

// eintrConn simulates a socket whose reads keep getting interrupted.
type eintrConn struct {
	delay time.Duration
	calls int
}

func (c *eintrConn) Read(p []byte) (int, error) {
	c.calls++
	time.Sleep(c.delay)
	return 0, &net.OpError{Op: "read", Err: syscall.EINTR}
}

func (c *eintrConn) Write(p []byte) (int, error) {
	c.calls++
	time.Sleep(c.delay)
	return 0, &net.OpError{Op: "write", Err: syscall.EINTR}
}

func (c *eintrConn) Close() error                       { return nil }
func (c *eintrConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *eintrConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (c *eintrConn) SetDeadline(t time.Time) error      { return nil }
func (c *eintrConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *eintrConn) SetWriteDeadline(t time.Time) error { return nil }

func TestWireConn_EINTRCumulativeDeadline(t *testing.T) {
	// Each interruption is far shorter than the budget; the retries
	// must still stop once their combined time crosses the deadline,
	// not restart the clock per retry.
	fc := &eintrConn{delay: 20 * time.Millisecond}
	w := &wireConn{conn: fc, deadline: time.Now().Add(55 * time.Millisecond)}

	start := time.Now()
	_, err := w.Read(make([]byte, 16))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err=%v, want ErrTimeout", err)
	}
	elapsed := time.Since(start)
	if elapsed > 500*time.Millisecond {
		t.Fatalf("retries ran %v, deadline not cumulative", elapsed)
	}
	if fc.calls < 2 || fc.calls > 6 {
		t.Fatalf("calls=%d, want a handful of resumed reads", fc.calls)
	}
}

func TestWireConn_DeadlineAlreadyPassed(t *testing.T) {
	fc := &eintrConn{}
	w := &wireConn{conn: fc, deadline: time.Now().Add(-time.Second)}
	if _, err := w.Read(make([]byte, 1)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err=%v, want ErrTimeout", err)
	}
	if fc.calls != 0 {
		t.Fatalf("read attempted %d times past the deadline", fc.calls)
	}
}

func TestWireConn_WriteEINTR(t *testing.T) {
	fc := &eintrConn{delay: 20 * time.Millisecond}
	w := &wireConn{conn: fc, deadline: time.Now().Add(55 * time.Millisecond)}
	if _, err := w.Write([]byte("data")); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err=%v, want ErrTimeout", err)
	}
	if fc.calls < 2 {
		t.Fatalf("calls=%d, want resumed writes", fc.calls)
	}
}

func TestHostPort(t *testing.T) {
	cases := []struct {
		scheme, host, want string
	}{
		{"http", "example.test", "example.test:80"},
		{"https", "example.test", "example.test:443"},
		{"http", "example.test:8080", "example.test:8080"},
		{"http", "[::1]", "[::1]:80"},
		{"http", "[::1]:8080", "[::1]:8080"},
	}
	for _, c := range cases {
		u := urlFor(t, c.scheme, c.host)
		if got := hostPort(u); got != c.want {
			t.Errorf("hostPort(%s://%s)=%q, want %q", c.scheme, c.host, got, c.want)
		}
	}
}
