package minfetch

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"
)

// wireConn is the blocking byte stream of one transaction attempt.
// A single absolute deadline, fixed when the attempt starts, bounds
// every operation: it is re-applied to the socket before each blocking
// call and is never reset, so interrupted-call retries spend the same
// budget as the call they resume.
type wireConn struct {
	conn     net.Conn
	deadline time.Time
}

func (w *wireConn) Read(p []byte) (int, error) {
	for {
		if err := w.arm(w.conn.SetReadDeadline); err != nil {
			return 0, err
		}
		n, err := w.conn.Read(p)
		if n > 0 || err == nil {
			return n, err
		}
		if interrupted(err) {
			if time.Now().Before(w.deadline) {
				continue
			}
			return 0, fmt.Errorf("%w: interrupted past deadline", ErrTimeout)
		}
		return n, err
	}
}

func (w *wireConn) Write(p []byte) (int, error) {
	written := 0
	for {
		if err := w.arm(w.conn.SetWriteDeadline); err != nil {
			return written, err
		}
		n, err := w.conn.Write(p[written:])
		written += n
		if err == nil || written == len(p) {
			return written, err
		}
		if interrupted(err) {
			if time.Now().Before(w.deadline) {
				continue
			}
			return written, fmt.Errorf("%w: interrupted past deadline", ErrTimeout)
		}
		return written, err
	}
}

func (w *wireConn) Close() error { return w.conn.Close() }

func (w *wireConn) arm(set func(time.Time) error) error {
	if !time.Now().Before(w.deadline) {
		return fmt.Errorf("%w: deadline reached", ErrTimeout)
	}
	return set(w.deadline)
}

func interrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

// dial opens the connection for one attempt: to the proxy for plain
// HTTP targets when a proxy is configured, directly otherwise, with a
// TLS upgrade for direct HTTPS. Proxied HTTPS is rejected before any
// I/O happens.
func (c *Client) dial(u *url.URL, deadline time.Time) (*wireConn, bool, error) {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	if scheme != "http" && scheme != "https" {
		return nil, false, fmt.Errorf("%w: unsupported scheme %q", ErrTransport, scheme)
	}
	viaProxy := c.proxy != nil && scheme == "http"
	if c.proxy != nil && scheme == "https" {
		return nil, false, fmt.Errorf("%w: https through an http proxy is not supported", ErrTransport)
	}

	addr := hostPort(u)
	if viaProxy {
		addr = hostPort(c.proxy)
	}
	d := net.Dialer{Deadline: deadline}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return nil, false, fmt.Errorf("%w: dial %s: %v", ErrTimeout, addr, err)
		}
		return nil, false, fmt.Errorf("%w: dial %s: %v", ErrTransport, addr, err)
	}
	if scheme == "https" {
		cfg := c.tls
		if cfg == nil {
			cfg = &tls.Config{}
		}
		cfg = cfg.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = hostNoPort(u.Host)
		}
		if len(cfg.NextProtos) == 0 {
			cfg.NextProtos = []string{"http/1.1"}
		}
		tc := tls.Client(conn, cfg)
		_ = tc.SetDeadline(deadline)
		if err := tc.Handshake(); err != nil {
			_ = conn.Close()
			if isTimeout(err) {
				return nil, false, fmt.Errorf("%w: tls handshake with %s: %v", ErrTimeout, addr, err)
			}
			return nil, false, fmt.Errorf("%w: tls handshake with %s: %v", ErrTransport, addr, err)
		}
		conn = tc
	}
	return &wireConn{conn: conn, deadline: deadline}, viaProxy, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func hostPort(u *url.URL) string {
	host := u.Host
	if !strings.Contains(host, ":") || (strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]")) {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	return host
}

func hostNoPort(h string) string {
	if i := strings.LastIndex(h, ":"); i != -1 {
		// Keep the colon inside an IPv6 literal.
		if strings.HasPrefix(h, "[") && strings.HasSuffix(h, "]") {
			return strings.Trim(h, "[]")
		}
		return h[:i]
	}
	return h
}

// absoluteURL builds the absolute-form request target used on proxied
// requests, userinfo and fragment excluded.
func absoluteURL(u *url.URL) string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(originForm(u))
	return b.String()
}

// originForm is the path+query request target for direct connections.
func originForm(u *url.URL) string {
	target := u.RequestURI()
	if target == "" {
		target = "/"
	}
	return target
}
