package minfetch

import "errors"

var (
	// ErrTransport covers DNS, connect, TLS and socket failures.
	ErrTransport = errors.New("minfetch: transport failure")
	// ErrTimeout is a deadline expiry, including across interrupted-call retries.
	ErrTimeout = errors.New("minfetch: timeout")
	// ErrProtocol is a malformed status line, header block or chunk frame.
	ErrProtocol = errors.New("minfetch: protocol violation")
	// ErrSizeLimit is a response body exceeding the configured maximum.
	ErrSizeLimit = errors.New("minfetch: response body too large")
	// ErrRedirectLimit is a redirect chain exceeding the configured maximum.
	ErrRedirectLimit = errors.New("minfetch: too many redirects")
)
