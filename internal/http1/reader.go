package http1

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrProtocol marks any violation of the HTTP/1.1 message grammar.
// Callers classify it separately from transport-level I/O errors.
var ErrProtocol = errors.New("http1: protocol violation")

const (
	// MaxLineBytes bounds a single status, header, chunk-size or
	// trailer line.
	MaxLineBytes = 8 << 10
	// MaxHeaderLines bounds the number of fields in one header block.
	MaxHeaderLines = 128
)

// ReadStatusLine parses "HTTP/1.x code reason". The reason phrase may
// be empty.
func ReadStatusLine(br *bufio.Reader) (proto string, code int, reason string, err error) {
	line, err := readLine(br)
	if err != nil {
		return "", 0, "", err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", fmt.Errorf("%w: malformed status line %q", ErrProtocol, line)
	}
	proto = parts[0]
	if !strings.HasPrefix(proto, "HTTP/1.") {
		return "", 0, "", fmt.Errorf("%w: unsupported protocol %q", ErrProtocol, proto)
	}
	code, err = strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 999 {
		return "", 0, "", fmt.Errorf("%w: bad status code %q", ErrProtocol, parts[1])
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return proto, code, reason, nil
}

// ReadHeaderBlock reads header lines into h until the blank line that
// ends the block. Field names are lower-cased; repeated names extend
// the value list in arrival order. Continuation lines (obs-fold) are
// joined onto the previous field's value with a single space.
func ReadHeaderBlock(br *bufio.Reader, h map[string][]string) error {
	lines := 0
	lastKey := ""
	for {
		line, err := readLine(br)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		lines++
		if lines > MaxHeaderLines {
			return fmt.Errorf("%w: too many header fields", ErrProtocol)
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Folded continuation of the previous field.
			if lastKey == "" || len(h[lastKey]) == 0 {
				return fmt.Errorf("%w: continuation line with no preceding field", ErrProtocol)
			}
			vv := h[lastKey]
			vv[len(vv)-1] = vv[len(vv)-1] + " " + strings.TrimSpace(line)
			continue
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return fmt.Errorf("%w: malformed header line %q", ErrProtocol, line)
		}
		k := strings.ToLower(strings.TrimSpace(line[:i]))
		if !validToken(k) {
			return fmt.Errorf("%w: invalid header name %q", ErrProtocol, line[:i])
		}
		v := strings.TrimSpace(line[i+1:])
		h[k] = append(h[k], v)
		lastKey = k
	}
}

// IsChunked reports whether Transfer-Encoding includes "chunked".
func IsChunked(h map[string][]string) bool {
	for _, v := range h["transfer-encoding"] {
		if strings.Contains(strings.ToLower(v), "chunked") {
			return true
		}
	}
	return false
}

// ContentLength returns the declared body length. Repeated or
// comma-joined values must agree; anything else is a protocol error.
func ContentLength(h map[string][]string) (n int64, ok bool, err error) {
	vv := h["content-length"]
	if len(vv) == 0 {
		return 0, false, nil
	}
	var vals []string
	for _, v := range vv {
		for _, part := range strings.Split(v, ",") {
			vals = append(vals, strings.TrimSpace(part))
		}
	}
	n, err = strconv.ParseInt(vals[0], 10, 64)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("%w: bad Content-Length %q", ErrProtocol, vals[0])
	}
	for _, v := range vals[1:] {
		if v != vals[0] {
			return 0, false, fmt.Errorf("%w: conflicting Content-Length values", ErrProtocol)
		}
	}
	return n, true, nil
}

func readLine(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			break
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if sb.Len() > MaxLineBytes {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrProtocol, MaxLineBytes)
		}
	}
	return sb.String(), nil
}

func validToken(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			continue
		}
		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
			continue
		default:
			return false
		}
	}
	return true
}
