package http1

import (
	"bufio"
	"fmt"
	"strings"
)

// WriteRequestLine emits "METHOD target HTTP/1.1". The target is
// origin-form for direct connections and absolute-form when the
// request goes through a plain HTTP proxy.
func WriteRequestLine(bw *bufio.Writer, method, target string) error {
	_, err := fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, target)
	return err
}

// WriteHeaderLine emits a single header field. The value is sanitized
// against CR/LF injection; an invalid field name is an error rather
// than a silently dropped line.
func WriteHeaderLine(bw *bufio.Writer, name, value string) error {
	if !validToken(name) {
		return fmt.Errorf("%w: invalid header name %q", ErrProtocol, name)
	}
	_, err := fmt.Fprintf(bw, "%s: %s\r\n", name, SanitizeValue(value))
	return err
}

// EndHeaders terminates the header block.
func EndHeaders(bw *bufio.Writer) error {
	_, err := fmt.Fprint(bw, "\r\n")
	return err
}

// SanitizeValue removes CR/LF and control chars except HTAB.
func SanitizeValue(v string) string {
	if v == "" {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\r' || c == '\n' || c == 0x7f {
			continue
		}
		if c < 0x20 && c != '\t' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
