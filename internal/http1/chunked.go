package http1

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ChunkedReader decodes a chunked transfer-coded body. After the
// terminating zero chunk it parses trailer fields (same grammar as the
// main header block) into the trailer map, then reports io.EOF.
type ChunkedReader struct {
	br       *bufio.Reader
	remain   int64
	finished bool
	trailer  map[string][]string
}

// NewChunkedReader returns a decoder over br. Trailer fields are
// appended to trailer, which may be nil when the caller does not want
// them.
func NewChunkedReader(br *bufio.Reader, trailer map[string][]string) *ChunkedReader {
	return &ChunkedReader{br: br, remain: -1, trailer: trailer}
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if c.finished {
		return 0, io.EOF
	}
	if c.remain <= 0 {
		size, err := c.readChunkSize()
		if err != nil {
			return 0, truncated(err)
		}
		if size == 0 {
			if err := c.readTrailers(); err != nil {
				return 0, truncated(err)
			}
			c.finished = true
			return 0, io.EOF
		}
		c.remain = size
	}
	if len(p) == 0 {
		return 0, nil
	}
	toRead := int64(len(p))
	if toRead > c.remain {
		toRead = c.remain
	}
	n, err := io.ReadFull(c.br, p[:toRead])
	c.remain -= int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return n, fmt.Errorf("%w: truncated chunk data", ErrProtocol)
		}
		return n, err
	}
	if c.remain == 0 {
		if err := c.expectCRLF(); err != nil {
			return n, truncated(err)
		}
	}
	return n, nil
}

// truncated converts a stream EOF into a protocol error: io.EOF may
// only surface after the terminating chunk and its trailer block have
// been consumed in full. Other errors (deadlines) pass through.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: truncated chunked body", ErrProtocol)
	}
	return err
}

func (c *ChunkedReader) readChunkSize() (int64, error) {
	line, err := readLine(c.br)
	if err != nil {
		return 0, err
	}
	// Strip chunk extensions: "<hex>;<ext>"
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("%w: empty chunk size line", ErrProtocol)
	}
	n, err := strconv.ParseInt(line, 16, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad chunk size %q", ErrProtocol, line)
	}
	return n, nil
}

func (c *ChunkedReader) expectCRLF() error {
	b1, err := c.br.ReadByte()
	if err != nil {
		return err
	}
	b2, err := c.br.ReadByte()
	if err != nil {
		return err
	}
	if b1 != '\r' || b2 != '\n' {
		return fmt.Errorf("%w: expected CRLF after chunk, got %q%q", ErrProtocol, b1, b2)
	}
	return nil
}

func (c *ChunkedReader) readTrailers() error {
	sink := c.trailer
	if sink == nil {
		sink = make(map[string][]string)
	}
	return ReadHeaderBlock(c.br, sink)
}

// WriteChunk emits one length-prefixed chunk. Zero-length input writes
// nothing; the zero chunk is reserved for EndChunked.
func WriteChunk(bw *bufio.Writer, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(bw, "%x\r\n", len(p)); err != nil {
		return err
	}
	if _, err := bw.Write(p); err != nil {
		return err
	}
	_, err := fmt.Fprint(bw, "\r\n")
	return err
}

// EndChunked writes the terminating zero chunk, any trailer fields in
// sorted name order, and the final blank line.
func EndChunked(bw *bufio.Writer, trailer map[string][]string) error {
	if _, err := fmt.Fprint(bw, "0\r\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(trailer))
	for k := range trailer {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, v := range trailer[k] {
			if err := WriteHeaderLine(bw, k, v); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprint(bw, "\r\n")
	return err
}
