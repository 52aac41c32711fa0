package minfetch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/minfetch/minfetch/internal/http1"
	"github.com/minfetch/minfetch/internal/obs"
)

// bodyChunkSize is the read granularity for response bodies; the size
// limit is checked at this granularity, not at completion.
const bodyChunkSize = 16 << 10

// roundTrip runs one request/response exchange on a fresh connection.
// The connection is closed on every exit path; there is no reuse.
func (c *Client) roundTrip(method string, u *url.URL, opts *Options, dropBody bool) (*Response, error) {
	start := time.Now()
	deadline := start.Add(c.timeout)

	w, viaProxy, err := c.dial(u, deadline)
	if err != nil {
		c.log.Logf(obs.Warn, "dial %s failed: %v", u.Host, err)
		c.meter.Counter("minfetch_request_errors_total", 1, obs.Label{Key: "stage", Value: "dial"})
		return nil, err
	}
	defer w.Close()

	bw := bufio.NewWriter(w)
	br := bufio.NewReader(w)

	if err := c.writeRequest(bw, method, u, opts, dropBody, viaProxy); err != nil {
		c.log.Logf(obs.Warn, "write %s %s failed: %v", method, u.Host, err)
		c.meter.Counter("minfetch_request_errors_total", 1, obs.Label{Key: "stage", Value: "write"})
		return nil, classify(err)
	}
	c.meter.Counter("minfetch_requests_total", 1, obs.Label{Key: "method", Value: method})

	res, err := c.readResponse(br, method, opts)
	if err != nil {
		c.log.Logf(obs.Warn, "read %s %s failed: %v", method, u.Host, err)
		c.meter.Counter("minfetch_request_errors_total", 1, obs.Label{Key: "stage", Value: "read"})
		return nil, classify(err)
	}
	res.URL = u.String()

	status := strconv.Itoa(res.Status)
	c.meter.Counter("minfetch_responses_total", 1, obs.Label{Key: "status", Value: status})
	c.meter.Histogram("minfetch_roundtrip_duration_seconds", time.Since(start).Seconds(),
		obs.Label{Key: "method", Value: method}, obs.Label{Key: "status", Value: status})
	return res, nil
}

// writeRequest serializes the request line, header block and body.
// Host, Connection: close and the framing headers are always owned by
// the writer; merged default+request headers fill in the rest, the
// request side winning by lower-cased name.
func (c *Client) writeRequest(bw *bufio.Writer, method string, u *url.URL, opts *Options, dropBody, viaProxy bool) error {
	target := originForm(u)
	if viaProxy {
		target = absoluteURL(u)
	}
	if err := http1.WriteRequestLine(bw, method, target); err != nil {
		return err
	}

	merged := mergeHeaders(c.defaults, opts.headers())
	// Fields the writer owns, regardless of caller input.
	merged.Del("host")
	merged.Del("connection")
	merged.Del("content-length")
	merged.Del("transfer-encoding")

	if err := http1.WriteHeaderLine(bw, "Host", u.Host); err != nil {
		return err
	}
	if err := http1.WriteHeaderLine(bw, "Connection", "close"); err != nil {
		return err
	}
	if merged.Get("user-agent") == "" {
		merged.Del("user-agent")
		if err := http1.WriteHeaderLine(bw, "User-Agent", c.agent); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, v := range merged[k] {
			if err := http1.WriteHeaderLine(bw, k, v); err != nil {
				return err
			}
		}
	}

	var content []byte
	var source BodySource
	if opts != nil && !dropBody {
		content = opts.Content
		source = opts.ContentSource
	}
	switch {
	case source != nil:
		if err := http1.WriteHeaderLine(bw, "Transfer-Encoding", "chunked"); err != nil {
			return err
		}
		if err := http1.EndHeaders(bw); err != nil {
			return err
		}
		if err := writeChunkedBody(bw, source, opts.Trailer); err != nil {
			return err
		}
	case len(content) > 0:
		if err := http1.WriteHeaderLine(bw, "Content-Length", strconv.Itoa(len(content))); err != nil {
			return err
		}
		if err := http1.EndHeaders(bw); err != nil {
			return err
		}
		if _, err := bw.Write(content); err != nil {
			return err
		}
	default:
		if err := http1.EndHeaders(bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeChunkedBody(bw *bufio.Writer, source BodySource, trailer func() Header) error {
	for {
		chunk, err := source.Next()
		if err != nil {
			return fmt.Errorf("body source: %w", err)
		}
		if len(chunk) == 0 {
			break
		}
		if err := http1.WriteChunk(bw, chunk); err != nil {
			return err
		}
	}
	var tr map[string][]string
	if trailer != nil {
		tr = map[string][]string(trailer())
	}
	return http1.EndChunked(bw, tr)
}

// readResponse parses the status line and header block, discarding
// interim 1XX responses, then frames and reads the body.
func (c *Client) readResponse(br *bufio.Reader, method string, opts *Options) (*Response, error) {
	for {
		proto, code, reason, err := http1.ReadStatusLine(br)
		if err != nil {
			return nil, err
		}
		hdr := make(map[string][]string)
		if err := http1.ReadHeaderBlock(br, hdr); err != nil {
			return nil, err
		}
		if code >= 100 && code < 200 {
			// Informational response; the real status line follows.
			continue
		}
		res := &Response{
			Status:   code,
			Reason:   reason,
			Protocol: proto,
			Header:   Header(hdr),
		}
		if err := c.readBody(br, method, res, opts); err != nil {
			return nil, err
		}
		return res, nil
	}
}

// readBody frames the body per the HTTP/1.1 priority: none for HEAD
// and 204/304, then chunked, then Content-Length, then read-to-close.
// Chunks go to the OnData sink when one is set, otherwise into
// Response.Content; the size limit is enforced before any delivery.
func (c *Client) readBody(br *bufio.Reader, method string, res *Response, opts *Options) error {
	if method == "HEAD" || res.Status == 204 || res.Status == 304 {
		return nil
	}
	sink := opts.onData()
	var received int64
	deliver := func(p []byte) error {
		if len(p) == 0 {
			return nil
		}
		if c.maxSize > 0 && received+int64(len(p)) > c.maxSize {
			return fmt.Errorf("%w: body exceeds %d bytes", ErrSizeLimit, c.maxSize)
		}
		received += int64(len(p))
		if sink != nil {
			return sink(p, res)
		}
		res.Content = append(res.Content, p...)
		return nil
	}

	hdr := map[string][]string(res.Header)
	buf := make([]byte, bodyChunkSize)
	switch {
	case http1.IsChunked(hdr):
		cr := http1.NewChunkedReader(br, hdr)
		for {
			n, err := cr.Read(buf)
			if n > 0 {
				if derr := deliver(buf[:n]); derr != nil {
					return derr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	default:
		cl, ok, err := http1.ContentLength(hdr)
		if err != nil {
			return err
		}
		if ok {
			for remain := cl; remain > 0; {
				n := int64(len(buf))
				if n > remain {
					n = remain
				}
				if _, err := io.ReadFull(br, buf[:n]); err != nil {
					if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
						return fmt.Errorf("%w: truncated body, %d of %d bytes missing", ErrProtocol, remain, cl)
					}
					return err
				}
				remain -= n
				if err := deliver(buf[:n]); err != nil {
					return err
				}
			}
			return nil
		}
		// Close-delimited body.
		for {
			n, err := br.Read(buf)
			if n > 0 {
				if derr := deliver(buf[:n]); derr != nil {
					return derr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// classify maps component errors into the transaction taxonomy.
// Errors already carrying a taxonomy sentinel pass through.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrSizeLimit),
		errors.Is(err, ErrRedirectLimit), errors.Is(err, ErrProtocol),
		errors.Is(err, ErrTransport):
		return err
	case errors.Is(err, http1.ErrProtocol):
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	case isTimeout(err):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: unexpected end of stream", ErrProtocol)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}
