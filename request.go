package minfetch

// BodySource supplies a request body chunk by chunk. Next is called
// repeatedly until it returns a nil or empty slice; the body is then
// sent with Transfer-Encoding: chunked. An error aborts the
// transaction.
type BodySource interface {
	Next() ([]byte, error)
}

// BodyFunc adapts a closure to BodySource.
type BodyFunc func() ([]byte, error)

func (f BodyFunc) Next() ([]byte, error) { return f() }

// DataFunc receives response body chunks as they arrive, together with
// the in-progress Response whose status and headers are already
// parsed. When set, the body is not accumulated into Response.Content.
// Returning an error aborts the transaction.
type DataFunc func(chunk []byte, res *Response) error

// Options carries per-call request parameters. The zero value (or a
// nil pointer) is a request with no extra headers and no body.
type Options struct {
	// Headers override the client's default headers by lower-cased
	// field name; a multi-valued entry is emitted as repeated lines
	// in order.
	Headers Header
	// Content is a fixed body, framed with Content-Length.
	Content []byte
	// ContentSource streams the body with chunked transfer-coding.
	// It takes precedence over Content.
	ContentSource BodySource
	// Trailer, if set with ContentSource, supplies trailer fields
	// written after the terminating zero chunk.
	Trailer func() Header
	// OnData streams the response body instead of buffering it.
	OnData DataFunc
}

func (o *Options) headers() Header {
	if o == nil {
		return nil
	}
	return o.Headers
}

func (o *Options) onData() DataFunc {
	if o == nil {
		return nil
	}
	return o.OnData
}
