package minfetch

// InternalErrorStatus is the pseudo status used when a transaction
// fails before a real response can be returned.
const InternalErrorStatus = 599

// internalReason is the fixed reason phrase on synthesized failure
// responses; the error text goes in Content.
const internalReason = "Internal Exception"

// Response is the result of one transaction, including any followed
// redirects. It is immutable once returned.
//
// On any component failure Status is 599, Reason is "Internal
// Exception", Content holds the error text and Err the underlying
// error; the engine never lets an error escape the public calls.
type Response struct {
	// Status is the HTTP status code, or 599 for internal failures.
	Status int
	// Reason is the server's reason phrase.
	Reason string
	// Success is true iff Status is 2XX. Mirror additionally treats
	// 304 as success.
	Success bool
	// Protocol is the "HTTP/1.x" token from the status line.
	Protocol string
	// URL is the final URL after redirects.
	URL string
	// Header holds response fields, trailers included for chunked
	// bodies. Names are lower-cased; see Header.
	Header Header
	// Content is the accumulated body. It stays empty when an OnData
	// sink consumed the body instead.
	Content []byte
	// Redirects lists the earlier responses of the chain in order.
	Redirects []*Response
	// Err is set on synthesized 599 responses.
	Err error
}

func errorResponse(rawurl string, err error) *Response {
	return &Response{
		Status:  InternalErrorStatus,
		Reason:  internalReason,
		URL:     rawurl,
		Header:  Header{},
		Content: []byte(err.Error()),
		Err:     err,
	}
}
