// Package minfetch is a minimal, correctness-focused HTTP/1.1 client:
// one connection per request, explicit byte-level framing, no hidden
// state.
//
// Highlights
//   - Transactions: direct or plain-proxy connections, optional TLS,
//     Content-Length / chunked / close-delimited response framing,
//     chunked trailers, incremental size limits, redirect handling
//     with strict method rules.
//   - Streaming: pull-based request bodies (chunked encoding) and
//     push-based response sinks.
//   - Failure contract: every error becomes a 599 response with the
//     error text as content; nothing escapes the public calls.
//   - Observability: plug-in Logger and Meter interfaces with zap and
//     Prometheus bridges.
//
// Quick start:
//
//	c, err := minfetch.New(minfetch.Config{})
//	if err != nil { log.Fatal(err) }
//	res := c.Get("http://127.0.0.1:8080/", nil)
//	fmt.Println(res.Status, string(res.Content))
//
// Out of scope: persistent connections, HTTP/2, cookies, automatic
// decompression, authenticating proxies, Expect: 100-continue.
package minfetch
