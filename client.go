package minfetch

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/minfetch/minfetch/internal/obs"
)

// Version is the library version reported in the default User-Agent.
const Version = "0.1.0"

const (
	// DefaultTimeout bounds one transaction attempt; each redirect hop
	// gets a fresh budget.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRedirect bounds the number of followed hops.
	DefaultMaxRedirect = 5
)

// Config describes a Client. The zero value is usable: default agent,
// 60s timeout, 5 redirects, unlimited body size, proxy from the
// environment.
type Config struct {
	// Agent is the User-Agent value, overridable per request.
	Agent string
	// DefaultHeaders are merged under every request's headers.
	DefaultHeaders Header
	// MaxRedirect caps followed redirects. 0 means the default of 5;
	// negative disables following entirely.
	MaxRedirect int
	// MaxSize, when positive, caps the response body in bytes.
	MaxSize int64
	// Timeout bounds each transaction attempt. 0 means 60s.
	Timeout time.Duration
	// Proxy is an explicit http proxy URL. Empty means consult
	// http_proxy-style environment variables once, at New.
	Proxy string
	// NoProxy disables proxying even when the environment configures one.
	NoProxy bool
	// TLS is handed to the TLS collaborator for direct HTTPS
	// connections; certificate policy lives there.
	TLS *tls.Config
	// Logger and Meter observe transactions. Nil means no-op.
	Logger obs.Logger
	Meter  obs.Meter
}

// Client issues single-connection HTTP/1.1 transactions. It holds no
// mutable state after New and is safe for concurrent use; every call
// owns its own connection and Response.
type Client struct {
	agent       string
	defaults    Header
	maxRedirect int
	maxSize     int64
	timeout     time.Duration
	proxy       *url.URL
	tls         *tls.Config
	log         obs.Logger
	meter       obs.Meter
}

// New validates cfg, resolves the proxy, and returns an immutable
// Client.
func New(cfg Config) (*Client, error) {
	proxy, err := resolveProxy(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		agent:       cfg.Agent,
		defaults:    cfg.DefaultHeaders.clone(),
		maxRedirect: cfg.MaxRedirect,
		maxSize:     cfg.MaxSize,
		timeout:     cfg.Timeout,
		proxy:       proxy,
		tls:         cfg.TLS,
		log:         cfg.Logger,
		meter:       cfg.Meter,
	}
	if c.agent == "" {
		c.agent = "minfetch/" + Version
	}
	if c.maxRedirect == 0 {
		c.maxRedirect = DefaultMaxRedirect
	} else if c.maxRedirect < 0 {
		c.maxRedirect = 0
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.log == nil {
		c.log = obs.NopLogger{}
	}
	if c.meter == nil {
		c.meter = obs.NopMeter{}
	}
	return c, nil
}

// Request runs one transaction, following redirects, and always
// returns a Response: component failures come back as status 599 with
// the error text as content.
func (c *Client) Request(method, rawurl string, opts *Options) *Response {
	res, err := c.transact(method, rawurl, opts)
	if err != nil {
		c.log.Logf(obs.Warn, "%s %s failed: %v", method, rawurl, err)
		c.meter.Counter("minfetch_request_errors_total", 1, obs.Label{Key: "stage", Value: "transaction"})
		return errorResponse(rawurl, err)
	}
	res.Success = res.Status >= 200 && res.Status <= 299
	return res
}

// Get issues a GET request.
func (c *Client) Get(rawurl string, opts *Options) *Response {
	return c.Request("GET", rawurl, opts)
}

// Head issues a HEAD request.
func (c *Client) Head(rawurl string, opts *Options) *Response {
	return c.Request("HEAD", rawurl, opts)
}

// Put issues a PUT request.
func (c *Client) Put(rawurl string, opts *Options) *Response {
	return c.Request("PUT", rawurl, opts)
}

// Post issues a POST request.
func (c *Client) Post(rawurl string, opts *Options) *Response {
	return c.Request("POST", rawurl, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(rawurl string, opts *Options) *Response {
	return c.Request("DELETE", rawurl, opts)
}

// transact is the redirect controller: it drives Issue/Evaluate/
// Follow until a response is final or the hop budget is spent.
func (c *Client) transact(method, rawurl string, opts *Options) (*Response, error) {
	var trail []*Response
	curMethod := method
	curURL := rawurl
	dropBody := false
	for hops := 0; ; {
		u, err := url.Parse(curURL)
		if err != nil {
			return nil, fmt.Errorf("%w: parse URL %q: %v", ErrTransport, curURL, err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("%w: URL %q has no host", ErrTransport, curURL)
		}
		res, err := c.roundTrip(curMethod, u, opts, dropBody)
		if err != nil {
			return nil, err
		}
		if !redirectStatus(res.Status) {
			res.Redirects = trail
			return res, nil
		}
		if hops >= c.maxRedirect {
			return nil, fmt.Errorf("%w: exceeded %d redirects at %s", ErrRedirectLimit, c.maxRedirect, curURL)
		}
		next, nextMethod, drop, follow := redirectTarget(res, curMethod)
		if !follow {
			res.Redirects = trail
			return res, nil
		}
		hops++
		loc, err := u.Parse(next)
		if err != nil {
			return nil, fmt.Errorf("%w: bad Location %q: %v", ErrProtocol, next, err)
		}
		c.log.Logf(obs.Debug, "redirect %d %s -> %s", res.Status, curURL, loc)
		c.meter.Counter("minfetch_redirects_total", 1)
		if drop {
			dropBody = true
		}
		curMethod = nextMethod
		curURL = loc.String()
		trail = append(trail, res)
	}
}

func redirectStatus(code int) bool {
	switch code {
	case 301, 302, 303, 307:
		return true
	}
	return false
}

// redirectTarget applies the method rules to a redirect response:
// 303 always rewrites to GET and drops the body, whatever the current
// method; 301/302/307 are followed only for GET and HEAD, any other
// method gets the response back as-is. A missing Location also ends
// the chain.
func redirectTarget(res *Response, method string) (location, nextMethod string, drop, follow bool) {
	switch res.Status {
	case 301, 302, 307:
		if method != "GET" && method != "HEAD" {
			return "", "", false, false
		}
		nextMethod = method
	case 303:
		nextMethod = "GET"
		drop = true
	}
	location = res.Header.Get("location")
	if location == "" {
		return "", "", false, false
	}
	return location, nextMethod, drop, true
}
