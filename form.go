package minfetch

import "net/url"

// PostForm URL-encodes form and POSTs it as
// application/x-www-form-urlencoded. Any caller-supplied content,
// content source or content-type is ignored; other option fields pass
// through.
func (c *Client) PostForm(rawurl string, form url.Values, opts *Options) *Response {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.ContentSource = nil
	o.Trailer = nil
	o.Content = []byte(form.Encode())
	o.Headers = o.Headers.clone()
	o.Headers.Set("content-type", "application/x-www-form-urlencoded")
	return c.Request("POST", rawurl, &o)
}
