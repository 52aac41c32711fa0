package minfetch

import (
	"os"
	"path/filepath"
	"time"
)

// httpTimeFormat is the preferred IMF-fixdate form; obsolete RFC 850
// and asctime dates are accepted on input.
const httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

var httpTimeLayouts = []string{httpTimeFormat, time.RFC850, time.ANSIC}

func parseHTTPTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range httpTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Mirror GETs rawurl into the file at path. When the file already
// exists its modification time is sent as If-Modified-Since, and a 304
// counts as success with the file left untouched. The body streams
// through a temporary file that replaces path only on success; a
// parseable Last-Modified is applied back to the file's modification
// time. Any OnData sink in opts is replaced by the file writer.
func (c *Client) Mirror(rawurl, path string, opts *Options) *Response {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.Headers = o.Headers.clone()
	if o.Headers.Get("if-modified-since") == "" {
		if fi, err := os.Stat(path); err == nil {
			o.Headers.Set("if-modified-since", fi.ModTime().UTC().Format(httpTimeFormat))
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return errorResponse(rawurl, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	o.OnData = func(p []byte, _ *Response) error {
		_, werr := tmp.Write(p)
		return werr
	}

	res := c.Request("GET", rawurl, &o)
	closeErr := tmp.Close()
	if res.Status == 304 {
		res.Success = true
		return res
	}
	if !res.Success {
		return res
	}
	if closeErr != nil {
		return errorResponse(rawurl, closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errorResponse(rawurl, err)
	}
	if t, ok := parseHTTPTime(res.Header.Get("last-modified")); ok {
		_ = os.Chtimes(path, t, t)
	}
	return res
}
