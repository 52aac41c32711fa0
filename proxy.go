package minfetch

import (
	"fmt"
	"net/url"
	"os"
)

// resolveProxy turns the configured proxy choice into a parsed URL.
// An explicit NoProxy wins, then an explicit URL, then the
// environment. Resolution happens exactly once, at construction, so a
// changing environment cannot alter an in-flight redirect chain.
func resolveProxy(cfg Config) (*url.URL, error) {
	if cfg.NoProxy {
		return nil, nil
	}
	raw := cfg.Proxy
	if raw == "" {
		raw = firstEnv("http_proxy", "HTTP_PROXY", "all_proxy", "ALL_PROXY")
	}
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("minfetch: invalid proxy URL %q: %v", raw, err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("minfetch: unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("minfetch: proxy URL %q has no host", raw)
	}
	return u, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
