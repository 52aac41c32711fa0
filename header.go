package minfetch

import "strings"

// Header maps lower-cased field names to values in arrival order.
// Lookups through the accessors are case-insensitive; a repeated field
// keeps every value it arrived with. Get gives the scalar view (the
// first value), Values the full ordered list, so callers never need to
// probe which shape a field has.
type Header map[string][]string

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	if h == nil {
		return ""
	}
	if vv := h[strings.ToLower(name)]; len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// Values returns all values for name in arrival order.
func (h Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	return h[strings.ToLower(name)]
}

// Set replaces any existing values for name.
func (h Header) Set(name, value string) {
	h[strings.ToLower(name)] = []string{value}
}

// Add appends a value for name.
func (h Header) Add(name, value string) {
	k := strings.ToLower(name)
	h[k] = append(h[k], value)
}

// Del removes name.
func (h Header) Del(name string) {
	delete(h, strings.ToLower(name))
}

func (h Header) clone() Header {
	out := make(Header, len(h))
	for k, vv := range h {
		out[strings.ToLower(k)] = append([]string(nil), vv...)
	}
	return out
}

// mergeHeaders lays request-specific fields over the defaults.
// Overrides win whole fields by name; they never splice into a
// default's value list.
func mergeHeaders(defaults, overrides Header) Header {
	out := defaults.clone()
	for k, vv := range overrides {
		out[strings.ToLower(k)] = append([]string(nil), vv...)
	}
	return out
}
