package minfetch

import "testing"

func TestHeader_CaseInsensitive(t *testing.T) {
	h := Header{}
	h.Add("X-Foo", "a")
	h.Add("x-foo", "b")
	if got := h.Get("X-FOO"); got != "a" {
		t.Fatalf("Get=%q, want %q", got, "a")
	}
	if got := h.Values("X-Foo"); len(got) != 2 || got[1] != "b" {
		t.Fatalf("Values=%v", got)
	}
	h.Set("Content-Type", "text/plain")
	if got := h.Get("content-type"); got != "text/plain" {
		t.Fatalf("content-type=%q", got)
	}
	h.Del("X-FOO")
	if got := h.Get("x-foo"); got != "" {
		t.Fatalf("after Del got %q", got)
	}
}

func TestHeader_GetOnNil(t *testing.T) {
	var h Header
	if h.Get("anything") != "" || h.Values("anything") != nil {
		t.Fatal("nil Header should read as empty")
	}
}

func TestMergeHeaders(t *testing.T) {
	defaults := Header{
		"x-api-key": {"default"},
		"accept":    {"*/*"},
	}
	overrides := Header{
		"X-API-Key": {"override"},
		"x-extra":   {"1", "2"},
	}
	merged := mergeHeaders(defaults, overrides)
	if got := merged.Get("x-api-key"); got != "override" {
		t.Fatalf("override lost: %q", got)
	}
	if got := merged.Get("accept"); got != "*/*" {
		t.Fatalf("default lost: %q", got)
	}
	if got := merged.Values("x-extra"); len(got) != 2 {
		t.Fatalf("multi override=%v", got)
	}

	// Merging must not alias the inputs.
	merged.Set("accept", "text/html")
	if defaults.Get("accept") != "*/*" {
		t.Fatal("merge aliased the defaults")
	}
}
