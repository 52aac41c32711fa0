package main

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func TestVersionFlag(t *testing.T) {
	var cli CLI
	var out strings.Builder
	exits := 0
	parser, err := kong.New(&cli,
		kong.Name("minfetch"),
		kong.Vars{"version": "1.2.3"},
		kong.Writers(&out, &out),
		kong.Exit(func(int) { exits++ }),
	)
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	// With Exit stubbed out, parsing continues past the flag and fails
	// on the missing URL argument; only the printed version matters.
	_, _ = parser.Parse([]string{"--version"})
	if exits == 0 {
		t.Fatal("--version did not trigger exit")
	}
	if !strings.Contains(out.String(), "1.2.3") {
		t.Fatalf("output=%q, want the version string", out.String())
	}
}
