// TOML defaults file handling for the minfetch CLI.
package main

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig is the optional TOML defaults file. Flags override it.
type fileConfig struct {
	Client  clientConfig      `toml:"client"`
	Headers map[string]string `toml:"headers"`
}

type clientConfig struct {
	Agent          string `toml:"agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRedirect    int    `toml:"max_redirect"`
	MaxSize        int64  `toml:"max_size"`
	Proxy          string `toml:"proxy"`
	NoProxy        bool   `toml:"no_proxy"`
}

func loadConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
