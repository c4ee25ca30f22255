// Package config loads the optional YAML configuration file
// SPEC_FULL.md §6 describes, giving cmd/reactivec a file-based alternative
// to repeating flags on every invocation. CLI flags always win: Load
// returns file defaults, and the caller overlays any flag explicitly set.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"reactivec/internal/parser"
)

// Config mirrors pkg/reactivec.CompileOptions' injectable knobs plus the
// default file type a bare --input path should be parsed as.
type Config struct {
	DefaultFileType      string `yaml:"defaultFileType"`
	PassThroughOnFailure bool   `yaml:"passThroughOnFailure"`
	CacheSlotSymbol      string `yaml:"cacheSlotSymbol"`
}

// Default returns the zero-config baseline: JS file type, strict mode
// (no pass-through), the default "$c" cache allocator.
func Default() Config {
	return Config{DefaultFileType: "js", CacheSlotSymbol: "$c"}
}

// Load reads and parses path. A missing file is not an error — callers
// that didn't pass --config get Default() back unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FileType resolves the configured default file type string to
// internal/parser's enum, falling back to FileJS on an unrecognized value.
func (c Config) FileType() parser.FileType {
	return parser.ParseFileType(c.DefaultFileType)
}
