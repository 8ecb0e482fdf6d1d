package main

import (
	"os"

	"github.com/corewald/tera/exec"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config file shape. CLI flags always
// override a value set here.
type fileConfig struct {
	Glob                 string        `yaml:"glob"`
	Template             string        `yaml:"template"`
	Context              string        `yaml:"context"`
	Output               string        `yaml:"output"`
	AutoescapeExtensions []string      `yaml:"autoescape_extensions"`
	Limits               *limitsConfig `yaml:"limits"`
}

type limitsConfig struct {
	MaxBlockDepth       *int `yaml:"max_block_depth"`
	MaxRecursionDepth   *int `yaml:"max_recursion_depth"`
	MaxBindingsPerFrame *int `yaml:"max_bindings_per_frame"`
	MaxBytesPerFrame    *int `yaml:"max_bytes_per_frame"`
	RangeLimit          *int `yaml:"range_limit"`
	ArrayLiteralLimit   *int `yaml:"array_literal_limit"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeString returns flagVal if it is non-empty, else falls back to the
// config file's value.
func mergeString(flagVal, fileVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return fileVal
}

// applyLimits overlays cfg's non-nil fields onto the spec §5 defaults.
func (cfg *limitsConfig) applyLimits(base exec.Limits) exec.Limits {
	if cfg == nil {
		return base
	}
	if cfg.MaxBlockDepth != nil {
		base.MaxBlockDepth = *cfg.MaxBlockDepth
	}
	if cfg.MaxRecursionDepth != nil {
		base.MaxRecursionDepth = *cfg.MaxRecursionDepth
	}
	if cfg.MaxBindingsPerFrame != nil {
		base.MaxBindingsPerFrame = *cfg.MaxBindingsPerFrame
	}
	if cfg.MaxBytesPerFrame != nil {
		base.MaxBytesPerFrame = *cfg.MaxBytesPerFrame
	}
	if cfg.RangeLimit != nil {
		base.RangeLimit = *cfg.RangeLimit
	}
	if cfg.ArrayLiteralLimit != nil {
		base.ArrayLiteralLimit = *cfg.ArrayLiteralLimit
	}
	return base
}
