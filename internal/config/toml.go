// Package config provides configuration helpers and TOML parsing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Bench   BenchConfig   `toml:"bench"`
	Clicker ClickerConfig `toml:"clicker"`
	Log     LogConfig     `toml:"log"`
	Export  ExportConfig  `toml:"export"`
}

// BenchConfig maps benchmark settings.
type BenchConfig struct {
	Duration        *int     `toml:"duration"`
	DoubleThreshold *float64 `toml:"double-threshold"`
	Button          *string  `toml:"button"`
	StatusEvery     *int     `toml:"status-every"`
}

// ClickerConfig maps delay engine settings.
type ClickerConfig struct {
	MinDelay          *float64 `toml:"min-delay"`
	MaxDelay          *float64 `toml:"max-delay"`
	VarianceThreshold *float64 `toml:"variance-threshold"`
	Ceiling           *float64 `toml:"ceiling"`
	NearCeiling       *float64 `toml:"near-ceiling"`
	SafetyDelay       *int     `toml:"safety-delay"`
	PollInterval      *int     `toml:"poll-interval"`
	Button            *string  `toml:"button"`
	Seed              *int64   `toml:"seed"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level      *string `toml:"level"`
	File       *string `toml:"file"`
	MaxSizeMB  *int    `toml:"max-size-mb"`
	MaxBackups *int    `toml:"max-backups"`
}

// ExportConfig maps report export settings.
type ExportConfig struct {
	Dir  *string `toml:"dir"`
	YAML *bool   `toml:"yaml"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return FileConfig{}, nil
	}
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// WriteDefault creates path with contents unless it already exists.
func WriteDefault(path, contents string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
