// Package config loads the client configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk client configuration. Flags override any of it.
type Config struct {
	// ServerURL is the base URL of the requirements backend.
	ServerURL string `yaml:"server_url"`
	// ProjectID selects the project opened at startup.
	ProjectID string `yaml:"project_id"`
	// Theme selects the UI theme ("dark" or "light").
	Theme string `yaml:"theme"`
	// RequestTimeout bounds a single API round trip.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// DebugLog, when set, receives diagnostic output.
	DebugLog string `yaml:"debug_log"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ServerURL:      "http://localhost:5000",
		Theme:          "dark",
		RequestTimeout: 10 * time.Second,
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "reqview", "config.yaml"), nil
}

// Load reads the config at path, filling unset fields from Default.
// A missing file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = Default().ServerURL
	}
	if cfg.Theme == "" {
		cfg.Theme = Default().Theme
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = Default().RequestTimeout
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
