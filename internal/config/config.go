// Package config provides client configuration: a TOML file with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FileName is the configuration file looked up in the config directory.
	FileName = "marketmind.toml"

	// Environment variable overrides.
	EnvBackendURL = "MARKETMIND_BACKEND_URL"
	EnvUserID     = "MARKETMIND_USER_ID"
	EnvAppName    = "MARKETMIND_APP_NAME"
	EnvLogLevel   = "MARKETMIND_LOG_LEVEL"
)

// Config is the client configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Logging LoggingConfig `toml:"logging"`
	UI      UIConfig      `toml:"ui"`
}

// BackendConfig locates the agent-engine gateway.
type BackendConfig struct {
	URL     string `toml:"url"`
	UserID  string `toml:"user_id"`
	AppName string `toml:"app_name"`
}

// LoggingConfig controls client-side logging.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// UIConfig holds rendering preferences.
type UIConfig struct {
	Theme string `toml:"theme"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     "http://localhost:8080",
			UserID:  "local",
			AppName: "marketmind",
		},
		Logging: LoggingConfig{Level: "off"},
		UI:      UIConfig{Theme: "dark"},
	}
}

// Load reads the configuration file at path (or the default location when
// path is empty) and applies environment overrides. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = defaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// No file means defaults.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.loadEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv(EnvUserID); v != "" {
		c.Backend.UserID = v
	}
	if v := os.Getenv(EnvAppName); v != "" {
		c.Backend.AppName = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	if c.Backend.UserID == "" {
		return errors.New("backend.user_id is required")
	}
	return nil
}

// defaultPath resolves the per-user config file location.
func defaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "marketmind", FileName)
}
