// Package config loads tool configuration from an optional TOML file.
// Flags override file values; file values override built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds process-wide settings shared by every command.
type Config struct {
	// SiteURL is the base URL of the content host's web site and API.
	SiteURL string `toml:"site_url"`
	// DataURL is the base URL of the host's data/CDN domain, used to
	// resolve /data/ asset paths. Defaults to SiteURL.
	DataURL string `toml:"data_url"`
	// RateDelayMS is the minimum spacing between API requests.
	RateDelayMS int    `toml:"rate_delay_ms"`
	UserAgent   string `toml:"user_agent"`
	OutputDir   string `toml:"output_dir"`
}

// Default returns the built-in configuration. DataURL is left empty
// here; Load resolves it to SiteURL when no override is given.
func Default() Config {
	return Config{
		SiteURL:     "https://kemono.cr",
		RateDelayMS: 600,
		UserAgent:   "kemono-epub-creator/1.0",
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults; a missing file at an explicit path is an error,
// as is a file that fails to parse.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if cfg.DataURL == "" {
		cfg.DataURL = cfg.SiteURL
	}
	return cfg, nil
}

// RateDelay returns the configured minimum request spacing.
func (c Config) RateDelay() time.Duration {
	if c.RateDelayMS <= 0 {
		return 0
	}
	return time.Duration(c.RateDelayMS) * time.Millisecond
}
