// Package config loads docsmith's layered configuration: typed
// defaults, overlaid by an optional TOML file, overlaid by environment
// variables (which always win).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the docsmith server.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Server      ServerConfig      `toml:"server"`
	Transport   TransportConfig   `toml:"transport"`
	Log         LogConfig         `toml:"log"`
	Images      ImagesConfig      `toml:"images"`
	Housekeeper HousekeeperConfig `toml:"housekeeper"`
}

// StorageConfig points at the on-disk data root: sessions/, storage/,
// docs/{templates,fragments,styles}/.
type StorageConfig struct {
	DataRoot string `toml:"data_root"`
}

// ServerConfig holds MCP server metadata.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TransportConfig holds transport-related settings.
type TransportConfig struct {
	// Mode selects the transport: "stdio" (default) or "http".
	Mode string `toml:"mode"`
	// Port is the HTTP listen port (default: 8420). Only used when Mode is "http".
	Port string `toml:"port"`
	// Host is the HTTP listen address (default: "0.0.0.0"). Only used when Mode is "http".
	Host string `toml:"host"`
	// CORSOrigins is a comma-separated list of allowed CORS origins (default: "*").
	CORSOrigins string `toml:"cors_origins"`
	// PublicBaseURL, when set, is prefixed onto proxy_guid to populate
	// download_url in a render response. Left empty, proxy responses
	// carry the GUID alone.
	PublicBaseURL string `toml:"public_base_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// ImagesConfig bounds outbound fetches for image-fragment URLs and
// locates the directory the HTTP surface serves stock images from.
type ImagesConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"` // default 10
	MaxSizeMB      int    `toml:"max_size_mb"`      // default 10
	StockDir       string `toml:"stock_dir"`
}

// HousekeeperConfig holds the purge-policy knobs the external
// housekeeper process consumes. Validated here so a bad config fails
// fast at startup even though the housekeeper itself runs out-of-process.
type HousekeeperConfig struct {
	Enabled       bool `toml:"enabled"`
	IntervalHours int  `toml:"interval_hours"`
	MaxStorageMB  int  `toml:"max_storage_mb"`
	StaleLockMins int  `toml:"stale_lock_minutes"`
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. DOCSMITH_CONFIG environment variable
//  3. ./docsmith.toml (current directory)
//  4. ~/.config/docsmith/docsmith.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			DataRoot: "./data",
		},
		Server: ServerConfig{
			Name:    "docsmith",
			Version: "0.1.0",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "8420",
			Host:        "0.0.0.0",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
		Images: ImagesConfig{
			TimeoutSeconds: 10,
			MaxSizeMB:      10,
			StockDir:       "./images/stock",
		},
		Housekeeper: HousekeeperConfig{
			Enabled:       false,
			IntervalHours: 1,
			MaxStorageMB:  1024,
			StaleLockMins: 5,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the TOML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil // no config file found; rely on defaults + env
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty string
// if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit // caller wants this file; let DecodeFile report if missing
	}

	if p := os.Getenv("DOCSMITH_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("docsmith.toml"); err == nil {
		return "docsmith.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/docsmith/docsmith.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("DOCSMITH_DATA_ROOT", &c.Storage.DataRoot)

	envOverride("DOCSMITH_TRANSPORT", &c.Transport.Mode)
	envOverride("DOCSMITH_PORT", &c.Transport.Port)
	envOverride("DOCSMITH_HOST", &c.Transport.Host)
	envOverride("DOCSMITH_CORS_ORIGINS", &c.Transport.CORSOrigins)
	envOverride("DOCSMITH_PUBLIC_BASE_URL", &c.Transport.PublicBaseURL)

	envOverride("DOCSMITH_LOG_LEVEL", &c.Log.Level)
	envOverride("DOCSMITH_IMAGES_STOCK_DIR", &c.Images.StockDir)

	if v := os.Getenv("DOCSMITH_IMAGES_TIMEOUT_SECONDS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Images.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("DOCSMITH_IMAGES_MAX_SIZE_MB"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Images.MaxSizeMB = n
		}
	}

	if v := os.Getenv("DOCSMITH_HOUSEKEEPER_ENABLED"); v != "" {
		c.Housekeeper.Enabled = (v == "true" || v == "1")
	}
	if v := os.Getenv("DOCSMITH_HOUSEKEEPER_INTERVAL_HOURS"); v != "" {
		var hours int
		if _, err := fmt.Sscanf(v, "%d", &hours); err == nil && hours > 0 {
			c.Housekeeper.IntervalHours = hours
		}
	}
	if v := os.Getenv("DOCSMITH_HOUSEKEEPER_MAX_STORAGE_MB"); v != "" {
		var mb int
		if _, err := fmt.Sscanf(v, "%d", &mb); err == nil && mb > 0 {
			c.Housekeeper.MaxStorageMB = mb
		}
	}
}

// Validate checks that required fields are present and internally consistent.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Storage.DataRoot == "" {
		return fmt.Errorf("storage.data_root must not be empty")
	}
	if c.Images.TimeoutSeconds <= 0 {
		return fmt.Errorf("images.timeout_seconds must be positive")
	}
	if c.Housekeeper.Enabled && c.Housekeeper.MaxStorageMB <= 0 {
		return fmt.Errorf("housekeeper.max_storage_mb must be positive when housekeeper.enabled is true")
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
