package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexballas/xmediabrowser/internal/logging"
	"github.com/alexballas/xmediabrowser/mediabrowser"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Config is the media browser configuration file.
type Config struct {
	// Library is a local directory served as the asset source.
	Library string        `yaml:"library"`
	Remote  RemoteConfig  `yaml:"remote"`
	Browser BrowserConfig `yaml:"browser"`
	Log     LogConfig     `yaml:"log"`
}

// RemoteConfig points at an HTTP asset service. It takes precedence over
// Library when both are set.
type RemoteConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type BrowserConfig struct {
	View         string                `yaml:"view"`      // grid or table
	PageSize     int                   `yaml:"page_size"` // assets per fetch
	DocumentType string                `yaml:"document_type"`
	Orders       []mediabrowser.Order  `yaml:"orders"`
	Filters      []mediabrowser.Filter `yaml:"filters"` // local library only
	PreviewCache string                `yaml:"preview_cache"`
	NoDiskCache  bool                  `yaml:"no_disk_cache"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultPath returns $XDG_CONFIG_HOME/xmediabrowser/config.yaml or the
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "xmediabrowser", "config.yaml"), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Browser.View = mediabrowser.GridView.String()
	cfg.Browser.PageSize = DefaultPageSize
	cfg.Browser.Orders = append([]mediabrowser.Order(nil), mediabrowser.DefaultOrders...)
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.merge(&fileCfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.Library != "" {
		c.Library = o.Library
	}
	if o.Remote.URL != "" {
		c.Remote.URL = o.Remote.URL
	}
	if o.Remote.Token != "" {
		c.Remote.Token = o.Remote.Token
	}

	if o.Browser.View != "" {
		c.Browser.View = o.Browser.View
	}
	if o.Browser.PageSize != 0 {
		c.Browser.PageSize = o.Browser.PageSize
	}
	if o.Browser.DocumentType != "" {
		c.Browser.DocumentType = o.Browser.DocumentType
	}
	if len(o.Browser.Orders) > 0 {
		c.Browser.Orders = o.Browser.Orders
	}
	if len(o.Browser.Filters) > 0 {
		c.Browser.Filters = o.Browser.Filters
	}
	if o.Browser.PreviewCache != "" {
		c.Browser.PreviewCache = o.Browser.PreviewCache
	}
	c.Browser.NoDiskCache = o.Browser.NoDiskCache

	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
}

// Validate checks the values a file or flags may have broken.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if _, ok := mediabrowser.ParseViewMode(c.Browser.View); !ok {
		return fmt.Errorf("%w: unknown view %q (want grid or table)", ErrInvalidConfig, c.Browser.View)
	}
	if c.Browser.PageSize < 1 || c.Browser.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxPageSize, c.Browser.PageSize)
	}
	for i, o := range c.Browser.Orders {
		if o.Title == "" || o.Value == "" {
			return fmt.Errorf("%w: order %d needs a title and a value", ErrInvalidConfig, i)
		}
	}
	for i, f := range c.Browser.Filters {
		if f.Title == "" {
			return fmt.Errorf("%w: filter %d needs a title", ErrInvalidConfig, i)
		}
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// Save writes cfg to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
