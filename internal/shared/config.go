package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Cache    CacheConfig    `toml:"cache"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// CatalogConfig describes the upstream catalog service and how hard we may hit it.
type CatalogConfig struct {
	BaseURL           string  `toml:"base_url"`
	InterfaceURL      string  `toml:"interface_url"`
	MediaURL          string  `toml:"media_url"`
	StreamTemplate    string  `toml:"stream_template"`
	UserAgent         string  `toml:"user_agent"`
	PageSize          int     `toml:"page_size"`
	ChunkSize         int     `toml:"chunk_size"`
	MaxConcurrency    int     `toml:"max_concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	ShortTimeout      int     `toml:"short_timeout"` // seconds
	LongTimeout       int     `toml:"long_timeout"`  // seconds
	PageTimeout       int     `toml:"page_timeout"`  // seconds
}

// CacheConfig contains response cache settings.
type CacheConfig struct {
	TTLMinutes int    `toml:"ttl_minutes"`
	RedisURL   string `toml:"redis_url"`
}

// DatabaseConfig contains database connection settings for the playlist archive.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// TTL returns the configured cache window.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Short returns the timeout for single lookups and chunk calls.
func (c CatalogConfig) Short() time.Duration {
	return time.Duration(c.ShortTimeout) * time.Second
}

// Long returns the timeout for full playlist fetches.
func (c CatalogConfig) Long() time.Duration {
	return time.Duration(c.LongTimeout) * time.Second
}

// Page returns the timeout for HTML page fetches.
func (c CatalogConfig) Page() time.Duration {
	return time.Duration(c.PageTimeout) * time.Second
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports settings the gateway cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Catalog.BaseURL == "":
		return fmt.Errorf("%w: catalog.base_url is empty", ErrInvalidConfig)
	case c.Catalog.PageSize <= 0:
		return fmt.Errorf("%w: catalog.page_size must be positive", ErrInvalidConfig)
	case c.Catalog.ChunkSize <= 0:
		return fmt.Errorf("%w: catalog.chunk_size must be positive", ErrInvalidConfig)
	case c.Catalog.RequestsPerSecond < 0:
		return fmt.Errorf("%w: catalog.requests_per_second must not be negative", ErrInvalidConfig)
	case c.Cache.TTLMinutes <= 0:
		return fmt.Errorf("%w: cache.ttl_minutes must be positive", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
