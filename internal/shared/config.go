package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Library  LibraryConfig  `toml:"library"`
	Resolver ResolverConfig `toml:"resolver"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Player   PlayerConfig   `toml:"player"`
}

// LibraryConfig selects and configures the active library backend.
// Backend is "local" (on-device JSON records) or "remote" (catalog server).
type LibraryConfig struct {
	Backend   string `toml:"backend"`
	DataDir   string `toml:"data_dir"`    // local backend record directory
	BaseURL   string `toml:"base_url"`    // remote backend, e.g. https://host/api
	TimeoutMS int    `toml:"timeout_ms"`  // remote call bound, default 12000
}

// ResolverConfig configures the upstream music proxy client.
type ResolverConfig struct {
	BaseURL   string  `toml:"base_url"`
	TimeoutMS int     `toml:"timeout_ms"`
	RateLimit float64 `toml:"rate_limit"` // requests per second, 0 disables
}

// CatalogConfig configures the embeddable catalog server.
type CatalogConfig struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	DBPath string `toml:"db_path"`
}

// PlayerConfig holds playback defaults applied at sequencer construction.
type PlayerConfig struct {
	Volume  float64 `toml:"volume"`
	Quality string  `toml:"quality"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
