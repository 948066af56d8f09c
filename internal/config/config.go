package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	bstoml "github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// ConfigDir is the per-project directory holding remod state.
const ConfigDir = ".remod"

// Config represents the complete remod configuration (v2 schema)
type Config struct {
	Version int    `json:"version" mapstructure:"version" toml:"version"`
	Root    string `json:"root" mapstructure:"root" toml:"root"`

	Transform TransformConfig `json:"transform" mapstructure:"transform" toml:"transform"`
	Fetch     FetchConfig     `json:"fetch" mapstructure:"fetch" toml:"fetch"`
	Index     IndexConfig     `json:"index" mapstructure:"index" toml:"index"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging"`
}

// TransformConfig controls the transformation engine
type TransformConfig struct {
	// Mode is the annotation-stripping mode: strip, full-compile, passthrough
	Mode string `json:"mode" mapstructure:"mode" toml:"mode"`

	// CacheDir is the cache root; relative paths are under Root
	CacheDir string `json:"cacheDir" mapstructure:"cacheDir" toml:"cacheDir"`

	// MaxParallel bounds concurrent dependency transformations per module walk
	MaxParallel int `json:"maxParallel" mapstructure:"maxParallel" toml:"maxParallel"`

	// ImportMap optionally pins a manifest path instead of discovery
	ImportMap string `json:"importMap,omitempty" mapstructure:"importMap" toml:"importMap"`

	// DiscoverManifest enables walking up from the entry module for import maps
	DiscoverManifest bool `json:"discoverManifest" mapstructure:"discoverManifest" toml:"discoverManifest"`
}

// FetchConfig controls remote module fetching
type FetchConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	TimeoutMs    int    `json:"timeoutMs" mapstructure:"timeoutMs" toml:"timeoutMs"`
	CacheEnabled bool   `json:"cacheEnabled" mapstructure:"cacheEnabled" toml:"cacheEnabled"`
	UserAgent    string `json:"userAgent" mapstructure:"userAgent" toml:"userAgent"`
}

// IndexConfig controls the sqlite cache ledger
type IndexConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Level  string `json:"level" mapstructure:"level" toml:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 2,
		Root:    ".",
		Transform: TransformConfig{
			Mode:             "strip",
			CacheDir:         filepath.Join(ConfigDir, "cache"),
			MaxParallel:      8,
			DiscoverManifest: true,
		},
		Fetch: FetchConfig{
			Enabled:      true,
			TimeoutMs:    30000,
			CacheEnabled: true,
			UserAgent:    "remod",
		},
		Index: IndexConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration for a project root. Layering, lowest
// priority first: defaults, .remod/project.toml, .remod/config.json.
func LoadConfig(root string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Root = root

	// TOML project file, for repos that keep tool settings in TOML.
	tomlPath := filepath.Join(root, ConfigDir, "project.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		if _, err := bstoml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ConfigDir))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.Root = root

	return cfg, nil
}

// Save writes the configuration to .remod/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// CacheRoot returns the absolute cache directory.
func (c *Config) CacheRoot() string {
	if filepath.IsAbs(c.Transform.CacheDir) {
		return c.Transform.CacheDir
	}
	return filepath.Join(c.Root, c.Transform.CacheDir)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 2 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	switch c.Transform.Mode {
	case "strip", "full-compile", "passthrough":
	default:
		return &ConfigError{Field: "transform.mode", Message: "must be strip, full-compile or passthrough"}
	}
	if c.Transform.MaxParallel < 1 {
		return &ConfigError{Field: "transform.maxParallel", Message: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
