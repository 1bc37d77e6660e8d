// Package config handles configuration loading and management for
// Switchboard. It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Switchboard.
type Config struct {
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	State      StateConfig      `mapstructure:"state"`
}

// ClassifierConfig holds pattern classification settings.
type ClassifierConfig struct {
	// Threshold is the minimum score for a pattern to qualify, in (0,1].
	Threshold float64 `mapstructure:"threshold"`
	// DecayHalfLife is the half-life of the confidence decay. Outcomes
	// older than this weigh half as much as fresh ones.
	DecayHalfLife time.Duration `mapstructure:"decay_half_life"`
	// PatternsFile is an optional YAML file of additional domain patterns.
	PatternsFile string `mapstructure:"patterns_file"`
}

// DispatchConfig holds dispatch planning and execution settings.
type DispatchConfig struct {
	// ConcurrencyCeiling is the system-wide maximum concurrent specialists.
	ConcurrencyCeiling int `mapstructure:"concurrency_ceiling"`
	// BatchCeiling is the maximum specialists per meta-dispatch batch.
	BatchCeiling int `mapstructure:"batch_ceiling"`
	// SpecialistTimeout is the per-specialist invocation timeout.
	SpecialistTimeout time.Duration `mapstructure:"specialist_timeout"`
}

// ResolverConfig holds reference resolution settings.
type ResolverConfig struct {
	// CacheTTL is how long resolved content is served from cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// MaxDepth bounds recursive reference resolution.
	MaxDepth int `mapstructure:"max_depth"`
	// LocalScope is the directory backing "local-scope:" references.
	LocalScope string `mapstructure:"local_scope"`
	// UserScope is the directory backing "user-scope:" references.
	UserScope string `mapstructure:"user_scope"`
	// ProjectRoot is the directory backing "project-root:" and bare
	// relative references.
	ProjectRoot string `mapstructure:"project_root"`
	// Docs is the directory backing "doc:" references.
	Docs string `mapstructure:"docs"`
}

// StateConfig holds persistence settings.
type StateConfig struct {
	// Path is the SQLite database path. Empty means the default XDG path.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SWITCHBOARD_*)
// 2. Project config (.switchboard.yaml in current directory or parent)
// 3. User config (~/.config/switchboard/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("SWITCHBOARD")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable. An invalid configuration
// is a startup failure, never a per-request failure.
func (c *Config) Validate() error {
	if c.Classifier.Threshold <= 0 || c.Classifier.Threshold > 1 {
		return fmt.Errorf("classifier.threshold must be in (0,1], got %v", c.Classifier.Threshold)
	}
	if c.Classifier.DecayHalfLife <= 0 {
		return fmt.Errorf("classifier.decay_half_life must be positive, got %v", c.Classifier.DecayHalfLife)
	}
	if c.Dispatch.ConcurrencyCeiling < 1 {
		return fmt.Errorf("dispatch.concurrency_ceiling must be at least 1, got %d", c.Dispatch.ConcurrencyCeiling)
	}
	if c.Dispatch.BatchCeiling < 1 {
		return fmt.Errorf("dispatch.batch_ceiling must be at least 1, got %d", c.Dispatch.BatchCeiling)
	}
	if c.Dispatch.SpecialistTimeout <= 0 {
		return fmt.Errorf("dispatch.specialist_timeout must be positive, got %v", c.Dispatch.SpecialistTimeout)
	}
	if c.Resolver.CacheTTL <= 0 {
		return fmt.Errorf("resolver.cache_ttl must be positive, got %v", c.Resolver.CacheTTL)
	}
	if c.Resolver.MaxDepth < 1 {
		return fmt.Errorf("resolver.max_depth must be at least 1, got %d", c.Resolver.MaxDepth)
	}
	return nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Classifier defaults
	v.SetDefault("classifier.threshold", 0.7)
	v.SetDefault("classifier.decay_half_life", "168h")
	v.SetDefault("classifier.patterns_file", "")

	// Dispatch defaults
	v.SetDefault("dispatch.concurrency_ceiling", 10)
	v.SetDefault("dispatch.batch_ceiling", 4)
	v.SetDefault("dispatch.specialist_timeout", "10s")

	// Resolver defaults
	v.SetDefault("resolver.cache_ttl", "300s")
	v.SetDefault("resolver.max_depth", 5)
	v.SetDefault("resolver.local_scope", ".switchboard")
	v.SetDefault("resolver.user_scope", getUserConfigDir())
	v.SetDefault("resolver.project_root", ".")
	v.SetDefault("resolver.docs", "docs")

	// State defaults
	v.SetDefault("state.path", "")
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			Threshold:     0.7,
			DecayHalfLife: 168 * time.Hour,
		},
		Dispatch: DispatchConfig{
			ConcurrencyCeiling: 10,
			BatchCeiling:       4,
			SpecialistTimeout:  10 * time.Second,
		},
		Resolver: ResolverConfig{
			CacheTTL:    300 * time.Second,
			MaxDepth:    5,
			LocalScope:  ".switchboard",
			UserScope:   getUserConfigDir(),
			ProjectRoot: ".",
			Docs:        "docs",
		},
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// getUserConfigDir returns the XDG config directory for Switchboard.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "switchboard")
	}

	// Fall back to ~/.config/switchboard
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "switchboard")
	}
	return filepath.Join(home, ".config", "switchboard")
}

// findProjectConfig searches for .switchboard.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".switchboard.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
