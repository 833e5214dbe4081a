package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/buildconf/internal/buildconfig"
)

const (
	defaultSource        = "buildconf.yaml"
	defaultWatchInterval = time.Second
)

// Config aggregates runtime configuration of the buildconf process resolved
// from multiple sources.
// Precedence: CLI flags > YAML settings > Environment variables > Defaults
type Config struct {
	Source              string        `env:"BUILDCONF_SOURCE" envDefault:"buildconf.yaml"`
	Format              string        `env:"BUILDCONF_FORMAT" envDefault:"json"`
	AllowUnknownPlugins bool          `env:"BUILDCONF_ALLOW_UNKNOWN_PLUGINS" envDefault:"false"`
	ExtraPlugins        []string      `env:"BUILDCONF_EXTRA_PLUGINS" envSeparator:","`
	LogLevel            string        `env:"BUILDCONF_LOG_LEVEL" envDefault:"info"`
	WatchInterval       time.Duration `env:"BUILDCONF_WATCH_INTERVAL" envDefault:"1s"`
}

// OutputFormat returns the validated output format.
func (c Config) OutputFormat() buildconfig.Format {
	format, err := buildconfig.ParseFormat(c.Format)
	if err != nil {
		return buildconfig.FormatJSON
	}
	return format
}

// yamlConfig represents the YAML settings file structure.
type yamlConfig struct {
	Source              string   `yaml:"source"`
	Format              string   `yaml:"format"`
	AllowUnknownPlugins *bool    `yaml:"allow_unknown_plugins"`
	ExtraPlugins        []string `yaml:"extra_plugins"`
	LogLevel            string   `yaml:"log_level"`
	WatchInterval       string   `yaml:"watch_interval"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	SettingsFile        string
	Source              *string
	Format              *string
	AllowUnknownPlugins *bool
	ExtraPlugins        []string
	LogLevel            *string
	WatchInterval       *time.Duration
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML settings > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	// Defaults and environment variables
	cfg, err := loadFromEnv()
	if err != nil {
		return Config{}, err
	}

	// Load from YAML settings file if specified
	if overrides != nil && overrides.SettingsFile != "" {
		yamlCfg, err := loadFromFile(overrides.SettingsFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML settings: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, err
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	cfg.ExtraPlugins = normalizePluginList(cfg.ExtraPlugins)

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadFromEnv returns defaults overridden by BUILDCONF_* variables.
func loadFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// loadFromFile loads configuration from a YAML settings file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML settings to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Source != "" {
		cfg.Source = yamlCfg.Source
	}

	if yamlCfg.Format != "" {
		cfg.Format = yamlCfg.Format
	}

	if yamlCfg.AllowUnknownPlugins != nil {
		cfg.AllowUnknownPlugins = *yamlCfg.AllowUnknownPlugins
	}

	if len(yamlCfg.ExtraPlugins) > 0 {
		cfg.ExtraPlugins = append(cfg.ExtraPlugins, yamlCfg.ExtraPlugins...)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.WatchInterval != "" {
		d, err := time.ParseDuration(yamlCfg.WatchInterval)
		if err != nil {
			return fmt.Errorf("parse watch_interval: %w", err)
		}
		cfg.WatchInterval = d
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Source != nil && *overrides.Source != "" {
		cfg.Source = *overrides.Source
	}

	if overrides.Format != nil && *overrides.Format != "" {
		cfg.Format = *overrides.Format
	}

	if overrides.AllowUnknownPlugins != nil {
		cfg.AllowUnknownPlugins = *overrides.AllowUnknownPlugins
	}

	if len(overrides.ExtraPlugins) > 0 {
		cfg.ExtraPlugins = append(cfg.ExtraPlugins, overrides.ExtraPlugins...)
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.WatchInterval != nil {
		cfg.WatchInterval = *overrides.WatchInterval
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Source) == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	if _, err := buildconfig.ParseFormat(cfg.Format); err != nil {
		return err
	}
	if !isValidLogLevel(cfg.LogLevel) {
		return fmt.Errorf("log level must be one of: debug, info, warn, error")
	}
	if cfg.WatchInterval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// normalizePluginList trims entries and drops blanks and repeats, keeping order.
func normalizePluginList(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
