// Package config handles configuration loading and validation.
//
// Sources, lowest to highest precedence: built-in defaults, a config file
// (YAML, JSON or JSONC), a .env file in the working directory, and TCSCOPE_*
// environment variables. Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/tcscope/internal/logger"
	"github.com/shinji-kodama/tcscope/internal/model"
)

// Err is the base error for invalid configuration.
var Err = errors.New("config error")

// EnvPrefix is prepended to every environment variable, e.g.
// TCSCOPE_PRUNE_FORCE for prune.force.
const EnvPrefix = "TCSCOPE"

// configFileNames are looked up, in order, in each search directory.
var configFileNames = []string{"tcscope.yaml", "tcscope.yml", "tcscope.jsonc", "tcscope.json"}

// Config represents the application configuration.
type Config struct {
	Docker DockerConfig `mapstructure:"docker" yaml:"docker"`

	// Scope is the default scope. Empty means derive it from the current
	// git repository (see internal/scope).
	Scope string `mapstructure:"scope" yaml:"scope"`

	Prune PruneConfig `mapstructure:"prune" yaml:"prune"`
	Logs  LogsConfig  `mapstructure:"logs" yaml:"logs"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`

	// ConfigFilePath stores the path to the loaded config file, empty when
	// only defaults and environment were used.
	ConfigFilePath string `mapstructure:"-" yaml:"-"`
}

// DockerConfig contains Docker-specific settings.
type DockerConfig struct {
	// Host overrides DOCKER_HOST and socket autodetection.
	Host string `mapstructure:"host" yaml:"host"`
}

// PruneConfig holds the reap defaults for run and reap.
type PruneConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Force   bool `mapstructure:"force" yaml:"force"`
}

// LogsConfig controls container log forwarding.
type LogsConfig struct {
	// Attach adds the default log observer to started containers.
	Attach bool `mapstructure:"attach" yaml:"attach"`
}

// LogConfig controls tcscope's own logging.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Load reads configuration from configPath, or from the first config file
// found in the default search directories when configPath is empty.
func Load(configPath string) (*Config, error) {
	return load(configPath, defaultSearchDirs())
}

func defaultSearchDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "tcscope"))
	}
	return dirs
}

func load(configPath string, searchDirs []string) (*Config, error) {
	// .env file is optional
	_ = godotenv.Load() // nolint:errcheck

	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = findConfigFile(searchDirs)
	}
	if configPath != "" {
		if err := readConfigFile(v, configPath); err != nil {
			return nil, fmt.Errorf("error reading config file from %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config from %s: %w", describeSource(configPath), err)
	}
	cfg.ConfigFilePath = configPath

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed for %s: %w", describeSource(configPath), err)
	}
	return &cfg, nil
}

func findConfigFile(dirs []string) string {
	for _, dir := range dirs {
		for _, name := range configFileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// readConfigFile merges a config file into v. JSON files may carry comments
// and trailing commas; they are normalised with jsonc before parsing.
func readConfigFile(v *viper.Viper, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		v.SetConfigType("json")
		return v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data)))
	default:
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}
}

func describeSource(configPath string) string {
	if configPath == "" {
		return "(defaults/environment)"
	}
	return configPath
}

func setDefaults(v *viper.Viper) {
	// Empty defaults are required for AutomaticEnv to see these keys.
	v.SetDefault("docker.host", "")
	v.SetDefault("scope", "")

	v.SetDefault("prune.enabled", true)
	v.SetDefault("prune.force", false)

	v.SetDefault("logs.attach", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.max_backups", 3)
}

// Validate ensures values are usable.
func (c *Config) Validate() error {
	if c.Scope != "" {
		if err := model.ValidateScopeName("scope", c.Scope); err != nil {
			return fmt.Errorf("%w: %w", Err, err)
		}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", Err, err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxAgeDays < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("%w: log.max_size_mb, log.max_age_days and log.max_backups must not be negative", Err)
	}
	return nil
}

// LoggerOptions converts the log section into logger.Options.
func (c *Config) LoggerOptions(verbose bool) logger.Options {
	return logger.Options{
		Level:      c.Log.Level,
		Verbose:    verbose,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxAgeDays: c.Log.MaxAgeDays,
		MaxBackups: c.Log.MaxBackups,
	}
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
