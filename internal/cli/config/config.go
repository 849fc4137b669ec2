// Package config loads alsym settings from alsym.yaml, ALSYM_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alsym/alsym/internal/packages"
	"github.com/alsym/alsym/internal/query"
	"github.com/alsym/alsym/internal/workspace"
)

// EnvPrefix prefixes every environment override, e.g. ALSYM_PACKAGES_PATH
const EnvPrefix = "ALSYM"

// Config represents the alsym configuration
type Config struct {
	Packages  PackagesConfig  `mapstructure:"packages"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Query     QueryConfig     `mapstructure:"query"`
}

// PackagesConfig controls where packages come from
type PackagesConfig struct {
	Path         string `mapstructure:"path"`
	AutoDiscover bool   `mapstructure:"auto_discover"`
	Workers      int    `mapstructure:"workers"`
	Watch        bool   `mapstructure:"watch"`
}

// ExtractorConfig configures the fallback metadata extractor
type ExtractorConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP transport
type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

// LogConfig configures logging
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// QueryConfig configures response shaping
type QueryConfig struct {
	DefaultLimit   int `mapstructure:"default_limit"`
	MaxLimit       int `mapstructure:"max_limit"`
	FieldLimit     int `mapstructure:"field_limit"`
	ProcedureLimit int `mapstructure:"procedure_limit"`
}

// New returns a viper instance with defaults, search paths and environment
// bindings set. Flags are bound to it by the caller.
func New() *viper.Viper {
	v := viper.New()

	defaults := query.DefaultConfig()
	v.SetDefault("packages.path", "")
	v.SetDefault("packages.auto_discover", true)
	v.SetDefault("packages.workers", 4)
	v.SetDefault("packages.watch", false)
	v.SetDefault("extractor.command", "")
	v.SetDefault("extractor.args", []string{})
	v.SetDefault("extractor.timeout", 2*time.Minute)
	v.SetDefault("server.http_addr", "127.0.0.1:8765")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("query.default_limit", defaults.DefaultLimit)
	v.SetDefault("query.max_limit", defaults.MaxLimit)
	v.SetDefault("query.field_limit", defaults.FieldLimit)
	v.SetDefault("query.procedure_limit", defaults.ProcedureLimit)

	v.SetConfigName("alsym")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "alsym"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. file overrides the search paths; a missing
// alsym.yaml on the search paths is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the components cannot run with
func (c *Config) Validate() error {
	if c.Packages.Workers <= 0 {
		return fmt.Errorf("packages.workers must be positive, got: %d", c.Packages.Workers)
	}
	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query.default_limit must be positive, got: %d", c.Query.DefaultLimit)
	}
	if c.Query.MaxLimit <= 0 {
		return fmt.Errorf("query.max_limit must be positive, got: %d", c.Query.MaxLimit)
	}
	if c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit (%d) exceeds query.max_limit (%d)", c.Query.DefaultLimit, c.Query.MaxLimit)
	}
	if c.Query.FieldLimit <= 0 {
		return fmt.Errorf("query.field_limit must be positive, got: %d", c.Query.FieldLimit)
	}
	if c.Query.ProcedureLimit <= 0 {
		return fmt.Errorf("query.procedure_limit must be positive, got: %d", c.Query.ProcedureLimit)
	}
	if c.Extractor.Command != "" && c.Extractor.Timeout <= 0 {
		return fmt.Errorf("extractor.timeout must be positive, got: %s", c.Extractor.Timeout)
	}
	return nil
}

// WorkspaceOptions maps the configuration onto the workspace
func (c *Config) WorkspaceOptions() workspace.Options {
	opts := workspace.Options{
		Query: query.Config{
			DefaultLimit:   c.Query.DefaultLimit,
			MaxLimit:       c.Query.MaxLimit,
			FieldLimit:     c.Query.FieldLimit,
			ProcedureLimit: c.Query.ProcedureLimit,
		},
		Packages: packages.Options{
			Workers:     c.Packages.Workers,
			DefaultPath: c.Packages.Path,
		},
		AutoDiscover: c.Packages.AutoDiscover,
	}
	if c.Extractor.Command != "" {
		opts.Packages.Extractor = &packages.Extractor{
			Command: c.Extractor.Command,
			Args:    c.Extractor.Args,
			Timeout: c.Extractor.Timeout,
		}
	}
	return opts
}
