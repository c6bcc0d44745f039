// Package config provides Viper-based configuration loading for the cave
// shuffler.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ShuffleConfig holds the search budgets of the shuffle engine.
type ShuffleConfig struct {
	// Attempts is the number of layouts tried before giving up.
	Attempts int `mapstructure:"attempts"`
	// StairRetries is the number of consecutive failed stair placements
	// tolerated per attempt.
	StairRetries int `mapstructure:"stair_retries"`
	// MaxWidth and MaxHeight cap the randomized grid dimensions.
	MaxWidth  int `mapstructure:"max_width"`
	MaxHeight int `mapstructure:"max_height"`
	// Seed makes runs reproducible. Zero selects a crypto-random source.
	Seed uint64 `mapstructure:"seed"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig controls layout history persistence.
type StorageConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Shuffle ShuffleConfig `mapstructure:"shuffle"`
	// Strategies maps hex area ids (without a 0x prefix) to strategy names,
	// overriding the built-in dispatch table.
	Strategies map[string]string `mapstructure:"strategies"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// StrategyOverrides returns the Strategies section keyed by area id.
//
// Postcondition: Returns the parsed overrides or an error naming the bad key.
func (c Config) StrategyOverrides() (map[int]string, error) {
	out := make(map[int]string, len(c.Strategies))
	for k, v := range c.Strategies {
		id, err := ParseAreaID(k)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

// ParseAreaID parses a hex area id, with or without a 0x prefix.
func ParseAreaID(s string) (int, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid area id %q", s)
	}
	return int(id), nil
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateShuffle(c.Shuffle); err != nil {
		errs = append(errs, err.Error())
	}
	for k, v := range c.Strategies {
		if _, err := ParseAreaID(k); err != nil {
			errs = append(errs, "strategies: "+err.Error())
		}
		if v == "" {
			errs = append(errs, fmt.Sprintf("strategies.%s must not be empty", k))
		}
	}
	if c.Storage.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateShuffle(s ShuffleConfig) error {
	var errs []string
	if s.Attempts < 1 {
		errs = append(errs, fmt.Sprintf("shuffle.attempts must be >= 1, got %d", s.Attempts))
	}
	if s.StairRetries < 1 {
		errs = append(errs, fmt.Sprintf("shuffle.stair_retries must be >= 1, got %d", s.StairRetries))
	}
	// Columns occupy four bits of a position and must not wrap.
	if s.MaxWidth < 1 || s.MaxWidth > 15 {
		errs = append(errs, fmt.Sprintf("shuffle.max_width must be 1-15, got %d", s.MaxWidth))
	}
	if s.MaxHeight < 1 || s.MaxHeight > 16 {
		errs = append(errs, fmt.Sprintf("shuffle.max_height must be 1-16, got %d", s.MaxHeight))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with CAVE_ prefix
	v.SetEnvPrefix("CAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// Default returns the configuration used when no file is given.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults alone always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("shuffle.attempts", 100)
	v.SetDefault("shuffle.stair_retries", 10)
	v.SetDefault("shuffle.max_width", 8)
	v.SetDefault("shuffle.max_height", 16)
	v.SetDefault("shuffle.seed", 0)

	v.SetDefault("storage.enabled", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cave")
	v.SetDefault("database.password", "cave")
	v.SetDefault("database.name", "cave")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
