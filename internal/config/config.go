// Package config loads process-wide configuration: defaults, then an optional
// YAML file, then environment overrides. The result is built once at startup
// and passed down explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultAccessTokenExpireMinutes = 30

var (
	ErrInvalidTokenExpiry = errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be a positive integer")
	ErrInvalidLogLevel    = errors.New("log level must be debug, info, warn, or error")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
	ErrMissingDBPath      = errors.New("database path must not be empty")
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	// Path to the embedded sqlite database file.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	// SecretKey signs access tokens. When empty a random key is generated
	// at startup; issued tokens then do not survive a restart.
	SecretKey                string `yaml:"secret_key"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes"`
}

// AccessTokenTTL returns the token validity window as a duration.
func (c AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8000"},
		Database: DatabaseConfig{Path: "blog.db"},
		Auth:     AuthConfig{AccessTokenExpireMinutes: DefaultAccessTokenExpireMinutes},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path names an optional YAML file; a missing
// file is not an error, any other read or parse failure is. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BLOG_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BLOG_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.Auth.SecretKey = v
	}
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidTokenExpiry, v)
		}
		cfg.Auth.AccessTokenExpireMinutes = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		return ErrInvalidTokenExpiry
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}
