// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid pool config")

// Config is the file representation of a pool.
type Config struct {
	Name         string `yaml:"name"`         // Prefix for worker names
	Workers      int    `yaml:"workers"`      // Number of workers; 0 means one
	LockOSThread bool   `yaml:"lockOSThread"` // Pin workers to OS threads
	LogLevel     string `yaml:"logLevel"`     // debug, info, warn or error; empty keeps the default logger
}

// ParseConfig decodes and validates a YAML pool config.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML pool config from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks the config for values New cannot honor.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
}

// Options validates the config and converts it into pool options.
func (c *Config) Options() ([]Option, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithName(c.Name),
		WithLockOSThread(c.LockOSThread),
	}
	if c.LogLevel != "" {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		opts = append(opts, WithLogger(logger))
	}
	return opts, nil
}

// NewFromConfig validates cfg and creates a pool from it.
// Options in opts are applied after the config and take precedence.
func NewFromConfig(cfg *Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfgOpts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(cfg.Workers, append(cfgOpts, opts...)...)
}
