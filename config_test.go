// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

package fixedpool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestParseConfig tests decoding a complete config.
func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
name: render
workers: 3
lockOSThread: true
logLevel: debug
`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Name != "render" || cfg.Workers != 3 || !cfg.LockOSThread || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

// TestParseConfig_Invalid tests validation and decode errors.
func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		invalid bool
	}{
		{"negative workers", "workers: -1", true},
		{"unknown level", "logLevel: verbose", true},
		{"bad yaml", "workers: [", false},
	}
	for _, tt := range tests {
		_, err := ParseConfig([]byte(tt.data))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if got := errors.Is(err, ErrInvalidConfig); got != tt.invalid {
			t.Errorf("%s: errors.Is(err, ErrInvalidConfig) = %v, want %v (err: %v)", tt.name, got, tt.invalid, err)
		}
	}
}

// TestLoadConfig tests reading a config file.
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	if err := os.WriteFile(path, []byte("workers: 2\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig should fail for a missing file")
	}
}

// TestNewFromConfig tests building a pool from a config.
func TestNewFromConfig(t *testing.T) {
	cfg := &Config{Name: "cfg", Workers: 0}
	p, err := NewFromConfig(cfg, WithLogger(nil))
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer p.Close()

	if p.Size() != 1 {
		t.Errorf("Size() = %d, want 1", p.Size())
	}
	if p.logger != nil {
		t.Error("explicit WithLogger(nil) should override the config")
	}
	if got := p.Stats()[0].Name; got != "cfg-1" {
		t.Errorf("worker name = %q, want %q", got, "cfg-1")
	}

	if _, err := NewFromConfig(&Config{Workers: -2}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got: %v", err)
	}
}

// TestConfig_OptionsLogLevel tests that a log level installs a dedicated logger.
func TestConfig_OptionsLogLevel(t *testing.T) {
	p, err := NewFromConfig(&Config{Workers: 1, LogLevel: "error"})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer p.Close()
	if p.logger == nil {
		t.Fatal("logger should be set")
	}
}

// TestConfig_OptionsInvalidLevel tests that Options reports an unknown level
// instead of silently using the default.
func TestConfig_OptionsInvalidLevel(t *testing.T) {
	cfg := &Config{Workers: 1, LogLevel: "verbose"}
	opts, err := cfg.Options()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got: %v", err)
	}
	if opts != nil {
		t.Errorf("expected no options on error, got %d", len(opts))
	}

	opts, err = (&Config{LogLevel: "WARN"}).Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if len(opts) != 3 {
		t.Errorf("len(opts) = %d, want 3", len(opts))
	}
}
