// Package config loads the quarry.yaml project configuration with
// QUARRY_-prefixed environment overrides layered on top.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "quarry.yaml"

// envPrefix namespaces the environment overrides. Double underscores
// separate nesting levels: QUARRY_CONNECTIONS__DEFAULT__HOST overrides
// connections.default.host.
const envPrefix = "QUARRY_"

// Migrations configures the migration runner.
type Migrations struct {
	Dir   string `koanf:"dir"`
	Table string `koanf:"table"`
}

// Config is the project-level configuration: named connections plus
// migration settings.
type Config struct {
	// Default names the connection used when none is requested.
	Default     string                    `koanf:"default"`
	Connections map[string]adapter.Config `koanf:"connections"`
	Migrations  Migrations                `koanf:"migrations"`
}

// Load reads the YAML file at path (DefaultPath when empty) and applies
// environment overrides. A missing file with environment configuration
// present is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// Environment-only configuration is valid; anything else is not.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, quarry.NewConfigError("read %s: %v", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, quarry.NewConfigError("environment: %v", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, quarry.NewConfigError("parse %s: %v", path, err)
	}
	if cfg.Migrations.Table == "" {
		cfg.Migrations.Table = "migrations"
	}
	if cfg.Migrations.Dir == "" {
		cfg.Migrations.Dir = "migrations"
	}
	return cfg, nil
}

// envKey maps QUARRY_CONNECTIONS__DEFAULT__HOST to
// connections.default.host.
func envKey(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Connection returns the named connection config; an empty name means
// the default connection.
func (c *Config) Connection(name string) (adapter.Config, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		return adapter.Config{}, quarry.NewConfigError("no default connection configured")
	}
	conn, ok := c.Connections[name]
	if !ok {
		return adapter.Config{}, quarry.NewConfigError("unknown connection %q", name)
	}
	return conn, nil
}

// Open constructs the adapter for the named connection without
// connecting it.
func (c *Config) Open(name string) (adapter.Adapter, error) {
	conn, err := c.Connection(name)
	if err != nil {
		return nil, err
	}
	return adapter.Open(conn)
}
