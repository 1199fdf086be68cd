package adapter

import "github.com/quarrydb/quarry"

// PoolConfig bounds the connection pool, where the backend supports one.
type PoolConfig struct {
	Min int `koanf:"min"`
	Max int `koanf:"max"`
}

// Config describes one backend connection.
//
// URI, when set, overrides the discrete host fields and is passed to the
// driver as-is. Path is used by file-based engines (SQLite); use
// ":memory:" for an in-memory database.
type Config struct {
	Type     string            `koanf:"type"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	SSL      bool              `koanf:"ssl"`
	URI      string            `koanf:"uri"`
	Path     string            `koanf:"path"`
	Pool     PoolConfig        `koanf:"pool"`
	Options  map[string]string `koanf:"options"`
}

// Validate reports configuration combinations no adapter can serve.
func (c Config) Validate() error {
	if c.Type == "" {
		return quarry.NewConfigError("missing backend type")
	}
	if c.URI == "" && c.Path == "" && c.Database == "" {
		return quarry.NewConfigError("%s: missing database name", c.Type)
	}
	if c.Pool.Min < 0 || c.Pool.Max < 0 || (c.Pool.Max > 0 && c.Pool.Min > c.Pool.Max) {
		return quarry.NewConfigError("%s: invalid pool bounds min=%d max=%d", c.Type, c.Pool.Min, c.Pool.Max)
	}
	return nil
}
