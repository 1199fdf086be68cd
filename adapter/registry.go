package adapter

import (
	"sort"
	"sync"

	"github.com/quarrydb/quarry"
)

// Factory constructs an unconnected Adapter from a Config.
type Factory func(Config) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an adapter factory available under the given backend
// type tag. It is meant to be called from the init function of each
// adapter package, enumerating the supported backends once at process
// start. Registering the same tag twice panics, as does a nil factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("adapter: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("adapter: Register called twice for backend " + name)
	}
	registry[name] = f
}

// Open constructs the adapter for cfg.Type. It does not connect; call
// Connect on the returned adapter. Unknown backend types fail with a
// ConfigError.
func Open(cfg Config) (Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registryMu.RLock()
	f, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, quarry.NewConfigError("unknown backend type %q (registered: %v)", cfg.Type, Backends())
	}
	return f(cfg)
}

// Backends returns the sorted list of registered backend type tags.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
