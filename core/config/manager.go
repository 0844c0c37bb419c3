package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Manager holds the active configuration behind an atomic pointer so
// concurrent request handlers read a consistent snapshot without locking.
type Manager struct {
	current atomic.Pointer[Config]

	watchers  []func(*Config)
	watcherMu sync.RWMutex
}

// NewManager creates a Manager seeded with defaults.
func NewManager() *Manager {
	m := &Manager{}
	m.current.Store(Default())
	return m
}

// Get returns the current configuration snapshot. The returned value must be
// treated as read-only.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Load reads a YAML file, validates it, and installs it atomically.
// A missing file leaves the defaults in place.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return err
	}

	m.current.Store(cfg)
	m.notify(cfg)
	return nil
}

// Watch registers a callback invoked after each successful reload.
func (m *Manager) Watch(fn func(*Config)) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	m.watchers = append(m.watchers, fn)
}

func (m *Manager) notify(cfg *Config) {
	m.watcherMu.RLock()
	defer m.watcherMu.RUnlock()
	for _, fn := range m.watchers {
		fn(cfg)
	}
}
