package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/logging"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Manager holds the current configuration and registry and reloads them
// when the config file changes. Each reload builds a new registry; a parse
// already running keeps the registry it started with.
type Manager struct {
	path string

	mu        sync.RWMutex
	config    *Config
	registry  *refparse.Registry
	callbacks []func(*Config)
}

// NewManager loads path, or the defaults when path is empty.
func NewManager(path string) (*Manager, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, config: cfg, registry: reg}, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Registry returns the current registry (thread-safe).
func (m *Manager) Registry() *refparse.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry
}

// ParseOptions returns the parse options of the current configuration.
func (m *Manager) ParseOptions() refparse.Options {
	return m.Get().ParseOptions()
}

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Reload re-reads the config file. On error the previous configuration
// stays in effect.
func (m *Manager) Reload() error {
	if m.path == "" {
		return nil
	}

	cfg, err := Load(m.path)
	if err != nil {
		logging.ConfigReload(m.path, err)
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		logging.ConfigReload(m.path, err)
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.registry = reg
	callbacks := make([]func(*Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	logging.ConfigReload(m.path, nil, "books", reg.Len())
	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// Watch reloads the configuration whenever the file changes, until ctx is
// done. The parent directory is watched so editors that replace the file
// on save are handled.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		return errors.NewValidation("config", "no config file to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewIO("watch", m.path, err)
	}
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		w.Close()
		return errors.NewIO("watch", m.path, err)
	}

	go m.watchLoop(ctx, w)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	target := filepath.Clean(m.path)
	timer := time.NewTimer(reloadDelay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Error("config watcher error", "path", m.path, "error", err)
		case <-timer.C:
			_ = m.Reload()
		}
	}
}
