package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeHandler receives a freshly loaded configuration, or the error that
// prevented loading it.
type ChangeHandler func(cfg *Config, err error)

// Watcher reloads the configuration when the file backing v changes.
// Only Write and Create events trigger a reload; editors that replace the
// file produce a Create.
type Watcher struct {
	v        *viper.Viper
	mu       sync.Mutex
	handlers []ChangeHandler
}

// NewWatcher creates a watcher for v. Call Start once a config file is in use.
func NewWatcher(v *viper.Viper) *Watcher {
	return &Watcher{v: v}
}

// OnChange registers a handler.
func (w *Watcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start begins watching. It is a no-op when v has no config file.
func (w *Watcher) Start() bool {
	if w.v.ConfigFileUsed() == "" {
		return false
	}
	w.v.OnConfigChange(w.handleEvent)
	w.v.WatchConfig()
	return true
}

func (w *Watcher) handleEvent(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	cfg, err := LoadFrom(w.v)

	w.mu.Lock()
	handlers := append([]ChangeHandler(nil), w.handlers...)
	w.mu.Unlock()

	for _, h := range handlers {
		h(cfg, err)
	}
}
