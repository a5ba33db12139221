package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a config file when it changes and hands the new config to
// the registered callbacks.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	errChan  chan error
	done     chan struct{}
	once     sync.Once

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)
}

// NewWatcher creates a watcher for path, starting from initial.
func NewWatcher(path string, initial *Config) *Watcher {
	if initial == nil {
		initial = DefaultConfig()
	}
	return &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		errChan:  make(chan error, 1),
		done:     make(chan struct{}),
		config:   initial,
	}
}

// OnChange registers a callback. Register callbacks before Start.
func (w *Watcher) OnChange(cb func(*Config)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, cb)
	w.mu.Unlock()
}

// Config returns the most recently loaded config.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Errors delivers watch and reload errors. Errors are dropped while the
// channel is full. The channel is never closed; consumers stop on Done.
func (w *Watcher) Errors() <-chan error {
	return w.errChan
}

// Done is closed by Close.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Start watches the directory of the config file. Watching the directory
// keeps working when editors replace the file instead of writing it.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.watcher = watcher
	go w.watchLoop()
	log.Debugf("Watching config %s", w.path)
	return nil
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// Reload reads the file now and notifies the callbacks.
func (w *Watcher) Reload() {
	select {
	case <-w.done:
		return
	default:
	}

	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.sendError(fmt.Errorf("reload config: %w", err))
		return
	}

	w.mu.Lock()
	w.config = cfg
	callbacks := append([]func(*Config){}, w.onChange...)
	w.mu.Unlock()

	log.Infof("Reloaded config from %s", w.path)
	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errChan <- err:
	default:
		log.Warnf("Config watcher: %v", err)
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}
