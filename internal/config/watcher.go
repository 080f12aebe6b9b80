package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
)

// Watcher watches a config file for changes and reloads it.
type Watcher struct {
	path       string
	flags      *pflag.FlagSet
	onChange   chan *Config
	onError    chan error
	debounce   time.Duration
	lastConfig *Config
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewWatcher creates a new config file watcher. The flag set (may be
// nil) is reapplied on every reload so explicit CLI overrides survive.
func NewWatcher(path string, flags *pflag.FlagSet, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		flags:    flags,
		onChange: make(chan *Config, 1),
		onError:  make(chan error, 1),
		debounce: 100 * time.Millisecond,
		logger:   logger.With(slog.String("component", "config-watcher")),
	}
}

// Changes returns the channel that receives new configs on file changes.
func (w *Watcher) Changes() <-chan *Config {
	return w.onChange
}

// Errors returns the channel that receives errors during reload.
func (w *Watcher) Errors() <-chan error {
	return w.onError
}

// Start begins watching the config file.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return err
	}

	w.logger.Debug("started watching config file", slog.String("path", w.path))
	go w.watchLoop(ctx, watcher)
	return nil
}

// watchLoop handles file system events.
func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var debounceTimer *time.Timer
	var debounceChan <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Only react to write and create events
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.Debug("config file change detected", slog.String("op", event.Op.String()))

			// Debounce rapid changes
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			debounceChan = debounceTimer.C

		case <-debounceChan:
			debounceChan = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", slog.Any("error", err))
			select {
			case w.onError <- err:
			default:
			}
		}
	}
}

// reload loads the config file and sends it on the change channel.
func (w *Watcher) reload() {
	cfg, err := Load(w.path, w.flags)
	if err != nil {
		w.logger.Error("failed to reload config", slog.Any("error", err))
		select {
		case w.onError <- err:
		default:
		}
		return
	}

	w.mu.Lock()
	w.lastConfig = cfg
	w.mu.Unlock()

	w.logger.Info("config reloaded", slog.String("path", w.path))

	select {
	case w.onChange <- cfg:
	default:
		// Channel full, drop older update
		w.logger.Warn("config change channel full, dropping update")
	}
}

// LastConfig returns the last successfully loaded config.
func (w *Watcher) LastConfig() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastConfig
}
