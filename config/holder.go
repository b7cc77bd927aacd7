// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// setting is one configuration value compared across reloads.
type setting struct {
	name       string
	reloadable bool
	value      func(*Config) string
}

// settings lists the values a reload reports on. Only logging is applied
// live; the rest is read once when the server starts.
var settings = []setting{
	{"logging.level", true, func(c *Config) string { return c.Logging.Level }},
	{"logging.format", true, func(c *Config) string { return c.Logging.Format }},
	{"server.host", false, func(c *Config) string { return c.Server.Host }},
	{"server.port", false, func(c *Config) string { return strconv.Itoa(c.Server.Port) }},
	{"database.driver", false, func(c *Config) string { return c.Database.Driver }},
	{"database.dsn", false, func(c *Config) string { return c.Database.DSN }},
	{"auth.mode", false, func(c *Config) string { return c.Auth.Mode }},
	{"billing.mode", false, func(c *Config) string { return c.Billing.Mode }},
	{"billing.meter_event_name", false, func(c *Config) string { return c.Billing.MeterEventName }},
	{"downloads.counter_mode", false, func(c *Config) string { return c.Downloads.CounterMode }},
	{"downloads.idempotency", false, func(c *Config) string { return c.Downloads.Idempotency }},
	{"http.legacy_errors", false, func(c *Config) string { return strconv.FormatBool(c.HTTP.LegacyErrors) }},
}

// ReloadableFields returns the settings a reload applies without restart.
func ReloadableFields() []string {
	return settingNames(true)
}

// NonReloadableFields returns the settings that need a restart.
func NonReloadableFields() []string {
	return settingNames(false)
}

func settingNames(reloadable bool) []string {
	var names []string
	for _, s := range settings {
		if s.reloadable == reloadable {
			names = append(names, s.name)
		}
	}
	return names
}

// ChangedFields lists the tracked settings that differ between two configs,
// split by whether a reload applies them.
func ChangedFields(old, new *Config) (live, restart []string) {
	for _, s := range settings {
		if s.value(old) == s.value(new) {
			continue
		}
		if s.reloadable {
			live = append(live, s.name)
		} else {
			restart = append(restart, s.name)
		}
	}
	return live, restart
}

// Holder serves the current configuration and swaps it on reload.
// Reloads come from Reload, the file watcher, or SIGHUP.
type Holder struct {
	path   string
	logger zerolog.Logger

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)
	onError  []func(error)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the file at path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		path:   absPath,
		logger: logger.With().Str("config", absPath).Logger(),
		config: cfg,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// OnChange registers fn to receive every successfully reloaded config.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnError registers fn to receive reload failures.
func (h *Holder) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = append(h.onError, fn)
}

// Reload reads the file again. On failure the previous config stays active.
func (h *Holder) Reload() error {
	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping previous config")
		for _, fn := range h.errorListeners() {
			fn(err)
		}
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	live, restart := ChangedFields(oldCfg, newCfg)
	if len(restart) > 0 {
		h.logger.Warn().Strs("fields", restart).Msg("changed settings take effect after restart")
	}
	h.logger.Info().Strs("applied", live).Msg("configuration reloaded")

	for _, fn := range listeners {
		fn(newCfg)
	}
	return nil
}

func (h *Holder) errorListeners() []func(error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]func(error){}, h.onError...)
}

// WatchFile reloads whenever the config file is written or replaced.
// The parent directory is watched so editors that save by rename are seen.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop(watcher)

	h.logger.Info().Msg("watching config file for changes")
	return nil
}

func (h *Holder) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			h.logger.Debug().Str("op", event.Op.String()).Msg("config file changed")
			h.Reload()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// WatchSignals reloads on SIGHUP until Stop is called.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP")
				h.Reload()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}
