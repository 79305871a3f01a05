package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ConfigWatcher watches the dynamic configuration file and reloads it
// on change, so monitoring limits can be tuned without a restart.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *DynamicConfig
	mu       sync.RWMutex
	onChange []func(*DynamicConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// DynamicConfig represents runtime-changeable configuration
type DynamicConfig struct {
	Monitoring MonitoringLimits `yaml:"monitoring"`
	Metadata   ConfigMetadata   `yaml:"metadata"`
}

// MonitoringLimits holds the tunable knobs of the event monitor
type MonitoringLimits struct {
	// EventMaxAgeHours bounds how long events are kept before a purge
	EventMaxAgeHours int `yaml:"event_max_age_hours"`

	// MaxEventsPerQuery caps the default page size of event queries
	MaxEventsPerQuery int `yaml:"max_events_per_query"`

	// StreamBacklogSize is how many events a new stream replays
	StreamBacklogSize int `yaml:"stream_backlog_size"`
}

// ConfigMetadata holds metadata about the configuration
type ConfigMetadata struct {
	Version   string    `yaml:"version"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// NewConfigWatcher loads the file and starts tracking it for changes
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	current, err := loadDynamicConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Watch the directory too so atomic saves (write to temp, rename)
	// are still observed.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		logger.Warn("Failed to watch config directory", zap.Error(err))
	}

	return &ConfigWatcher{
		path:    configPath,
		watcher: watcher,
		current: current,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes
func (w *ConfigWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *ConfigWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Configuration watcher stopped")
}

func (w *ConfigWatcher) watchLoop() {
	// Debounce so editors that write in bursts trigger one reload.
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, w.handleConfigChange)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *ConfigWatcher) handleConfigChange() {
	w.logger.Info("Configuration file changed, reloading", zap.String("path", w.path))

	newConfig, err := loadDynamicConfig(w.path)
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}

	if err := validateDynamicConfig(newConfig); err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = newConfig
	handlers := append([]func(*DynamicConfig){}, w.onChange...)
	w.mu.Unlock()

	for _, handler := range handlers {
		go handler(newConfig)
	}

	w.logger.Info("Configuration reloaded",
		zap.String("version", newConfig.Metadata.Version),
	)
}

// OnChange registers a callback for configuration changes
func (w *ConfigWatcher) OnChange(handler func(*DynamicConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// GetCurrent returns the current configuration
func (w *ConfigWatcher) GetCurrent() *DynamicConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// GetMonitoringLimits returns the current monitoring limits
func (w *ConfigWatcher) GetMonitoringLimits() MonitoringLimits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Monitoring
}

func validateDynamicConfig(config *DynamicConfig) error {
	if config.Monitoring.EventMaxAgeHours <= 0 {
		return fmt.Errorf("event_max_age_hours must be positive")
	}
	if config.Monitoring.MaxEventsPerQuery <= 0 {
		return fmt.Errorf("max_events_per_query must be positive")
	}
	if config.Monitoring.StreamBacklogSize < 0 {
		return fmt.Errorf("stream_backlog_size cannot be negative")
	}
	return nil
}

func loadDynamicConfig(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &DynamicConfig{
		Monitoring: MonitoringLimits{
			EventMaxAgeHours:  24,
			MaxEventsPerQuery: 100,
			StreamBacklogSize: 20,
		},
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if config.Metadata.Version == "" {
		config.Metadata.Version = "1.0.0"
	}
	config.Metadata.UpdatedAt = time.Now()
	return config, nil
}
