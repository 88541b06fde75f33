package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

// Run loads every source file. Without a sources directory the built-in sources are used.
func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		slog.Info("Sources directory not found, using built-in sources", "dir", cc.sourcesDir)
		cc.replace(DefaultConfigs())
		return nil
	}

	configs, err := cc.loadAll()
	if err != nil {
		return err
	}

	cc.replace(configs)
	return nil
}

func (cc *ConfigCache) loadAll() (map[string]*Config, error) {
	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	yamlFiles, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	configs := make(map[string]*Config, len(files))
	for _, file := range files {
		sourceConfig, err := cc.parseConfig(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		sourceConfig.Name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		if err := cc.validateConfig(sourceConfig); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		configs[sourceConfig.Name] = sourceConfig
		slog.Debug("Configuration loaded", "source", sourceConfig.Name, "section", sourceConfig.SectionName(), "enabled", sourceConfig.Settings.Enabled)
	}

	return configs, nil
}

func (cc *ConfigCache) replace(configs map[string]*Config) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache = configs
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[name]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", name)
	}
	return sourceConfig, nil
}

// GetEnabledConfigs returns enabled sources in digest order (order, then name).
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabled = append(enabled, v)
		}
	}

	sort.Slice(enabled, func(i, j int) bool {
		if enabled[i].Settings.Order != enabled[j].Settings.Order {
			return enabled[i].Settings.Order < enabled[j].Settings.Order
		}
		return enabled[i].Name < enabled[j].Name
	})
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

// Watch reloads the sources directory whenever a file in it changes, until ctx is done.
// A reload that fails keeps the previously loaded sources.
func (cc *ConfigCache) Watch(ctx context.Context) error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(cc.sourcesDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", cc.sourcesDir, err)
	}

	go func() {
		defer watcher.Close()

		// Editors emit bursts of events; reload once things settle.
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					debounce = time.After(250 * time.Millisecond)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Sources watcher error", "error", err)
			case <-debounce:
				debounce = nil
				configs, err := cc.loadAll()
				if err != nil {
					slog.Error("Failed to reload sources, keeping previous set", "error", err)
					continue
				}
				cc.replace(configs)
				slog.Info("Sources reloaded", "count", len(configs))
			}
		}
	}()

	return nil
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sourceConfig.Settings.Timeout == 0 {
		sourceConfig.Settings.Timeout = 15
	}
	if sourceConfig.Settings.ImagePreference == "" {
		sourceConfig.Settings.ImagePreference = ImagePreferLast
	}

	return &sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	requiredFields := map[string]string{
		"source name": sourceConfig.Name,
		"source URL":  sourceConfig.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	nonNegativeFields := map[string]int{
		"max items": sourceConfig.Settings.MaxItems,
		"timeout":   sourceConfig.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	switch sourceConfig.Settings.ImagePreference {
	case ImagePreferLast, ImagePreferThird, ImagePreferWidest:
	default:
		return fmt.Errorf("invalid image preference: %s", sourceConfig.Settings.ImagePreference)
	}

	validFields := map[string]bool{
		"title": true,
		"link":  true,
	}

	for i, filter := range sourceConfig.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

// DefaultConfigs are the sources used when no sources directory exists.
func DefaultConfigs() map[string]*Config {
	guardian := func(name, section, url string, order int) *Config {
		return &Config{
			Name:    name,
			Section: section,
			URL:     url,
			Settings: ConfigSettings{
				Enabled:         true,
				Order:           order,
				Timeout:         15,
				ImagePreference: ImagePreferThird,
			},
		}
	}

	configs := map[string]*Config{
		"guardian-uk":         guardian("guardian-uk", "UK News", "https://www.theguardian.com/uk-news/rss", 1),
		"guardian-technology": guardian("guardian-technology", "Technology", "https://www.theguardian.com/technology/rss", 2),
		"guardian-world":      guardian("guardian-world", "World", "https://www.theguardian.com/world/rss", 3),
		"guardian-scotland":   guardian("guardian-scotland", "Scotland", "https://www.theguardian.com/uk/scotland/rss", 4),
		"bbc": {
			Name:    "bbc",
			Section: "BBC Top Stories",
			URL:     "http://feeds.bbci.co.uk/news/rss.xml",
			Settings: ConfigSettings{
				Enabled:         true,
				Order:           5,
				Timeout:         15,
				ImagePreference: ImagePreferLast,
			},
			Filters: []ConfigFilter{
				{Field: "link", Excludes: []string{"/live/", "/av/"}},
			},
			Cleanup: ConfigCleanup{
				Boilerplate:     []string{"Related Topics"},
				RemoveSelectors: []string{"figure.media-player"},
			},
		},
	}

	return configs
}
