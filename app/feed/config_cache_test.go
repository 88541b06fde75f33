package feed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "bbc.yml", `
section: "BBC Top Stories"
url: "https://feeds.example.com/news/rss.xml"

settings:
  enabled: true
  order: 5
  max_items: 3
  timeout: 10
  image_preference: last

filters:
  - field: "link"
    excludes:
      - "/live/"
      - "/av/"

cleanup:
  boilerplate:
    - "Related Topics"
  remove_selectors:
    - "figure.media-player"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 source, got %d", configCache.GetConfigCount())
	}

	sourceConfig, err := configCache.GetConfig("bbc")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Name != "bbc" {
		t.Errorf("Expected name 'bbc', got '%s'", sourceConfig.Name)
	}
	if sourceConfig.SectionName() != "BBC Top Stories" {
		t.Errorf("Expected section 'BBC Top Stories', got '%s'", sourceConfig.SectionName())
	}
	if sourceConfig.Settings.MaxItems != 3 {
		t.Errorf("Expected max items 3, got %d", sourceConfig.Settings.MaxItems)
	}
	if len(sourceConfig.Filters) != 1 || len(sourceConfig.Filters[0].Excludes) != 2 {
		t.Errorf("Expected 1 filter with 2 excludes, got %+v", sourceConfig.Filters)
	}
	if len(sourceConfig.Cleanup.Boilerplate) != 1 || sourceConfig.Cleanup.RemoveSelectors[0] != "figure.media-player" {
		t.Errorf("Unexpected cleanup rules: %+v", sourceConfig.Cleanup)
	}
}

func TestConfigCacheDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "world.yml", `
url: "https://example.com/world/rss"
settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := configCache.GetConfig("world")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.SectionName() != "world" {
		t.Errorf("Expected section name to fall back to 'world', got '%s'", sourceConfig.SectionName())
	}
	if sourceConfig.Settings.Timeout != 15 {
		t.Errorf("Expected default timeout 15, got %d", sourceConfig.Settings.Timeout)
	}
	if sourceConfig.Settings.ImagePreference != ImagePreferLast {
		t.Errorf("Expected default image preference 'last', got '%s'", sourceConfig.Settings.ImagePreference)
	}
}

func TestConfigCacheEnabledOrder(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "c.yml", "url: https://c\nsettings:\n  enabled: true\n  order: 1\n")
	writeSource(t, tempDir, "b.yml", "url: https://b\nsettings:\n  enabled: true\n  order: 2\n")
	writeSource(t, tempDir, "a.yaml", "url: https://a\nsettings:\n  enabled: true\n  order: 2\n")
	writeSource(t, tempDir, "off.yml", "url: https://off\nsettings:\n  enabled: false\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	enabled := configCache.GetEnabledConfigs()
	names := make([]string, 0, len(enabled))
	for _, c := range enabled {
		names = append(names, c.Name)
	}

	if strings.Join(names, ",") != "c,a,b" {
		t.Errorf("Expected order 'c,a,b', got '%s'", strings.Join(names, ","))
	}
}

func TestConfigCacheValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"missing url", "settings:\n  enabled: true\n", "source URL is required"},
		{"negative items", "url: https://x\nsettings:\n  max_items: -1\n", "max items must be non-negative"},
		{"bad preference", "url: https://x\nsettings:\n  image_preference: biggest\n", "invalid image preference"},
		{"bad filter field", "url: https://x\nfilters:\n  - field: body\n    excludes: [x]\n", "invalid filter field"},
		{"empty filter", "url: https://x\nfilters:\n  - field: link\n", "at least one include or exclude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeSource(t, tempDir, "bad.yml", tt.content)

			err := NewConfigCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing '%s', got '%v'", tt.errText, err)
			}
		})
	}
}

func TestConfigCacheBuiltInSources(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "missing"))
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	enabled := configCache.GetEnabledConfigs()
	expected := []string{"UK News", "Technology", "World", "Scotland", "BBC Top Stories"}
	if len(enabled) != len(expected) {
		t.Fatalf("Expected %d built-in sources, got %d", len(expected), len(enabled))
	}
	for i, name := range expected {
		if enabled[i].SectionName() != name {
			t.Errorf("Expected section %d to be '%s', got '%s'", i, name, enabled[i].SectionName())
		}
	}
}

func TestConfigCacheWatchReloads(t *testing.T) {
	tempDir := t.TempDir()
	writeSource(t, tempDir, "one.yml", "url: https://one\nsettings:\n  enabled: true\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := configCache.Watch(ctx); err != nil {
		t.Fatalf("Expected watch to start, got: %v", err)
	}

	writeSource(t, tempDir, "two.yml", "url: https://two\nsettings:\n  enabled: true\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if configCache.GetConfigCount() == 2 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("Expected 2 sources after reload, got %d", configCache.GetConfigCount())
}
