package feed

// Source configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Section  string         `yaml:"section"` // Display name of the digest section
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
	Cleanup  ConfigCleanup  `yaml:"cleanup"`
}

type ConfigSettings struct {
	Enabled         bool   `yaml:"enabled"`
	Order           int    `yaml:"order"`            // position of the section in the digest
	MaxItems        int    `yaml:"max_items"`        // 0 uses the run's item count
	Timeout         int    `yaml:"timeout"`          // seconds
	ImagePreference string `yaml:"image_preference"` // last, third or widest
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ConfigCleanup holds source-specific rules applied after readability extraction.
type ConfigCleanup struct {
	Boilerplate     []string `yaml:"boilerplate"`      // drop elements whose whole text equals one of these
	RemoveSelectors []string `yaml:"remove_selectors"` // CSS selectors dropped from the extract
}

// SectionName is the name the source's chapters are grouped under.
func (c *Config) SectionName() string {
	if c.Section != "" {
		return c.Section
	}
	return c.Name
}

const (
	ImagePreferLast   = "last"
	ImagePreferThird  = "third"
	ImagePreferWidest = "widest"
)
