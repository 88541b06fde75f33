package feed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/news-digest/app/digest"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops entries rejected by the source's filters (e.g. live blogs, video-only pages).
func (f *Filterer) Run(entries []digest.RawEntry, sourceConfig *Config) []digest.RawEntry {
	if len(sourceConfig.Filters) == 0 {
		return entries
	}

	kept := make([]digest.RawEntry, 0, len(entries))
	for _, entry := range entries {
		if isFiltered, reason := f.applyFilters(entry, sourceConfig.Filters); isFiltered {
			slog.Debug("Entry filtered", "source", sourceConfig.Name, "link", entry.Link, "reason", reason)
			continue
		}
		kept = append(kept, entry)
	}

	return kept
}

func (f *Filterer) applyFilters(entry digest.RawEntry, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(entry, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(entry digest.RawEntry, field string) string {
	switch field {
	case "title":
		return entry.Title
	case "link":
		return entry.Link
	default:
		return ""
	}
}
