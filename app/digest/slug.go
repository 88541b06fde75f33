package digest

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug folds a display name into a lower-case ASCII identifier ("Café Life" -> "cafe-life").
// Names with no Latin letters or digits fold to "".
func Slug(name string) string {
	// transform.Chain keeps state, so it is built per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	return b.String()
}

// SectionKeys assigns every section name a file-name key that is unique within
// the run. Keys follow the slugged name; a name that slugs to nothing uses its
// position, and repeats get a numeric suffix ("world", "world-2").
func SectionKeys(names []string) []string {
	keys := make([]string, len(names))
	used := make(map[string]bool, len(names))

	for i, name := range names {
		base := Slug(name)
		if base == "" {
			base = "section-" + strconv.Itoa(i+1)
		}

		key := base
		for n := 2; used[key]; n++ {
			key = base + "-" + strconv.Itoa(n)
		}
		used[key] = true
		keys[i] = key
	}

	return keys
}

// ChapterFileName derives the file identifier of the index-th item of a section.
// Distinct keys never produce the same name since the suffix is digits only.
func ChapterFileName(key string, index int) string {
	return fmt.Sprintf("%s-%d.xhtml", key, index)
}

// ImagePath is how chapter markup references an image added to the book.
func ImagePath(name string) string {
	return "images/" + name
}
