package digest

import (
	"strings"
	"time"
)

// Generation state

type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

type State struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Content types

// RawEntry is one discovered source item before content extraction.
type RawEntry struct {
	Title     string
	Link      string
	Published *time.Time
	Media     []MediaRef
}

type MediaKind string

const (
	MediaContent   MediaKind = "content"
	MediaThumbnail MediaKind = "thumbnail"
	MediaEnclosure MediaKind = "enclosure"
)

type MediaRef struct {
	URL   string
	Kind  MediaKind
	Width int // 0 when the feed does not say
}

type Image struct {
	Name      string // file name inside the book, e.g. "uk-news-1.jpg"
	MediaType string
	Data      []byte
}

// Chapter is one self-contained content unit of the publication.
type Chapter struct {
	Title      string
	FileName   string
	Body       string
	Section    string
	Images     []Image
	Stylesheet string // set by the assembler
}

type Section struct {
	Name     string
	Chapters []Chapter
}

// Request describes what a single generation run should fetch.
type Request struct {
	ItemCount int
	Sections  []string // allow-list of section names, empty means all
}

// Includes reports whether the named section passes the request's allow-list.
// Names match case-insensitively.
func (r Request) Includes(section string) bool {
	if len(r.Sections) == 0 {
		return true
	}
	section = strings.TrimSpace(section)
	for _, s := range r.Sections {
		if strings.EqualFold(strings.TrimSpace(s), section) {
			return true
		}
	}
	return false
}
