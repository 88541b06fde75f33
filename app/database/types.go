package database

import (
	"time"
)

type Run struct {
	ID           string     `json:"id"`
	Trigger      string     `json:"trigger"` // manual or schedule
	Status       string     `json:"status"`
	Message      string     `json:"message"`
	ItemCount    int        `json:"item_count"`
	Sections     []string   `json:"sections"` // empty means all
	ChapterCount int        `json:"chapter_count"`
	Titles       []string   `json:"titles"`
	EpubPath     string     `json:"epub_path,omitempty"`
	MobiPath     string     `json:"mobi_path,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RunResult is what a finished run leaves behind.
type RunResult struct {
	ChapterCount int
	Titles       []string
	EpubPath     string
	MobiPath     string
	FinishedAt   time.Time
}
