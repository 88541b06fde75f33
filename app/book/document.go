package book

import (
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
)

const (
	// NavMarker stands for the container's own navigation document in the spine.
	NavMarker          = "nav"
	CoverFileName      = "cover.xhtml"
	NavigationFileName = "contents.xhtml"
	StylesheetName     = "style.css"

	CoverDateLayout = "Monday 02 January 2006"
)

const Stylesheet = `body { font-family: serif; line-height: 1.5; margin: 1em; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.2em; margin-top: 1em; }
ul { margin-left: 1em; }
li { margin-bottom: 0.3em; }
img { max-width: 100%; height: auto; }
p.dateline { font-size: 0.85em; color: #555; }
p.subtitle { font-style: italic; }
div.comment { margin-bottom: 10px; font-family: sans-serif; }
div.comment.root { border-top: 1px solid #eee; padding-top: 10px; margin-top: 10px; }
div.comment-author { font-size: 0.85em; color: #555; margin-bottom: 4px; }
div.comment-body { line-height: 1.4; }
`

// Metadata describes the publication as a whole.
type Metadata struct {
	Identifier string
	Title      string
	Language   string
	Author     string
}

// TOCNode is one entry of the hierarchical table of contents. Grouping nodes
// carry children and point at the first of them.
type TOCNode struct {
	Title    string
	FileName string
	Children []TOCNode
}

type Document struct {
	Metadata
	Date       time.Time
	Cover      digest.Chapter
	Navigation digest.Chapter
	Sections   []digest.Section
	TOC        []TOCNode
	Spine      []string // file names in reading order, led by NavMarker
	Stylesheet string
}

// Chapters returns every content chapter in reading order.
func (d *Document) Chapters() []digest.Chapter {
	var chapters []digest.Chapter
	for _, section := range d.Sections {
		chapters = append(chapters, section.Chapters...)
	}
	return chapters
}

// Titles returns the content chapter titles in reading order.
func (d *Document) Titles() []string {
	chapters := d.Chapters()
	titles := make([]string, 0, len(chapters))
	for _, chapter := range chapters {
		titles = append(titles, chapter.Title)
	}
	return titles
}
