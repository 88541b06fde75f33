package book

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/news-digest/app/digest"
)

type Assembler struct {
	metadata Metadata
}

func NewAssembler(metadata Metadata) *Assembler {
	return &Assembler{metadata: metadata}
}

// Run builds the publication from sections in the order given. Sections without
// chapters are left out; with none at all the result holds only the cover and an
// empty navigation page.
func (a *Assembler) Run(sections []digest.Section, date time.Time) (*Document, error) {
	doc := &Document{
		Metadata:   a.metadata,
		Date:       date,
		Stylesheet: StylesheetName,
	}
	if doc.Identifier == "" {
		doc.Identifier = "urn:uuid:" + uuid.NewString()
	}

	for _, section := range sections {
		if len(section.Chapters) == 0 {
			continue
		}
		chapters := make([]digest.Chapter, len(section.Chapters))
		copy(chapters, section.Chapters)
		doc.Sections = append(doc.Sections, digest.Section{Name: section.Name, Chapters: chapters})
	}

	doc.Cover = a.cover(doc)
	doc.Navigation = a.navigation(doc)

	doc.TOC = []TOCNode{
		{Title: doc.Cover.Title, FileName: doc.Cover.FileName},
		{Title: doc.Navigation.Title, FileName: doc.Navigation.FileName},
	}
	for _, section := range doc.Sections {
		group := TOCNode{Title: section.Name, FileName: section.Chapters[0].FileName}
		for _, chapter := range section.Chapters {
			group.Children = append(group.Children, TOCNode{Title: chapter.Title, FileName: chapter.FileName})
		}
		doc.TOC = append(doc.TOC, group)
	}

	doc.Spine = []string{NavMarker, doc.Cover.FileName, doc.Navigation.FileName}
	for _, chapter := range doc.Chapters() {
		doc.Spine = append(doc.Spine, chapter.FileName)
	}

	doc.Cover.Stylesheet = doc.Stylesheet
	doc.Navigation.Stylesheet = doc.Stylesheet
	for i := range doc.Sections {
		for j := range doc.Sections[i].Chapters {
			doc.Sections[i].Chapters[j].Stylesheet = doc.Stylesheet
		}
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (a *Assembler) cover(doc *Document) digest.Chapter {
	chapters := doc.Chapters()

	var b strings.Builder
	if len(chapters) > 0 {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(chapters[0].Title))
		fmt.Fprintf(&b, "<p class=\"subtitle\">plus %d other stories</p>\n", len(chapters)-1)
	} else {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(doc.Title))
	}
	fmt.Fprintf(&b, "<h3>%s</h3>\n", html.EscapeString(doc.Date.Format(CoverDateLayout)))
	fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(doc.Title))

	return digest.Chapter{
		Title:    "Cover",
		FileName: CoverFileName,
		Body:     b.String(),
	}
}

func (a *Assembler) navigation(doc *Document) digest.Chapter {
	var b strings.Builder
	b.WriteString("<h1>Table of Contents</h1>\n")

	for _, section := range doc.Sections {
		fmt.Fprintf(&b, "<h2>%s</h2>\n<ul>\n", html.EscapeString(section.Name))
		for _, chapter := range section.Chapters {
			fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n",
				html.EscapeString(chapter.FileName), html.EscapeString(chapter.Title))
		}
		b.WriteString("</ul>\n")
	}

	return digest.Chapter{
		Title:    "Contents",
		FileName: NavigationFileName,
		Body:     b.String(),
	}
}

// Validate checks that every chapter is reachable exactly once from the spine
// and from its section's TOC group.
func Validate(doc *Document) error {
	if len(doc.Spine) < 3 || doc.Spine[0] != NavMarker || doc.Spine[1] != doc.Cover.FileName || doc.Spine[2] != doc.Navigation.FileName {
		return digest.Errorf(digest.ErrAssembly, "validate spine", "spine must start with navigation marker, cover and navigation")
	}

	spineCount := make(map[string]int, len(doc.Spine))
	for _, fileName := range doc.Spine {
		spineCount[fileName]++
	}

	tocCount := make(map[string]int)
	for _, node := range doc.TOC {
		for _, child := range node.Children {
			tocCount[child.FileName]++
		}
	}

	reserved := map[string]bool{CoverFileName: true, NavigationFileName: true}
	for _, chapter := range doc.Chapters() {
		if chapter.FileName == "" {
			return digest.Errorf(digest.ErrAssembly, "validate chapters", "chapter %q has no file name", chapter.Title)
		}
		if reserved[chapter.FileName] {
			return digest.Errorf(digest.ErrAssembly, "validate chapters", "chapter %q uses reserved file name %s", chapter.Title, chapter.FileName)
		}
		if spineCount[chapter.FileName] != 1 {
			return digest.Errorf(digest.ErrAssembly, "validate spine", "chapter file %s appears %d times in spine", chapter.FileName, spineCount[chapter.FileName])
		}
		if tocCount[chapter.FileName] != 1 {
			return digest.Errorf(digest.ErrAssembly, "validate toc", "chapter file %s appears %d times in table of contents", chapter.FileName, tocCount[chapter.FileName])
		}
	}

	return nil
}
