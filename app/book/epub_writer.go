package book

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lysyi3m/news-digest/app/digest"
)

const (
	contentDir       = "OEBPS"
	packageFileName  = "content.opf"
	navDocFileName   = "nav.xhtml"
	ncxFileName      = "toc.ncx"
	packageUniqueID  = "pub-id"
	navDocID         = "nav"
	ncxID            = "ncx"
	stylesheetID     = "css"
	xhtmlMediaType   = "application/xhtml+xml"
	modifiedProperty = "dcterms:modified"
	modifiedLayout   = "2006-01-02T15:04:05Z"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + contentDir + `/` + packageFileName + `" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

const pageTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
<meta charset="utf-8"/>
<title>%s</title>
<link rel="stylesheet" type="text/css" href="%s"/>
</head>
<body>
%s
</body>
</html>
`

// Package document

type opfPackage struct {
	XMLName          xml.Name    `xml:"http://www.idpf.org/2007/opf package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         []opfItem   `xml:"manifest>item"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XmlnsDc    string         `xml:"xmlns:dc,attr"`
	Identifier opfIdentifier  `xml:"dc:identifier"`
	Title      string         `xml:"dc:title"`
	Language   string         `xml:"dc:language"`
	Creator    string         `xml:"dc:creator,omitempty"`
	Meta       []opfMetaEntry `xml:"meta"`
}

type opfIdentifier struct {
	ID   string `xml:"id,attr"`
	Data string `xml:",chardata"`
}

type opfMetaEntry struct {
	Property string `xml:"property,attr"`
	Data     string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc   string       `xml:"toc,attr"`
	Items []opfItemref `xml:"itemref"`
}

type opfItemref struct {
	Idref string `xml:"idref,attr"`
}

// Navigation document and legacy NCX

type navElement struct {
	XMLName  xml.Name  `xml:"nav"`
	EpubType string    `xml:"epub:type,attr"`
	Heading  string    `xml:"h1"`
	Items    []navItem `xml:"ol>li"`
}

type navItem struct {
	Link     navLink   `xml:"a"`
	Children []navItem `xml:"ol>li,omitempty"`
}

type navLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:",chardata"`
}

type ncxDocument struct {
	XMLName xml.Name      `xml:"http://www.daisy.org/z3986/2005/ncx/ ncx"`
	Version string        `xml:"version,attr"`
	Meta    ncxMeta       `xml:"head>meta"`
	Title   string        `xml:"docTitle>text"`
	NavMap  []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxNavPoint struct {
	ID       string        `xml:"id,attr"`
	Text     string        `xml:"navLabel>text"`
	Content  ncxContent    `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint,omitempty"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

type containerEntry struct {
	name string
	data []byte
}

// EpubWriter serializes a Document into an EPUB 3 container. Reading order and
// table of contents come straight from the document's Spine and TOC.
type EpubWriter struct{}

func NewEpubWriter() *EpubWriter {
	return &EpubWriter{}
}

// Run writes doc to path, creating the parent directory when needed.
func (w *EpubWriter) Run(doc *Document, path string) error {
	if err := w.write(doc, path); err != nil {
		return digest.Wrap(digest.ErrAssembly, "write epub", err)
	}
	return nil
}

func (w *EpubWriter) write(doc *Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pages := append([]digest.Chapter{doc.Cover, doc.Navigation}, doc.Chapters()...)

	pkg, err := w.packageDocument(doc, pages)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create epub: %w", err)
	}

	if err := w.writeContainer(file, doc, pages, pkg); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close epub: %w", err)
	}

	slog.Info("EPUB written",
		"path", path,
		"sections", len(doc.Sections),
		"chapters", len(doc.Chapters()),
		"spine", len(pkg.Spine.Items))

	return nil
}

func (w *EpubWriter) writeContainer(out io.Writer, doc *Document, pages []digest.Chapter, pkg *opfPackage) error {
	zw := zip.NewWriter(out)

	// The mimetype entry comes first and is stored uncompressed.
	mimetype, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("failed to write mimetype: %w", err)
	}
	if _, err := io.WriteString(mimetype, "application/epub+zip"); err != nil {
		return fmt.Errorf("failed to write mimetype: %w", err)
	}

	navDoc, err := w.navigationDocument(doc)
	if err != nil {
		return err
	}
	ncx, err := marshalXML(w.ncxDocument(doc))
	if err != nil {
		return fmt.Errorf("failed to encode ncx: %w", err)
	}
	opf, err := marshalXML(pkg)
	if err != nil {
		return fmt.Errorf("failed to encode package document: %w", err)
	}

	entries := []containerEntry{
		{"META-INF/container.xml", []byte(containerXML)},
		{contentDir + "/" + packageFileName, opf},
		{contentDir + "/" + navDocFileName, []byte(navDoc)},
		{contentDir + "/" + ncxFileName, ncx},
		{contentDir + "/" + doc.Stylesheet, []byte(Stylesheet)},
	}
	for _, page := range pages {
		entries = append(entries, containerEntry{contentDir + "/" + page.FileName, []byte(w.page(page.Title, page.Stylesheet, page.Body))})
		for _, img := range page.Images {
			entries = append(entries, containerEntry{contentDir + "/" + digest.ImagePath(img.Name), img.Data})
		}
	}

	for _, entry := range entries {
		fw, err := zw.Create(entry.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", entry.name, err)
		}
		if _, err := fw.Write(entry.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", entry.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish epub: %w", err)
	}
	return nil
}

// packageDocument lists every file in the manifest and lays the spine out in
// the document's order. The navigation marker maps to the container's own
// navigation document.
func (w *EpubWriter) packageDocument(doc *Document, pages []digest.Chapter) (*opfPackage, error) {
	pkg := &opfPackage{
		Version:          "3.0",
		UniqueIdentifier: packageUniqueID,
		Metadata: opfMetadata{
			XmlnsDc:    "http://purl.org/dc/elements/1.1/",
			Identifier: opfIdentifier{ID: packageUniqueID, Data: doc.Identifier},
			Title:      doc.Title,
			Language:   doc.Language,
			Creator:    doc.Author,
			Meta:       []opfMetaEntry{{Property: modifiedProperty, Data: doc.Date.UTC().Format(modifiedLayout)}},
		},
		Manifest: []opfItem{
			{ID: navDocID, Href: navDocFileName, MediaType: xhtmlMediaType, Properties: "nav"},
			{ID: ncxID, Href: ncxFileName, MediaType: "application/x-dtbncx+xml"},
			{ID: stylesheetID, Href: doc.Stylesheet, MediaType: "text/css"},
		},
		Spine: opfSpine{Toc: ncxID},
	}

	ids := map[string]string{NavMarker: navDocID}
	imageCount := 0
	for i, page := range pages {
		id := fmt.Sprintf("page-%d", i+1)
		ids[page.FileName] = id
		pkg.Manifest = append(pkg.Manifest, opfItem{ID: id, Href: page.FileName, MediaType: xhtmlMediaType})

		for _, img := range page.Images {
			imageCount++
			pkg.Manifest = append(pkg.Manifest, opfItem{
				ID:        fmt.Sprintf("image-%d", imageCount),
				Href:      digest.ImagePath(img.Name),
				MediaType: img.MediaType,
			})
		}
	}

	for _, fileName := range doc.Spine {
		id, ok := ids[fileName]
		if !ok {
			return nil, fmt.Errorf("spine entry %s has no page", fileName)
		}
		pkg.Spine.Items = append(pkg.Spine.Items, opfItemref{Idref: id})
	}

	return pkg, nil
}

func (w *EpubWriter) navigationDocument(doc *Document) (string, error) {
	nav := navElement{EpubType: "toc", Heading: doc.Navigation.Title, Items: navItems(doc.TOC)}

	data, err := xml.MarshalIndent(nav, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode navigation document: %w", err)
	}
	return w.page(doc.Title, doc.Stylesheet, string(data)), nil
}

func navItems(nodes []TOCNode) []navItem {
	items := make([]navItem, 0, len(nodes))
	for _, node := range nodes {
		items = append(items, navItem{
			Link:     navLink{Href: node.FileName, Text: node.Title},
			Children: navItems(node.Children),
		})
	}
	return items
}

func (w *EpubWriter) ncxDocument(doc *Document) *ncxDocument {
	count := 0
	var points func(nodes []TOCNode) []ncxNavPoint
	points = func(nodes []TOCNode) []ncxNavPoint {
		var out []ncxNavPoint
		for _, node := range nodes {
			count++
			out = append(out, ncxNavPoint{
				ID:       fmt.Sprintf("navpoint-%d", count),
				Text:     node.Title,
				Content:  ncxContent{Src: node.FileName},
				Children: points(node.Children),
			})
		}
		return out
	}

	return &ncxDocument{
		Version: "2005-1",
		Meta:    ncxMeta{Name: "dtb:uid", Content: doc.Identifier},
		Title:   doc.Title,
		NavMap:  points(doc.TOC),
	}
}

func (w *EpubWriter) page(title string, stylesheet string, body string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), html.EscapeString(stylesheet), strings.TrimRight(body, "\n"))
}

func marshalXML(v any) ([]byte, error) {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}
