package feed

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses RSS/Atom data into raw entries in feed order.
func (p *Parser) Run(data []byte) ([]digest.RawEntry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]digest.RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		entries = append(entries, p.normalizeItem(item))
	}

	return entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) digest.RawEntry {
	entry := digest.RawEntry{
		Title: strings.TrimSpace(item.Title),
		Link:  strings.TrimSpace(item.Link),
	}

	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		entry.Published = &published
	} else if item.UpdatedParsed != nil {
		updated := *item.UpdatedParsed
		entry.Published = &updated
	}

	entry.Media = p.extractMedia(item)

	return entry
}

func (p *Parser) extractMedia(item *gofeed.Item) []digest.MediaRef {
	var refs []digest.MediaRef

	if media, ok := item.Extensions["media"]; ok {
		refs = append(refs, p.mediaRefs(media["content"], digest.MediaContent)...)
		refs = append(refs, p.mediaRefs(media["thumbnail"], digest.MediaThumbnail)...)

		// media:group wraps content variants in some feeds
		for _, group := range media["group"] {
			refs = append(refs, p.mediaRefs(group.Children["content"], digest.MediaContent)...)
			refs = append(refs, p.mediaRefs(group.Children["thumbnail"], digest.MediaThumbnail)...)
		}
	}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		if strings.HasPrefix(enclosure.Type, "image/") {
			refs = append(refs, digest.MediaRef{URL: enclosure.URL, Kind: digest.MediaEnclosure})
		}
	}

	if len(refs) == 0 && item.Image != nil && item.Image.URL != "" {
		refs = append(refs, digest.MediaRef{URL: item.Image.URL, Kind: digest.MediaThumbnail})
	}

	return refs
}

func (p *Parser) mediaRefs(elements []ext.Extension, kind digest.MediaKind) []digest.MediaRef {
	refs := make([]digest.MediaRef, 0, len(elements))
	for _, element := range elements {
		url := element.Attrs["url"]
		if url == "" {
			continue
		}
		if medium := element.Attrs["medium"]; medium != "" && medium != "image" {
			continue
		}

		ref := digest.MediaRef{URL: url, Kind: kind}
		if width, err := strconv.Atoi(element.Attrs["width"]); err == nil {
			ref.Width = width
		}
		refs = append(refs, ref)
	}
	return refs
}

// SelectImage picks the illustration URL for an entry, or "" when there is none.
// media:content variants win over thumbnails, thumbnails over enclosures.
func SelectImage(media []digest.MediaRef, preference string) string {
	for _, kind := range []digest.MediaKind{digest.MediaContent, digest.MediaThumbnail, digest.MediaEnclosure} {
		var candidates []digest.MediaRef
		for _, ref := range media {
			if ref.Kind == kind {
				candidates = append(candidates, ref)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		switch preference {
		case ImagePreferThird:
			if len(candidates) > 2 {
				return candidates[2].URL
			}
		case ImagePreferWidest:
			best := candidates[len(candidates)-1]
			for _, c := range candidates {
				if c.Width > best.Width {
					best = c
				}
			}
			return best.URL
		}

		return candidates[len(candidates)-1].URL
	}

	return ""
}
