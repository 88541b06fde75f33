package feed

import (
	"testing"

	"github.com/lysyi3m/news-digest/app/digest"
)

const guardianRSS = `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>UK news | The Guardian</title>
    <link>https://www.theguardian.com/uk-news</link>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <media:content width="140" url="https://img.example.com/1-140.jpg"/>
      <media:content width="460" url="https://img.example.com/1-460.jpg"/>
      <media:content width="700" url="https://img.example.com/1-700.jpg"/>
      <media:content width="1000" url="https://img.example.com/1-1000.jpg"/>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <guid>item-2</guid>
    </item>
    <item>
      <title>No link</title>
    </item>
  </channel>
</rss>`

func TestParseRSS2(t *testing.T) {
	parser := NewParser()
	entries, err := parser.Run([]byte(guardianRSS))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	entry1 := entries[0]
	if entry1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", entry1.Title)
	}
	if entry1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", entry1.Link)
	}
	if entry1.Published == nil {
		t.Fatal("Expected published date to be set")
	}
	if entry1.Published.Format(DateLineLayout) != "03 Jul 2023 10:00" {
		t.Errorf("Expected '03 Jul 2023 10:00', got: %s", entry1.Published.Format(DateLineLayout))
	}
	if len(entry1.Media) != 4 {
		t.Fatalf("Expected 4 media refs, got: %d", len(entry1.Media))
	}
	if entry1.Media[1].Width != 460 || entry1.Media[1].Kind != digest.MediaContent {
		t.Errorf("Unexpected media ref: %+v", entry1.Media[1])
	}

	if entries[1].Published != nil {
		t.Error("Expected entry without pubDate to have nil Published")
	}
	if len(entries[1].Media) != 0 {
		t.Errorf("Expected no media, got %d", len(entries[1].Media))
	}
}

func TestParseThumbnailsAndEnclosures(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>BBC News</title>
    <item>
      <title>Thumbs</title>
      <link>https://www.bbc.co.uk/news/1</link>
      <media:thumbnail width="240" url="https://ichef.example.com/240.jpg"/>
    </item>
    <item>
      <title>Enclosure</title>
      <link>https://www.bbc.co.uk/news/2</link>
      <enclosure url="https://ichef.example.com/enc.png" length="100" type="image/png"/>
      <enclosure url="https://ichef.example.com/podcast.mp3" length="100" type="audio/mpeg"/>
    </item>
  </channel>
</rss>`

	entries, err := NewParser().Run([]byte(rss))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := SelectImage(entries[0].Media, ImagePreferLast); got != "https://ichef.example.com/240.jpg" {
		t.Errorf("Expected thumbnail URL, got '%s'", got)
	}
	if got := SelectImage(entries[1].Media, ImagePreferLast); got != "https://ichef.example.com/enc.png" {
		t.Errorf("Expected image enclosure URL, got '%s'", got)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	if _, err := NewParser().Run([]byte("this is not a feed")); err == nil {
		t.Error("Expected error for invalid feed data")
	}
}

func TestParseEmptyChannel(t *testing.T) {
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`

	entries, err := NewParser().Run([]byte(rss))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries, got %d", len(entries))
	}
}

func TestSelectImage(t *testing.T) {
	contents := []digest.MediaRef{
		{URL: "a", Kind: digest.MediaContent, Width: 140},
		{URL: "b", Kind: digest.MediaContent, Width: 1000},
		{URL: "c", Kind: digest.MediaContent, Width: 460},
		{URL: "d", Kind: digest.MediaContent, Width: 700},
		{URL: "t", Kind: digest.MediaThumbnail},
	}

	tests := []struct {
		name       string
		media      []digest.MediaRef
		preference string
		expected   string
	}{
		{"third of many", contents, ImagePreferThird, "c"},
		{"third falls back to last", contents[:2], ImagePreferThird, "b"},
		{"last", contents, ImagePreferLast, "d"},
		{"widest", contents, ImagePreferWidest, "b"},
		{"thumbnail only", contents[4:], ImagePreferThird, "t"},
		{"nothing", nil, ImagePreferLast, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectImage(tt.media, tt.preference); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
