package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
)

const articleHTML = `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Test Article</title>
		<meta property="article:published_time" content="2024-01-01T09:30:00Z">
	</head>
	<body>
		<header>
			<h1>Site Header</h1>
			<nav>Navigation</nav>
		</header>
		<main>
			<article>
				<h1>Main Article Title</h1>
				<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
				<svg width="10" height="10"><circle cx="5" cy="5" r="4"/></svg>
				<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
				<figure class="media-player"><p>Media playback is unsupported on your device and this paragraph is long enough to be kept.</p></figure>
				<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
				<div data-component="text-block">Related Topics</div>
			</article>
		</main>
		<aside>
			<div>Advertisement</div>
		</aside>
		<footer>
			<p>Copyright 2024</p>
		</footer>
		<script>var tracking = true;</script>
	</body>
	</html>
	`

func TestContentExtractor_Extract_ValidHTML(t *testing.T) {
	extractor := NewContentExtractor(http.DefaultClient, "test")
	pageURL, _ := url.Parse("https://example.com/article")

	result, err := extractor.Extract([]byte(articleHTML), pageURL, ConfigCleanup{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result.Content, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text")
	}
	if strings.Contains(result.Content, "Advertisement") {
		t.Errorf("Expected extracted content to exclude advertisement")
	}
	if strings.Contains(result.Content, "Copyright 2024") {
		t.Errorf("Expected extracted content to exclude footer")
	}
	if strings.Contains(result.Content, "tracking") {
		t.Errorf("Expected extracted content to exclude scripts")
	}
	if strings.Contains(result.Content, "<svg") {
		t.Errorf("Expected extracted content to exclude svg decorations")
	}

	if result.PublishedAt == nil {
		t.Fatal("Expected published time from article meta")
	}
	if !result.PublishedAt.Equal(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("Unexpected published time: %v", result.PublishedAt)
	}
}

func TestContentExtractor_Extract_SourceCleanupRules(t *testing.T) {
	extractor := NewContentExtractor(http.DefaultClient, "test")
	pageURL, _ := url.Parse("https://www.bbc.co.uk/news/article")

	cleanup := ConfigCleanup{
		Boilerplate:     []string{"Related Topics"},
		RemoveSelectors: []string{"figure.media-player"},
	}

	result, err := extractor.Extract([]byte(articleHTML), pageURL, cleanup)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(result.Content, "Related Topics") {
		t.Errorf("Expected boilerplate phrase to be removed")
	}
	if strings.Contains(result.Content, "Media playback") {
		t.Errorf("Expected media player placeholder to be removed")
	}
	if !strings.Contains(result.Content, "substantial content") {
		t.Errorf("Expected article text to survive cleanup")
	}
}

func TestContentExtractor_Extract_EmptyData(t *testing.T) {
	extractor := NewContentExtractor(http.DefaultClient, "test")

	result, err := extractor.Extract([]byte{}, nil, ConfigCleanup{})

	if err == nil {
		t.Errorf("Expected error for empty data")
	}
	if result != nil {
		t.Errorf("Expected nil result for empty data")
	}
}

func TestContentExtractor_Run_FetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(articleHTML))
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(articleHTML))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer server.Close()

	extractor := NewContentExtractor(server.Client(), "test")
	ctx := context.Background()

	if _, err := extractor.Run(ctx, server.URL+"/ok", time.Second, ConfigCleanup{}); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	for _, path := range []string{"/missing", "/pdf", "/slow"} {
		_, err := extractor.Run(ctx, server.URL+path, 50*time.Millisecond, ConfigCleanup{})
		if !errors.Is(err, digest.ErrFetch) {
			t.Errorf("%s: expected ErrFetch, got %v", path, err)
		}
	}
}

func TestContentExtractor_Run_ExtractionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><script>only()</script></body></html>`))
	}))
	defer server.Close()

	extractor := NewContentExtractor(server.Client(), "test")

	_, err := extractor.Run(context.Background(), server.URL, time.Second, ConfigCleanup{})
	if !errors.Is(err, digest.ErrExtraction) {
		t.Errorf("Expected ErrExtraction, got %v", err)
	}
}
