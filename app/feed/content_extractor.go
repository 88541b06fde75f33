package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/lysyi3m/news-digest/app/digest"
)

const maxPageBytes = 10 << 20

// Elements that never survive into a chapter. Remote images are dropped because the
// book is read offline; the chapter illustration is added separately.
var alwaysRemoved = []string{
	"script", "style", "noscript", "iframe", "object", "embed",
	"video", "audio", "svg", "img", "picture", "source", "form", "button",
}

var publishedSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`time[datetime]`, "datetime"},
}

type Extract struct {
	Title       string
	Content     string
	PublishedAt *time.Time
}

type ContentExtractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewContentExtractor(httpClient *http.Client, userAgent string) *ContentExtractor {
	return &ContentExtractor{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Run fetches pageURL and reduces it to its readable content.
func (e *ContentExtractor) Run(ctx context.Context, pageURL string, timeout time.Duration, cleanup ConfigCleanup) (*Extract, error) {
	data, err := e.fetchArticleContent(ctx, pageURL, timeout)
	if err != nil {
		return nil, digest.Wrap(digest.ErrFetch, "fetch article", err)
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, digest.Wrap(digest.ErrExtraction, "parse article URL", err)
	}

	extract, err := e.Extract(data, parsedURL, cleanup)
	if err != nil {
		return nil, digest.Wrap(digest.ErrExtraction, "extract article", err)
	}

	return extract, nil
}

// Extract runs readability over raw HTML and applies the cleanup rules.
func (e *ContentExtractor) Extract(data []byte, pageURL *url.URL, cleanup ConfigCleanup) (*Extract, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if strings.TrimSpace(article.Content) == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	content, err := e.clean(article.Content, cleanup)
	if err != nil {
		return nil, err
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(content))

	return &Extract{
		Title:       article.Title,
		Content:     content,
		PublishedAt: e.publishedAt(data),
	}, nil
}

func (e *ContentExtractor) clean(content string, cleanup ConfigCleanup) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse extracted content: %w", err)
	}

	body := doc.Find("body")

	body.Find(strings.Join(alwaysRemoved, ", ")).Remove()

	for _, selector := range cleanup.RemoveSelectors {
		body.Find(selector).Remove()
	}

	if len(cleanup.Boilerplate) > 0 {
		phrases := make(map[string]bool, len(cleanup.Boilerplate))
		for _, phrase := range cleanup.Boilerplate {
			phrases[strings.ToLower(strings.TrimSpace(phrase))] = true
		}

		body.Find("div, p, section, aside, h2, h3, h4, ul").Each(func(_ int, s *goquery.Selection) {
			if phrases[strings.ToLower(strings.TrimSpace(s.Text()))] {
				s.Remove()
			}
		})
	}

	if strings.TrimSpace(body.Text()) == "" {
		return "", fmt.Errorf("nothing left after cleanup")
	}

	html, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned content: %w", err)
	}

	return strings.TrimSpace(html), nil
}

// publishedAt is a best-effort read of the page's publication timestamp.
func (e *ContentExtractor) publishedAt(data []byte) *time.Time {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	for _, candidate := range publishedSelectors {
		value, ok := doc.Find(candidate.selector).First().Attr(candidate.attr)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
				return &parsed
			}
		}
	}

	return nil
}

func (e *ContentExtractor) fetchArticleContent(ctx context.Context, pageURL string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
