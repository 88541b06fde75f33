package feed

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
	"golang.org/x/sync/errgroup"
)

const DateLineLayout = "02 Jan 2006 15:04"

type ImageTranscoder interface {
	Run(ctx context.Context, imageURL string, owner string) (*digest.Image, error)
}

// Fetcher turns one syndication feed into an ordered list of chapters.
type Fetcher struct {
	httpClient       *http.Client
	parser           *Parser
	filterer         *Filterer
	contentExtractor *ContentExtractor
	transcoder       ImageTranscoder
	userAgent        string
	concurrency      int
}

func NewFetcher(httpClient *http.Client, parser *Parser, filterer *Filterer, contentExtractor *ContentExtractor,
	transcoder ImageTranscoder, userAgent string, concurrency int) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		httpClient:       httpClient,
		parser:           parser,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		transcoder:       transcoder,
		userAgent:        userAgent,
		concurrency:      concurrency,
	}
}

// Run returns up to maxItems chapters for the source, named after key. An empty feed yields no
// chapters and no error; only an unreachable or unparsable feed is reported.
func (f *Fetcher) Run(ctx context.Context, sourceConfig *Config, key string, maxItems int) ([]digest.Chapter, error) {
	start := time.Now()
	section := sourceConfig.SectionName()
	timeout := time.Duration(sourceConfig.Settings.Timeout) * time.Second

	if sourceConfig.Settings.MaxItems > 0 && sourceConfig.Settings.MaxItems < maxItems {
		maxItems = sourceConfig.Settings.MaxItems
	}

	data, err := f.fetchFeed(ctx, sourceConfig.URL, timeout)
	if err != nil {
		return nil, digest.Wrap(digest.ErrFetch, "fetch feed "+sourceConfig.Name, err)
	}

	entries, err := f.parser.Run(data)
	if err != nil {
		return nil, digest.Wrap(digest.ErrExtraction, "parse feed "+sourceConfig.Name, err)
	}

	if len(entries) == 0 {
		slog.Warn("No entries found", "source", sourceConfig.Name)
		return nil, nil
	}

	entries = f.filterer.Run(entries, sourceConfig)
	if len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	// Each slot is written by exactly one goroutine; failed slots stay nil.
	built := make([]*digest.Chapter, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			chapter, err := f.buildChapter(gctx, sourceConfig, section, digest.ChapterFileName(key, i+1), entry, timeout)
			if err != nil {
				slog.Warn("Article skipped", "source", sourceConfig.Name, "link", entry.Link,
					"action", digest.Decide(err, digest.ScopeItem), "error", err)
				return nil
			}
			built[i] = chapter
			return nil
		})
	}
	_ = g.Wait()

	chapters := make([]digest.Chapter, 0, len(built))
	for _, chapter := range built {
		if chapter != nil {
			chapters = append(chapters, *chapter)
		}
	}

	slog.Info("Source fetched",
		"source", sourceConfig.Name,
		"section", section,
		"duration", time.Since(start),
		"entries", len(entries),
		"chapters", len(chapters))

	return chapters, nil
}

func (f *Fetcher) buildChapter(ctx context.Context, sourceConfig *Config, section string, fileName string,
	entry digest.RawEntry, timeout time.Duration) (*digest.Chapter, error) {
	extract, err := f.contentExtractor.Run(ctx, entry.Link, timeout, sourceConfig.Cleanup)
	if err != nil {
		return nil, err
	}

	owner := strings.TrimSuffix(fileName, ".xhtml")

	title := entry.Title
	if title == "" {
		title = extract.Title
	}

	published := entry.Published
	if published == nil {
		published = extract.PublishedAt
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))
	if published != nil {
		fmt.Fprintf(&b, "<p class=\"dateline\">%s</p>\n", published.Format(DateLineLayout))
	}

	var images []digest.Image
	if imageURL := SelectImage(entry.Media, sourceConfig.Settings.ImagePreference); imageURL != "" && f.transcoder != nil {
		img, err := f.transcoder.Run(ctx, imageURL, owner)
		if err != nil {
			slog.Warn("Image skipped", "source", sourceConfig.Name, "url", imageURL, "error", err)
		} else {
			images = append(images, *img)
			fmt.Fprintf(&b, "<img src=\"%s\" alt=\"\"/>\n", digest.ImagePath(img.Name))
		}
	}

	b.WriteString(extract.Content)

	return &digest.Chapter{
		Title:    title,
		FileName: fileName,
		Body:     b.String(),
		Section:  section,
		Images:   images,
	}, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
