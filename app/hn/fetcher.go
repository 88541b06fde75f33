package hn

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
	"golang.org/x/sync/errgroup"
)

const (
	SectionName = "Hacker News"
	threadURL   = "https://news.ycombinator.com/item?id=%d"
)

type StorySource interface {
	TopStories(ctx context.Context) ([]int, error)
	Story(ctx context.Context, id int) (*Story, error)
}

var _ StorySource = (*Client)(nil)

// Fetcher builds one chapter per top story, with its discussion rendered inline.
type Fetcher struct {
	source      StorySource
	builder     *Builder
	concurrency int
}

func NewFetcher(source StorySource, builder *Builder, concurrency int) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		source:      source,
		builder:     builder,
		concurrency: concurrency,
	}
}

// Run returns up to maxItems chapters named after key. Unavailable stories are
// skipped and the next ranked ids are tried in their place.
func (f *Fetcher) Run(ctx context.Context, key string, maxItems int) ([]digest.Chapter, error) {
	start := time.Now()

	ids, err := f.source.TopStories(ctx)
	if err != nil {
		return nil, err
	}

	chapters := make([]digest.Chapter, 0, maxItems)
	for len(ids) > 0 && len(chapters) < maxItems {
		batch := ids[:min(maxItems-len(chapters), len(ids))]
		ids = ids[len(batch):]

		for _, built := range f.fetchBatch(ctx, batch) {
			if built == nil {
				continue
			}
			chapters = append(chapters, f.chapter(digest.ChapterFileName(key, len(chapters)+1), built.story, built.discussion))
		}
	}

	slog.Info("Source fetched",
		"source", "hn",
		"section", SectionName,
		"duration", time.Since(start),
		"chapters", len(chapters))

	return chapters, nil
}

type builtStory struct {
	story      *Story
	discussion string
}

func (f *Fetcher) fetchBatch(ctx context.Context, batch []int) []*builtStory {
	results := make([]*builtStory, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, id := range batch {
		g.Go(func() error {
			story, err := f.source.Story(gctx, id)
			if err != nil {
				slog.Warn("Story skipped", "id", id, "action", digest.Decide(err, digest.ScopeItem), "error", err)
				return nil
			}
			if story == nil {
				slog.Debug("Story unavailable", "id", id)
				return nil
			}

			discussion := ""
			if len(story.Kids) > 0 {
				discussion = f.builder.Run(gctx, story.Kids)
			}
			results[i] = &builtStory{story: story, discussion: discussion}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *Fetcher) chapter(fileName string, story *Story, discussion string) digest.Chapter {
	var b strings.Builder

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(story.Title))
	if story.URL != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">Read Article / Context</a></p>\n", html.EscapeString(story.URL))
	}
	fmt.Fprintf(&b, "<p><a href=\"%s\">Original HN Thread</a></p>\n", html.EscapeString(fmt.Sprintf(threadURL, story.ID)))
	b.WriteString("<hr/>\n<h2>Discussion</h2>\n")

	if len(story.Kids) == 0 {
		b.WriteString("<p>No comments yet.</p>\n")
	} else {
		b.WriteString(discussion)
	}

	return digest.Chapter{
		Title:    "HN: " + story.Title,
		FileName: fileName,
		Body:     b.String(),
		Section:  SectionName,
	}
}
