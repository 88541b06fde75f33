package hn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lysyi3m/news-digest/app/digest"
)

type fakeStories struct {
	ids     []int
	stories map[int]*Story
	err     error
}

func (f *fakeStories) TopStories(ctx context.Context) ([]int, error) {
	return f.ids, f.err
}

func (f *fakeStories) Story(ctx context.Context, id int) (*Story, error) {
	if id < 0 {
		return nil, digest.Errorf(digest.ErrFetch, "fetch item", "timeout")
	}
	return f.stories[id], nil
}

func TestFetcherRun(t *testing.T) {
	stories := &fakeStories{
		ids: []int{1, 2, -3, 4, 5},
		stories: map[int]*Story{
			1: {ID: 1, Title: "Launch <HN>", URL: "https://example.com/a?b=1&c=2", Kids: []int{10, 11, 12}},
			4: {ID: 4, Title: "Ask HN: quiet", Kids: nil},
			5: {ID: 5, Title: "Not needed"},
		},
	}
	comments := &fakeComments{comments: map[int]*Comment{
		10: {ID: 10, Author: "a", Body: "one"},
		11: {ID: 11, Author: "b", Body: "two"},
		12: {ID: 12, Author: "c", Body: "three"},
	}}

	fetcher := NewFetcher(stories, NewBuilder(comments, false), 2)

	chapters, err := fetcher.Run(context.Background(), "hn", 2)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(chapters) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(chapters))
	}

	first := chapters[0]
	if first.Title != "HN: Launch <HN>" {
		t.Errorf("Expected title 'HN: Launch <HN>', got '%s'", first.Title)
	}
	if first.FileName != "hn-1.xhtml" {
		t.Errorf("Expected file name 'hn-1.xhtml', got '%s'", first.FileName)
	}
	if first.Section != SectionName {
		t.Errorf("Expected section '%s', got '%s'", SectionName, first.Section)
	}
	if !strings.Contains(first.Body, "<h1>Launch &lt;HN&gt;</h1>") {
		t.Errorf("Expected escaped heading, got: %s", first.Body)
	}
	if !strings.Contains(first.Body, `<a href="https://example.com/a?b=1&amp;c=2">Read Article / Context</a>`) {
		t.Errorf("Expected article link, got: %s", first.Body)
	}
	if !strings.Contains(first.Body, `<a href="https://news.ycombinator.com/item?id=1">Original HN Thread</a>`) {
		t.Errorf("Expected thread link, got: %s", first.Body)
	}
	if got := strings.Count(first.Body, `class="comment root"`); got != 3 {
		t.Errorf("Expected 3 comments, got %d", got)
	}

	second := chapters[1]
	if second.Title != "HN: Ask HN: quiet" || second.FileName != "hn-2.xhtml" {
		t.Errorf("Unexpected second chapter: %s %s", second.Title, second.FileName)
	}
	if strings.Contains(second.Body, "Read Article") {
		t.Errorf("Expected no article link for a text post")
	}
	if !strings.Contains(second.Body, "<p>No comments yet.</p>") {
		t.Errorf("Expected no comments placeholder, got: %s", second.Body)
	}
}

func TestFetcherRunTopStoriesFailure(t *testing.T) {
	stories := &fakeStories{err: digest.Errorf(digest.ErrFetch, "fetch top stories", "down")}
	fetcher := NewFetcher(stories, NewBuilder(&fakeComments{}, false), 2)

	_, err := fetcher.Run(context.Background(), "hn", 5)
	if !errors.Is(err, digest.ErrFetch) {
		t.Errorf("Expected ErrFetch, got %v", err)
	}
}

func TestFetcherRunFewerStoriesThanRequested(t *testing.T) {
	stories := &fakeStories{
		ids:     []int{1, 2},
		stories: map[int]*Story{2: {ID: 2, Title: "Only one"}},
	}
	fetcher := NewFetcher(stories, NewBuilder(&fakeComments{}, false), 4)

	chapters, err := fetcher.Run(context.Background(), "hn", 5)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(chapters) != 1 || chapters[0].FileName != "hn-1.xhtml" {
		t.Errorf("Expected a single hn-1 chapter, got %+v", chapters)
	}
}
