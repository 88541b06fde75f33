package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
)

const maxResponseBytes = 2 << 20

// Story is a top-level thread with its external link, if any.
type Story struct {
	ID    int
	Title string
	URL   string
	Kids  []int
}

type Comment struct {
	ID      int
	Author  string
	Body    string
	Kids    []int
	Removed bool // deleted or killed by moderation
}

// item mirrors the API record. Every field is optional on the wire.
type item struct {
	ID      int     `json:"id"`
	Type    *string `json:"type"`
	By      *string `json:"by"`
	Title   *string `json:"title"`
	URL     *string `json:"url"`
	Text    *string `json:"text"`
	Kids    []int   `json:"kids"`
	Deleted *bool   `json:"deleted"`
	Dead    *bool   `json:"dead"`
}

func (i *item) removed() bool {
	return (i.Deleted != nil && *i.Deleted) || (i.Dead != nil && *i.Dead)
}

func (i *item) toStory() *Story {
	title := "No Title"
	if i.Title != nil && strings.TrimSpace(*i.Title) != "" {
		title = *i.Title
	}

	story := &Story{ID: i.ID, Title: title, Kids: i.Kids}
	if i.URL != nil {
		story.URL = *i.URL
	}
	return story
}

func (i *item) toComment() *Comment {
	comment := &Comment{ID: i.ID, Author: "anon", Kids: i.Kids, Removed: i.removed()}
	if i.By != nil && *i.By != "" {
		comment.Author = *i.By
	}
	if i.Text != nil {
		comment.Body = *i.Text
	}
	return comment
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
}

func NewClient(httpClient *http.Client, baseURL string, userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// TopStories returns the ranked story ids.
func (c *Client) TopStories(ctx context.Context) ([]int, error) {
	var ids []int
	if err := c.getJSON(ctx, c.baseURL+"/topstories.json", &ids); err != nil {
		return nil, digest.Wrap(digest.ErrFetch, "fetch top stories", err)
	}
	return ids, nil
}

// Story returns nil without error when the item does not exist or was removed.
func (c *Client) Story(ctx context.Context, id int) (*Story, error) {
	it, err := c.item(ctx, id)
	if err != nil || it == nil || it.removed() {
		return nil, err
	}
	return it.toStory(), nil
}

// Comment returns nil without error when the item does not exist.
func (c *Client) Comment(ctx context.Context, id int) (*Comment, error) {
	it, err := c.item(ctx, id)
	if err != nil || it == nil {
		return nil, err
	}
	return it.toComment(), nil
}

func (c *Client) item(ctx context.Context, id int) (*item, error) {
	var it *item
	if err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &it); err != nil {
		return nil, digest.Wrap(digest.ErrFetch, fmt.Sprintf("fetch item %d", id), err)
	}
	if it != nil && it.ID == 0 {
		it.ID = id
	}
	return it, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
