package hn

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/news-digest/app/digest"
)

const (
	MaxCommentDepth    = 3
	MaxCommentsPerItem = 50
)

type CommentSource interface {
	Comment(ctx context.Context, id int) (*Comment, error)
}

var _ CommentSource = (*Client)(nil)

// Budget bounds one story's traversal. Depth is how many more levels may be
// descended; Count is how many more comments may be fetched.
type Budget struct {
	Depth int
	Count int
}

func NewBudget() Budget {
	return Budget{Depth: MaxCommentDepth, Count: MaxCommentsPerItem}
}

func (b Budget) Exhausted() bool {
	return b.Count <= 0
}

// Builder renders a story's discussion. Only root comments are rendered
// unless replies are enabled.
type Builder struct {
	source       CommentSource
	fetchReplies bool
}

func NewBuilder(source CommentSource, fetchReplies bool) *Builder {
	return &Builder{
		source:       source,
		fetchReplies: fetchReplies,
	}
}

// Run renders the comments under the given root ids. It never fails; comments
// that cannot be fetched are left out.
func (b *Builder) Run(ctx context.Context, kids []int) string {
	var out strings.Builder

	budget := NewBudget()
	for _, id := range kids {
		if budget.Exhausted() {
			break
		}

		var fragment string
		fragment, budget = b.build(ctx, id, 0, budget)
		out.WriteString(fragment)
	}

	return out.String()
}

func (b *Builder) build(ctx context.Context, id int, depth int, budget Budget) (string, Budget) {
	if budget.Exhausted() || depth > MaxCommentDepth {
		return "", budget
	}

	budget.Count--

	comment, err := b.source.Comment(ctx, id)
	if err != nil {
		slog.Warn("Comment skipped", "id", id, "action", digest.Decide(err, digest.ScopeItem), "error", err)
		return "", budget
	}
	if comment == nil || comment.Removed {
		return "", budget
	}

	var out strings.Builder
	out.WriteString(renderComment(comment, depth))

	if b.fetchReplies && budget.Depth > 0 {
		child := Budget{Depth: budget.Depth - 1, Count: budget.Count}
		for _, kid := range comment.Kids {
			if child.Exhausted() {
				break
			}

			var fragment string
			fragment, child = b.build(ctx, kid, depth+1, child)
			out.WriteString(fragment)
		}
		budget.Count = child.Count
	}

	return out.String(), budget
}

func renderComment(comment *Comment, depth int) string {
	body := normalizeMarkup(comment.Body)
	if body == "" {
		return ""
	}

	style := "margin-left: " + strconv.FormatFloat(float64(depth)*1.5, 'f', -1, 64) + "em;"
	class := "comment"
	if depth == 0 {
		class = "comment root"
	}

	return fmt.Sprintf("<div class=\"%s\" style=\"%s\">\n<div class=\"comment-author\"><strong>%s</strong></div>\n<div class=\"comment-body\">%s</div>\n</div>\n",
		class, style, html.EscapeString(comment.Author), body)
}

// normalizeMarkup turns the API's loose HTML into well-formed markup.
func normalizeMarkup(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return html.EscapeString(text)
	}

	body := doc.Find("body")
	if strings.TrimSpace(body.Text()) == "" {
		return ""
	}

	markup, err := body.Html()
	if err != nil {
		return html.EscapeString(text)
	}

	return strings.TrimSpace(markup)
}
