package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/news-digest/app/book"
	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/lysyi3m/news-digest/app/feed"
	"github.com/lysyi3m/news-digest/app/hn"
	"github.com/lysyi3m/news-digest/app/publish"
)

// TaskRunnerInterface executes tasks off the caller's goroutine.
// Example usage:
//
//	runner := NewRunner()
//	handle := runner.Submit(task)
//	err := handle.Wait()
type TaskRunnerInterface interface {
	Submit(task TaskInterface) *Handle
}

// Generator produces one digest for a request.
type Generator interface {
	Run(ctx context.Context, req digest.Request) (*Result, error)
}

// Trigger is the single entry point for starting a run.
type Trigger interface {
	TryStart(trigger string, req digest.Request) (string, bool)
}

type SourceLister interface {
	GetEnabledConfigs() []*feed.Config
}

type FeedFetcher interface {
	Run(ctx context.Context, sourceConfig *feed.Config, key string, maxItems int) ([]digest.Chapter, error)
}

type StoryFetcher interface {
	Run(ctx context.Context, key string, maxItems int) ([]digest.Chapter, error)
}

type DocumentAssembler interface {
	Run(sections []digest.Section, date time.Time) (*book.Document, error)
}

type DocumentWriter interface {
	Run(doc *book.Document, path string) error
}

type Converter interface {
	Run(ctx context.Context, in string, out string) error
}

var (
	_ TaskRunnerInterface = (*Runner)(nil)
	_ Generator           = (*Pipeline)(nil)
	_ Trigger             = (*Controller)(nil)
	_ SourceLister        = (*feed.ConfigCache)(nil)
	_ FeedFetcher         = (*feed.Fetcher)(nil)
	_ StoryFetcher        = (*hn.Fetcher)(nil)
	_ DocumentAssembler   = (*book.Assembler)(nil)
	_ DocumentWriter      = (*book.EpubWriter)(nil)
	_ Converter           = (*publish.Converter)(nil)
)
