package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/lysyi3m/news-digest/app/hn"
	"github.com/lysyi3m/news-digest/app/publish"
	"golang.org/x/sync/errgroup"
)

// Result is what a completed run produced.
type Result struct {
	EpubPath string
	MobiPath string // empty when conversion failed
	Sections []string
	Titles   []string
}

func (r *Result) ChapterCount() int {
	if r == nil {
		return 0
	}
	return len(r.Titles)
}

type PipelineConfig struct {
	StoryCount  int // 0 uses the request's item count
	Concurrency int // sources fetched at once
}

// Pipeline fetches every selected source, assembles the book, writes it and
// converts it to the secondary format.
type Pipeline struct {
	sources      SourceLister
	feedFetcher  FeedFetcher
	storyFetcher StoryFetcher
	assembler    DocumentAssembler
	writer       DocumentWriter
	converter    Converter
	artifacts    *publish.Artifacts
	config       PipelineConfig
	now          func() time.Time
}

func NewPipeline(sources SourceLister, feedFetcher FeedFetcher, storyFetcher StoryFetcher,
	assembler DocumentAssembler, writer DocumentWriter, converter Converter,
	artifacts *publish.Artifacts, config PipelineConfig) *Pipeline {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Pipeline{
		sources:      sources,
		feedFetcher:  feedFetcher,
		storyFetcher: storyFetcher,
		assembler:    assembler,
		writer:       writer,
		converter:    converter,
		artifacts:    artifacts,
		config:       config,
		now:          time.Now,
	}
}

type sectionJob struct {
	name  string
	fetch func(ctx context.Context, key string) ([]digest.Chapter, error)
}

func (p *Pipeline) Run(ctx context.Context, req digest.Request) (*Result, error) {
	start := time.Now()
	now := p.now()

	jobs := p.jobs(req)
	slog.Info("Generation started", "sections", len(jobs), "item_count", req.ItemCount)

	sections, err := p.fetchSections(ctx, jobs)
	if err != nil {
		return nil, err
	}

	doc, err := p.assembler.Run(sections, now)
	if err != nil {
		return nil, err
	}

	epubPath, mobiPath := p.artifacts.PathsFor(now)
	if err := p.writer.Run(doc, epubPath); err != nil {
		return nil, err
	}

	result := &Result{EpubPath: epubPath, Titles: doc.Titles()}
	for _, section := range doc.Sections {
		result.Sections = append(result.Sections, section.Name)
	}

	if p.converter != nil {
		if err := p.converter.Run(ctx, epubPath, mobiPath); err != nil {
			action := digest.Decide(err, digest.ScopeRun)
			if action == digest.FailRun {
				return nil, err
			}
			slog.Warn("Conversion failed, keeping EPUB only", "action", action, "error", err)
		} else {
			result.MobiPath = mobiPath
		}
	}

	slog.Info("Generation finished",
		"duration", time.Since(start),
		"sections", len(result.Sections),
		"chapters", result.ChapterCount(),
		"epub", result.EpubPath,
		"mobi", result.MobiPath)

	return result, nil
}

// jobs lists the selected sources in digest order: feeds first, then the
// discussion digest.
func (p *Pipeline) jobs(req digest.Request) []sectionJob {
	var jobs []sectionJob

	if p.sources != nil && p.feedFetcher != nil {
		for _, sourceConfig := range p.sources.GetEnabledConfigs() {
			if !req.Includes(sourceConfig.SectionName()) {
				continue
			}
			jobs = append(jobs, sectionJob{
				name: sourceConfig.SectionName(),
				fetch: func(ctx context.Context, key string) ([]digest.Chapter, error) {
					return p.feedFetcher.Run(ctx, sourceConfig, key, req.ItemCount)
				},
			})
		}
	}

	if p.storyFetcher != nil && req.Includes(hn.SectionName) {
		count := p.config.StoryCount
		if count <= 0 {
			count = req.ItemCount
		}
		jobs = append(jobs, sectionJob{
			name: hn.SectionName,
			fetch: func(ctx context.Context, key string) ([]digest.Chapter, error) {
				return p.storyFetcher.Run(ctx, key, count)
			},
		})
	}

	return jobs
}

// fetchSections runs every job. A failed section is left empty unless the
// policy says the failure ends the run. Each section gets a key unique within
// the run, so chapter and image names never collide across sections.
func (p *Pipeline) fetchSections(ctx context.Context, jobs []sectionJob) ([]digest.Section, error) {
	sections := make([]digest.Section, len(jobs))

	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.name
	}
	keys := digest.SectionKeys(names)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for i, job := range jobs {
		sections[i].Name = job.name
		g.Go(func() error {
			chapters, err := job.fetch(gctx, keys[i])
			if err != nil {
				action := digest.Decide(err, digest.ScopeSection)
				if action == digest.FailRun {
					return err
				}
				slog.Warn("Section skipped", "section", job.name, "action", action, "error", err)
				return nil
			}
			sections[i].Chapters = chapters
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sections, nil
}
