package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/news-digest/app/digest"
)

type GenerateDigestTask struct {
	Task
	Trigger   string
	Request   digest.Request
	generator Generator
	onFinish  func(t *GenerateDigestTask, result *Result, err error)
}

func NewGenerateDigestTask(trigger string, req digest.Request, generator Generator,
	onFinish func(t *GenerateDigestTask, result *Result, err error)) *GenerateDigestTask {
	return &GenerateDigestTask{
		Task:      NewTask(TaskTypeGenerateDigest),
		Trigger:   trigger,
		Request:   req,
		generator: generator,
		onFinish:  onFinish,
	}
}

// Execute runs the generator to completion and reports the outcome exactly once,
// including when the generator panics.
func (t *GenerateDigestTask) Execute(ctx context.Context) (err error) {
	var result *Result

	defer func() {
		if p := recover(); p != nil {
			err = digest.Errorf(digest.ErrAssembly, "generate digest", "unexpected failure: %v", p)
		}
		if t.onFinish != nil {
			t.onFinish(t, result, err)
		}
	}()

	slog.Info("Run started",
		"run_id", t.ID,
		"trigger", t.Trigger,
		"item_count", t.Request.ItemCount,
		"sections", strings.Join(t.Request.Sections, ","))

	result, err = t.generator.Run(ctx, t.Request)
	if err != nil {
		return fmt.Errorf("failed to generate digest: %w", err)
	}

	slog.Info("Run completed",
		"run_id", t.ID,
		"duration", t.GetDuration(),
		"chapters", result.ChapterCount(),
		"epub", result.EpubPath)

	return nil
}
