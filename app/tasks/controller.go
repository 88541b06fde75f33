package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/digest"
)

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"

	MaxItemCount = 50
)

// Controller owns the process-wide generation state and guarantees that at
// most one run is in progress.
type Controller struct {
	mu          sync.Mutex
	state       digest.State
	seq         uint64
	current     *Handle
	subscribers map[int]chan digest.State
	nextSubID   int

	generator        Generator
	runner           TaskRunnerInterface
	runRepo          database.RunRepository
	cooldown         time.Duration
	defaultItemCount int
}

func NewController(generator Generator, runner TaskRunnerInterface, runRepo database.RunRepository,
	cooldown time.Duration, defaultItemCount int) *Controller {
	return &Controller{
		state:            digest.State{Status: digest.StatusIdle},
		subscribers:      make(map[int]chan digest.State),
		generator:        generator,
		runner:           runner,
		runRepo:          runRepo,
		cooldown:         cooldown,
		defaultItemCount: defaultItemCount,
	}
}

// TryStart launches a run unless one is already in progress. It never blocks
// on the run itself.
func (c *Controller) TryStart(trigger string, req digest.Request) (string, bool) {
	req = c.normalize(req)

	c.mu.Lock()
	if c.state.Status == digest.StatusRunning {
		c.mu.Unlock()
		slog.Info("Generation already in progress, trigger ignored", "trigger", trigger)
		return "", false
	}

	c.seq++
	seq := c.seq
	task := NewGenerateDigestTask(trigger, req, c.generator, func(t *GenerateDigestTask, result *Result, err error) {
		c.finish(seq, t, result, err)
	})
	c.setState(digest.State{Status: digest.StatusRunning, Message: "Starting generation..."})
	c.mu.Unlock()

	c.recordStart(task)
	handle := c.runner.Submit(task)

	c.mu.Lock()
	if c.seq == seq {
		c.current = handle
	}
	c.mu.Unlock()

	return handle.ID(), true
}

// Wait blocks until the most recently started run has finished and returns
// its error. It returns immediately when no run was ever started.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	handle := c.current
	c.mu.Unlock()

	if handle == nil {
		return nil
	}

	select {
	case <-handle.Done():
		return handle.Wait()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() digest.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe delivers every subsequent state change until cancel is called.
// Slow subscribers miss intermediate states rather than block transitions.
func (c *Controller) Subscribe() (<-chan digest.State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++

	ch := make(chan digest.State, 8)
	c.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (c *Controller) finish(seq uint64, task *GenerateDigestTask, result *Result, err error) {
	state := digest.State{Status: digest.StatusComplete, Message: "Generation successful!"}
	if err != nil {
		state = digest.State{Status: digest.StatusError, Message: "Error: " + err.Error()}
	}

	c.mu.Lock()
	if c.seq == seq {
		c.setState(state)
	}
	c.mu.Unlock()

	c.recordFinish(task, state, result)

	time.AfterFunc(c.cooldown, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.seq == seq && c.state.Status != digest.StatusRunning {
			c.setState(digest.State{Status: digest.StatusIdle})
		}
	})
}

// setState must be called with mu held.
func (c *Controller) setState(state digest.State) {
	c.state = state
	for _, ch := range c.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}

func (c *Controller) normalize(req digest.Request) digest.Request {
	if req.ItemCount <= 0 || req.ItemCount > MaxItemCount {
		err := digest.Errorf(digest.ErrConfig, "normalize request", "item count %d out of range 1..%d", req.ItemCount, MaxItemCount)
		slog.Warn("Invalid item count, using default", "default", c.defaultItemCount,
			"action", digest.Decide(err, digest.ScopeRun), "error", err)
		req.ItemCount = c.defaultItemCount
	}
	return req
}

func (c *Controller) recordStart(task *GenerateDigestTask) {
	if c.runRepo == nil {
		return
	}

	run := database.Run{
		ID:        task.GetID(),
		Trigger:   task.Trigger,
		Status:    string(digest.StatusRunning),
		ItemCount: task.Request.ItemCount,
		Sections:  task.Request.Sections,
		StartedAt: time.Now(),
	}
	if err := c.runRepo.Start(run); err != nil {
		slog.Error("Failed to record run start", "run_id", run.ID, "error", err)
	}
}

func (c *Controller) recordFinish(task *GenerateDigestTask, state digest.State, result *Result) {
	if c.runRepo == nil {
		return
	}

	runResult := database.RunResult{FinishedAt: time.Now()}
	if result != nil {
		runResult.ChapterCount = result.ChapterCount()
		runResult.Titles = result.Titles
		runResult.EpubPath = result.EpubPath
		runResult.MobiPath = result.MobiPath
	}

	if err := c.runRepo.Finish(task.GetID(), string(state.Status), state.Message, runResult); err != nil {
		slog.Error("Failed to record run finish", "run_id", task.GetID(), "error", err)
	}
}
