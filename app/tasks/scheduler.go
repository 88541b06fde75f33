package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
)

type TaskSchedulerInterface interface {
	Start()
	Stop()
}

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler triggers a full digest once a day at a fixed local hour.
type Scheduler struct {
	trigger   Trigger
	hour      int
	itemCount int
	settle    time.Duration
	now       func() time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewScheduler(trigger Trigger, hour int, itemCount int, settle time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		trigger:   trigger,
		hour:      hour,
		itemCount: itemCount,
		settle:    settle,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// NextRun returns the next instant at hour:00 local to now that lies strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			now := s.now()
			next := NextRun(now, s.hour)
			wait := next.Sub(now)

			slog.Info("Next scheduled run", "at", next, "in", wait.Round(time.Second))

			timer := time.NewTimer(wait)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			s.fire()

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(s.settle):
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// fire starts a full digest. A run already in progress is not queued.
func (s *Scheduler) fire() bool {
	runID, started := s.trigger.TryStart(TriggerSchedule, digest.Request{ItemCount: s.itemCount})
	if !started {
		slog.Info("Skipping scheduled run: generation already in progress")
		return false
	}

	slog.Info("Scheduled run started", "run_id", runID)
	return true
}
