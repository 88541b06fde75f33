package tasks

import (
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
)

type fakeTrigger struct {
	mu       sync.Mutex
	busy     bool
	requests []digest.Request
	triggers []string
}

func (f *fakeTrigger) TryStart(trigger string, req digest.Request) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return "", false
	}
	f.requests = append(f.requests, req)
	f.triggers = append(f.triggers, trigger)
	return "run", true
}

func (f *fakeTrigger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("Local", 3600)

	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{"after the hour", time.Date(2024, 3, 4, 10, 0, 0, 0, loc), time.Date(2024, 3, 5, 9, 0, 0, 0, loc)},
		{"before the hour", time.Date(2024, 3, 4, 8, 0, 0, 0, loc), time.Date(2024, 3, 4, 9, 0, 0, 0, loc)},
		{"exactly on the hour", time.Date(2024, 3, 4, 9, 0, 0, 0, loc), time.Date(2024, 3, 5, 9, 0, 0, 0, loc)},
		{"end of month", time.Date(2024, 2, 29, 23, 0, 0, 0, loc), time.Date(2024, 3, 1, 9, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextRun(tt.now, 9); !got.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSchedulerFire(t *testing.T) {
	trigger := &fakeTrigger{}
	scheduler := NewScheduler(trigger, 9, 5, time.Minute)

	if !scheduler.fire() {
		t.Fatal("Expected scheduled run to start")
	}
	if trigger.requests[0].ItemCount != 5 || len(trigger.requests[0].Sections) != 0 {
		t.Errorf("Expected full digest with 5 items, got %+v", trigger.requests[0])
	}
	if trigger.triggers[0] != TriggerSchedule {
		t.Errorf("Expected trigger '%s', got '%s'", TriggerSchedule, trigger.triggers[0])
	}

	trigger.busy = true
	if scheduler.fire() {
		t.Error("Expected firing during a run to be skipped")
	}
	if trigger.count() != 1 {
		t.Errorf("Expected skipped firing not to be queued, got %d requests", trigger.count())
	}
}

func TestSchedulerLoop(t *testing.T) {
	trigger := &fakeTrigger{}
	scheduler := NewScheduler(trigger, 9, 5, 10*time.Millisecond)

	// Always 20ms before the target hour.
	target := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	scheduler.now = func() time.Time { return target.Add(-20 * time.Millisecond) }

	scheduler.Start()

	deadline := time.Now().Add(2 * time.Second)
	for trigger.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	scheduler.Stop()

	if trigger.count() < 2 {
		t.Errorf("Expected at least 2 scheduled runs, got %d", trigger.count())
	}
}

func TestSchedulerStopBeforeFiring(t *testing.T) {
	trigger := &fakeTrigger{}
	scheduler := NewScheduler(trigger, 9, 5, time.Minute)
	scheduler.now = func() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) }

	scheduler.Start()
	scheduler.Stop()

	if trigger.count() != 0 {
		t.Errorf("Expected no runs, got %d", trigger.count())
	}
}
