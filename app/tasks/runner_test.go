package tasks

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

type funcTask struct {
	Task
	fn func(ctx context.Context) error
}

func newFuncTask(fn func(ctx context.Context) error) *funcTask {
	return &funcTask{Task: NewTask(TaskTypeGenerateDigest), fn: fn}
}

func (t *funcTask) Execute(ctx context.Context) error {
	return t.fn(ctx)
}

func TestRunnerSubmit(t *testing.T) {
	runner := NewRunner()

	var calls atomic.Int32
	ok := newFuncTask(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	failing := newFuncTask(func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})

	okHandle := runner.Submit(ok)
	failHandle := runner.Submit(failing)

	if okHandle.ID() != ok.GetID() {
		t.Errorf("Expected handle ID %s, got %s", ok.GetID(), okHandle.ID())
	}
	if err := okHandle.Wait(); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if err := failHandle.Wait(); err == nil || err.Error() != "boom" {
		t.Errorf("Expected 'boom', got %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("Expected 2 executions, got %d", calls.Load())
	}
	if ok.StartedAt == nil {
		t.Error("Expected task start time to be set")
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	runner := NewRunner()

	handle := runner.Submit(newFuncTask(func(ctx context.Context) error {
		panic("kaboom")
	}))

	err := handle.Wait()
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("Expected panic to surface as error, got %v", err)
	}
}

func TestNewTaskUniqueIDs(t *testing.T) {
	a := NewTask(TaskTypeGenerateDigest)
	b := NewTask(TaskTypeGenerateDigest)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique non-empty IDs, got '%s' and '%s'", a.ID, b.ID)
	}
	if a.GetDuration() != 0 {
		t.Errorf("Expected zero duration before start")
	}
}
