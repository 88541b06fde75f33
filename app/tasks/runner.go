package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// Handle tracks one submitted task. The controller keeps it for bookkeeping;
// run progress is observed through the controller's state.
type Handle struct {
	id   string
	done chan struct{}
	err  error
}

func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task has finished and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Runner executes each task on its own goroutine. Tasks are not cancellable
// once submitted.
type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Submit(task TaskInterface) *Handle {
	handle := &Handle{id: task.GetID(), done: make(chan struct{})}

	go func() {
		defer close(handle.done)
		handle.err = r.executeTask(task)
	}()

	return handle
}

func (r *Runner) executeTask(task TaskInterface) (err error) {
	task.Start()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Task panicked", "type", string(task.GetType()), "id", task.GetID(), "panic", p)
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()

	err = task.Execute(context.Background())
	if err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
		return err
	}

	slog.Debug("Task completed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration())
	return nil
}
