package workflow

import (
	"context"

	"github.com/deegraphics/melisse-backend/pkg/logger"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

// Loop serializes all workflow work onto one goroutine: inbound platform
// events and the follow-up tasks fired timers enqueue. Events for different
// users interleave, but no two events are ever mid-processing at once,
// which is what makes the cart's single-writer model hold by construction.
type Loop struct {
	logg       *logger.Logger
	controller *Controller
	tasks      chan func()
}

// NewLoop builds a loop with the given task buffer.
func NewLoop(logg *logger.Logger, controller *Controller, buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		logg:       logg,
		controller: controller,
		tasks:      make(chan func(), buffer),
	}
}

// Submit queues one inbound event for handling.
func (l *Loop) Submit(ctx context.Context, ev platform.Event) {
	l.Enqueue(func() {
		if err := l.controller.Handle(ctx, ev); err != nil {
			l.logg.Error(ctx, "event handling failed", err)
		}
	})
}

// Enqueue queues a bare task. Timer callbacks land here so they interleave
// with foreground events instead of mutating state inline.
func (l *Loop) Enqueue(task func()) {
	l.tasks <- task
}

// Run drains the task queue until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.tasks:
			task()
		}
	}
}
