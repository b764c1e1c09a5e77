// Package loop provides the single execution context every dashboard
// mutation runs on, plus cancellable timers scheduled onto it.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned when work is submitted to a stopped loop.
var ErrStopped = errors.New("loop stopped")

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler runs callbacks after a delay. Implementations guarantee that
// callbacks never run concurrently with each other.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Loop serialises work onto one goroutine.
type Loop struct {
	work   chan func()
	quit   chan struct{}
	logger *slog.Logger

	stopOnce sync.Once
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

var _ Scheduler = (*Loop)(nil)

// New returns a loop with a buffered work queue. Call Start before posting.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		work:   make(chan func(), 256),
		quit:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case <-l.quit:
				return
			case f := <-l.work:
				l.run(f)
			}
		}
	}()
}

// Stop terminates the loop and waits for the current callback to return.
// Work still queued is discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		close(l.quit)
	})
	l.wg.Wait()
}

func (l *Loop) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop callback panicked", "panic", r)
		}
	}()
	f()
}

// Post queues f without waiting for it to run.
func (l *Loop) Post(f func()) error {
	if l.stopped.Load() {
		return ErrStopped
	}
	select {
	case l.work <- f:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

// Do runs f on the loop and waits for it to finish or for ctx to end.
func (l *Loop) Do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		f()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return ErrStopped
	}
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f to run on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if t.cancelled.Load() {
				return
			}
			t.fired.Store(true)
			f()
		})
	})
	return t
}

type loopTimer struct {
	t         *time.Timer
	cancelled atomic.Bool
	fired     atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.t.Stop()
	if t.fired.Load() {
		return false
	}
	return !t.cancelled.Swap(true)
}
