package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
)

// Dispatcher hands a saga run to something that will execute it
type Dispatcher interface {
	Dispatch(ctx context.Context, task func(ctx context.Context)) error
}

// InlineDispatcher runs the task on the caller's goroutine
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(ctx context.Context, task func(ctx context.Context)) error {
	task(ctx)
	return nil
}

// PoolDispatcher runs tasks on a bounded set of goroutines. It never queues: when every slot is
// busy Dispatch fails with ErrDispatcherSaturated so the caller can record the failed invocation.
type PoolDispatcher struct {
	slots  chan struct{}
	wg     conc.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// NewPoolDispatcher creates a dispatcher running at most concurrency tasks at once
func NewPoolDispatcher(concurrency int, logger *slog.Logger) *PoolDispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PoolDispatcher{
		slots:  make(chan struct{}, concurrency),
		logger: logger,
	}
}

// Dispatch starts task detached from the caller's cancellation
func (d *PoolDispatcher) Dispatch(ctx context.Context, task func(ctx context.Context)) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.slots <- struct{}{}:
	default:
		return ErrDispatcherSaturated
	}

	runCtx := context.WithoutCancel(ctx)
	d.wg.Go(func() {
		defer func() { <-d.slots }()
		task(runCtx)
	})
	return nil
}

// InFlight returns the number of running tasks
func (d *PoolDispatcher) InFlight() int {
	return len(d.slots)
}

// Shutdown stops accepting tasks and waits for running ones
func (d *PoolDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if recovered := d.wg.WaitAndRecover(); recovered != nil {
			d.logger.Error("saga run panicked", "panic", recovered.String())
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "failed to drain dispatcher")
	}
}
