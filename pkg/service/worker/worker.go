package worker

import (
	"context"
	"time"

	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// Job is one cycle of periodic work.
type Job func(ctx context.Context) error

// Worker runs a job on a fixed cadence in a background goroutine.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or
//   leader election
type Worker struct {
	name       string
	interval   time.Duration
	job        Job
	runAtStart bool
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// Option is a functional option for Worker configuration
type Option func(*Worker)

// WithRunAtStart runs the job once immediately on Start instead of
// waiting for the first tick.
func WithRunAtStart() Option {
	return func(w *Worker) {
		w.runAtStart = true
	}
}

// New creates a periodic worker.
func New(name string, interval time.Duration, job Job, opts ...Option) *Worker {
	w := &Worker{
		name:     name,
		interval: interval,
		job:      job,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background loop. Does not block.
func (w *Worker) Start(ctx context.Context) {
	logging.From(ctx).Info("worker starting",
		"worker", w.name,
		"interval", w.interval.String(),
	)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the current cycle to
// finish. There is no mid-cycle cancellation beyond the context: let
// the current batch finish, do not start the next.
func (w *Worker) Stop(ctx context.Context) {
	logging.From(ctx).Info("worker stopping", "worker", w.name)
	close(w.stopCh)
	<-w.doneCh
	logging.From(ctx).Info("worker stopped", "worker", w.name)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	if w.runAtStart {
		w.runCycle(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runCycle(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.From(ctx).Info("worker context cancelled", "worker", w.name)
			return
		}
	}
}

// runCycle executes one job cycle. A panic in the job must not take
// down the whole server loop: recover, log, and wait for the next tick.
func (w *Worker) runCycle(ctx context.Context) {
	logger := logging.From(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker cycle panicked (will retry next interval)",
				"worker", w.name,
				"panic", r,
			)
		}
	}()

	if err := w.job(ctx); err != nil {
		logger.Error("worker cycle failed (will retry next interval)",
			"worker", w.name,
			"error", err.Error(),
		)
	}
}
