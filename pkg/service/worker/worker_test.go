package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/newsweave-lab/clotho/pkg/service/worker"
)

func TestWorkerRunsPeriodically(t *testing.T) {
	var calls atomic.Int64
	w := worker.New("counter", 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, worker.WithRunAtStart())

	ctx := context.Background()
	w.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	w.Stop(ctx)

	gt.Bool(t, calls.Load() >= 3).True()
}

func TestWorkerSurvivesPanickingJob(t *testing.T) {
	var calls atomic.Int64
	w := worker.New("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			panic("cycle blew up")
		}
		return nil
	}, worker.WithRunAtStart())

	ctx := context.Background()
	w.Start(ctx)

	// The first cycle panics; the loop must keep ticking afterwards.
	deadline := time.Now().Add(time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	w.Stop(ctx)

	gt.Bool(t, calls.Load() >= 3).True()
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := worker.New("cancelled", time.Hour, func(ctx context.Context) error {
		return nil
	})

	w.Start(ctx)
	cancel()

	// Stop returns once the loop observes the cancelled context.
	done := make(chan struct{})
	go func() {
		w.Stop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
