// Package worker runs inbound-message tasks in the background, detached from
// the HTTP request that triggered them.
//
// A Runner bounds the number of tasks in flight, gives every task its own
// timeout, recovers panics, and waits for running tasks on shutdown.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrClosed is returned by Submit after Shutdown has begun.
	ErrClosed = errors.New("worker: runner is shut down")
	// ErrBusy is returned by Submit when no slot frees up before its ctx
	// ends. It wraps the ctx error.
	ErrBusy = errors.New("worker: all slots busy")
)

var (
	tasksInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "powerpulse_tasks_inflight",
		Help: "Background tasks currently running.",
	})
	tasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powerpulse_tasks_total",
		Help: "Finished background tasks by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(tasksInflight, tasksTotal)
}

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Runner executes Tasks with bounded concurrency.
type Runner struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	base    context.Context
	cancel  context.CancelFunc
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a Runner allowing maxInflight concurrent tasks, each
// limited to timeout (0 disables the limit).
func NewRunner(maxInflight int, timeout time.Duration) *Runner {
	if maxInflight <= 0 {
		maxInflight = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		sem:     semaphore.NewWeighted(int64(maxInflight)),
		timeout: timeout,
		base:    base,
		cancel:  cancel,
		logger:  log.Logger,
	}
}

// Submit waits for a free slot (or for ctx to end) and starts task in the
// background. ctx only bounds the wait; the task runs under the runner's own
// context, carrying ctx's logger.
func (r *Runner) Submit(ctx context.Context, name string, task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	r.start(ctx, name, task)
	return nil
}

func (r *Runner) start(parent context.Context, name string, task Task) {
	lg := r.logger
	if l := zerolog.Ctx(parent); l.GetLevel() != zerolog.Disabled {
		lg = *l
	}
	lg = lg.With().Str("task", name).Logger()

	r.wg.Add(1)
	tasksInflight.Inc()
	go func() {
		defer r.wg.Done()
		defer tasksInflight.Dec()
		defer r.sem.Release(1)

		ctx := lg.WithContext(r.base)
		var cancel context.CancelFunc = func() {}
		if r.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		defer cancel()

		start := time.Now()
		err := run(ctx, task)
		ev := lg.Debug()
		result := "ok"
		if err != nil {
			result = "error"
			ev = lg.Error().Err(err)
		}
		tasksTotal.WithLabelValues(result).Inc()
		ev.Dur("elapsed", time.Since(start)).Msg("task finished")
	}()
}

func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panic: %v", p)
		}
	}()
	return task(ctx)
}

// Shutdown stops accepting tasks and waits for running ones. If ctx ends
// first, running tasks are canceled and ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
