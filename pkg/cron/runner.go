package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrJobAlreadyRegistered = errors.New("cron.errors.job_already_registered")
	ErrAlreadyStarted       = errors.New("cron.errors.already_started")
)

// JobFunc is a single run of a scheduled job.
type JobFunc func(ctx context.Context) error

// Runner owns a set of scheduled jobs, each draining on its own
// goroutine once started.
type Runner struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	jobs   map[string]*job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type job struct {
	name     string
	schedule Schedule
	fn       JobFunc
}

type runnerOptions struct {
	logger *slog.Logger
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

// WithLogger sets the logger used for job lifecycle events.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(o *runnerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the clock used to compute fire times. Tests use
// it to pin schedules to a known instant.
func WithClock(now func() time.Time) RunnerOption {
	return func(o *runnerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewRunner creates a runner with no jobs registered.
func NewRunner(opts ...RunnerOption) *Runner {
	options := &runnerOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Runner{
		logger: options.logger,
		now:    options.now,
		jobs:   make(map[string]*job),
	}
}

// Add registers a job under a unique name. Jobs must be added before
// Start.
func (r *Runner) Add(name string, schedule Schedule, fn JobFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return ErrAlreadyStarted
	}
	if _, ok := r.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, name)
	}

	r.jobs[name] = &job{name: name, schedule: schedule, fn: fn}
	r.logger.Info("registered cron job",
		slog.String("job", name),
		slog.String("schedule", schedule.String()))
	return nil
}

// Start launches one goroutine per job and returns immediately.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for _, j := range r.jobs {
		r.wg.Add(1)
		go func(j *job) {
			defer r.wg.Done()
			r.loop(ctx, j)
		}(j)
	}
	return nil
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, j *job) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		next := j.schedule.Next(r.now())
		timer.Reset(next.Sub(r.now()))

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		r.runJob(ctx, j)
	}
}

func (r *Runner) runJob(ctx context.Context, j *job) {
	start := r.now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "cron job panicked",
				slog.String("job", j.name),
				slog.Any("panic", rec))
		}
	}()

	if err := j.fn(ctx); err != nil {
		r.logger.ErrorContext(ctx, "cron job failed",
			slog.String("job", j.name),
			slog.Duration("duration", r.now().Sub(start)),
			slog.String("error", err.Error()))
		return
	}

	r.logger.InfoContext(ctx, "cron job completed",
		slog.String("job", j.name),
		slog.Duration("duration", r.now().Sub(start)))
}
