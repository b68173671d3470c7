// Package scheduler runs background jobs, such as the rainfall refresh, on
// cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/simtanka-service/internal/observability"
	"github.com/robfig/cron/v3"
)

// ErrJobRunning is returned by Trigger when the job is already in flight.
var ErrJobRunning = errors.New("job already running")

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

type job struct {
	fn      JobFunc
	running atomic.Bool
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are skipped,
// whether fired by the schedule or by Trigger.
type Scheduler struct {
	cron    *cron.Cron
	metrics *observability.Metrics
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]*job
}

// New creates a Scheduler evaluating schedules in UTC. timeout bounds each
// run; zero means no limit.
func New(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
		ctx:     context.Background(),
		jobs:    make(map[string]*job),
	}
}

// Add registers fn under name on a standard five-field cron spec or a
// descriptor such as @monthly or @every 1h.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already scheduled", name)
	}
	j := &job{fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.run(s.context(), name, j) }); err != nil {
		return fmt.Errorf("schedule job %q (%s): %w", name, spec, err)
	}
	s.jobs[name] = j
	s.logger.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

// Start begins firing jobs. Runs derive from ctx so cancelling it aborts
// in-flight work.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with jobs still running")
	}
}

// Trigger runs a registered job immediately on the caller's goroutine. It
// returns ErrJobRunning without running the job when a run is in flight.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q is not scheduled", name)
	}
	return s.run(ctx, name, j)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, name string, j *job) error {
	if !j.running.CompareAndSwap(false, true) {
		s.metrics.ScheduledRuns.WithLabelValues(name, "skipped").Inc()
		s.logger.Warn("scheduled job still running, skipping", "job", name)
		return fmt.Errorf("%w: %q", ErrJobRunning, name)
	}
	defer j.running.Store(false)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := j.fn(ctx)
	if err != nil {
		s.metrics.ScheduledRuns.WithLabelValues(name, "error").Inc()
		s.logger.Error("scheduled job failed", "job", name, "error", err, "duration", time.Since(start))
		return err
	}
	s.metrics.ScheduledRuns.WithLabelValues(name, "success").Inc()
	s.logger.Info("scheduled job completed", "job", name, "duration", time.Since(start))
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
