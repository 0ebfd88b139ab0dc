package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/queue"
	"github.com/caasmo/farmgate/queue/executor"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrencyMultiplier = 2
	DefaultJobTimeout            = time.Minute

	errMsgTimeout  = "job execution timed out"
	errMsgCanceled = "job execution canceled"
)

// Store is the queue side of the database.
type Store interface {
	Claim(ctx context.Context, limit int) ([]*queue.Job, error)
	MarkCompleted(ctx context.Context, jobID int64) error
	MarkFailed(ctx context.Context, jobID int64, errMsg string) error
}

// Scheduler claims due jobs on every tick and runs them through the
// executor with bounded concurrency.
type Scheduler struct {
	configProvider *config.Provider
	db             Store
	executor       *executor.DefaultExecutor
	logger         *slog.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	startOnce    sync.Once
	shutdownDone chan struct{}
}

// NewScheduler creates a new scheduler with executor
func NewScheduler(provider *config.Provider, db Store, exec *executor.DefaultExecutor, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		configProvider: provider,
		db:             db,
		executor:       exec,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		shutdownDone:   make(chan struct{}),
	}
}

// Name identifies the scheduler as a server daemon.
func (s *Scheduler) Name() string {
	return "JobScheduler"
}

// Executor gives access to the handler registry.
func (s *Scheduler) Executor() *executor.DefaultExecutor {
	return s.executor
}

// Start launches the ticker goroutine. It fails on a non positive interval.
func (s *Scheduler) Start() error {
	interval := s.configProvider.Get().Scheduler.Interval.Duration
	if interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}

	s.startOnce.Do(func() {
		go func() {
			defer close(s.shutdownDone)
			s.logger.Info("Starting job scheduler", "interval", interval)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-s.ctx.Done():
					s.logger.Info("Job scheduler received shutdown signal")
					return
				case <-ticker.C:
					s.processJobs()
				}
			}
		}()
	})
	return nil
}

// Stop signals the scheduler to stop and waits for the running batch to
// finish or ctx to be done, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping job scheduler")
	s.cancel()
	// Stop before Start must not block.
	s.startOnce.Do(func() { close(s.shutdownDone) })

	select {
	case <-s.shutdownDone:
		s.logger.Info("Job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler shutdown timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) processJobs() {
	cfg := s.configProvider.Get().Scheduler

	jobs, err := s.db.Claim(s.ctx, cfg.MaxJobsPerTick)
	if err != nil {
		s.logger.Error("Failed to claim jobs", "err", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	s.logger.Debug("Claimed jobs", "count", len(jobs))

	multiplier := cfg.ConcurrencyMultiplier
	if multiplier <= 0 {
		multiplier = DefaultConcurrencyMultiplier
	}
	timeout := cfg.JobTimeout.Duration
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	// The group only bounds concurrency. A failing job must not cancel
	// its siblings, so the goroutines never return an error.
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU() * multiplier)

	var processed atomic.Int64
	for _, job := range jobs {
		g.Go(func() error {
			if s.runJob(timeout, job) {
				processed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Finished processing claimed jobs", "success", processed.Load(), "total", len(jobs))
}

// runJob executes one job and records the outcome. It reports success.
func (s *Scheduler) runJob(timeout time.Duration, job *queue.Job) bool {
	jobCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	s.logger.Debug("Starting job execution", "job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)
	err := s.executor.Execute(jobCtx, *job)

	// Outcome writes use a fresh context so a shutdown still records them.
	ctx, cancelWrite := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWrite()

	if err == nil {
		if updateErr := s.db.MarkCompleted(ctx, job.ID); updateErr != nil {
			s.logger.Error("Failed to mark job as completed", "job_id", job.ID, "err", updateErr)
		}
		return true
	}

	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = errMsgTimeout
	case errors.Is(err, context.Canceled):
		msg = errMsgCanceled
	}
	s.logger.Warn("Job failed", "job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts, "err", err)
	if updateErr := s.db.MarkFailed(ctx, job.ID, msg); updateErr != nil {
		s.logger.Error("Failed to mark job as failed", "job_id", job.ID, "err", updateErr)
	}
	return false
}
