// Package worker runs background maintenance for the service.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iconidentify/ytmux/internal/domain"
)

// ErrShutdownTimeout is returned when the janitor doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("janitor shutdown timed out")

// Sweeper removes artifacts older than maxAge and reports how many it removed.
// Artifacts of jobs for which inFlight reports true are left alone.
type Sweeper interface {
	Sweep(maxAge time.Duration, inFlight func(domain.JobID) bool) (int, error)
}

// JobLister lists the jobs currently registered with the service.
type JobLister interface {
	List(ctx context.Context) ([]*domain.Job, error)
}

// Janitor periodically removes temporary files orphaned by crashed or
// interrupted jobs.
type Janitor struct {
	sweeper  Sweeper
	jobs     JobLister
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds janitor configuration.
type Config struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// NewJanitor creates a new janitor. Artifacts of jobs listed by jobs are
// never swept; a nil jobs sweeps purely by age.
func NewJanitor(cfg Config, sweeper Sweeper, jobs JobLister, logger *slog.Logger) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 2 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Janitor{
		sweeper:  sweeper,
		jobs:     jobs,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SweepOnce runs a single sweep and returns the number of removed files.
func (j *Janitor) SweepOnce() int {
	inFlight, err := j.inFlight()
	if err != nil {
		j.logger.Error("orphan sweep skipped: cannot list jobs", "error", err)
		return 0
	}

	removed, err := j.sweeper.Sweep(j.maxAge, inFlight)
	if err != nil {
		j.logger.Error("orphan sweep failed", "error", err)
	}
	if removed > 0 {
		j.logger.Info("removed orphaned artifacts", "count", removed)
	}
	return removed
}

// inFlight snapshots the registered job ids. A job registered after the
// snapshot has no files older than maxAge yet.
func (j *Janitor) inFlight() (func(domain.JobID) bool, error) {
	if j.jobs == nil {
		return nil, nil
	}
	jobs, err := j.jobs.List(j.ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[domain.JobID]struct{}, len(jobs))
	for _, job := range jobs {
		ids[job.ID] = struct{}{}
	}
	return func(id domain.JobID) bool {
		_, ok := ids[id]
		return ok
	}, nil
}

// Start launches the periodic sweep.
func (j *Janitor) Start() {
	j.logger.Info("starting janitor",
		"interval", j.interval,
		"max_age", j.maxAge,
	)

	j.wg.Add(1)
	go j.run()
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop(timeout time.Duration) error {
	j.logger.Info("stopping janitor")
	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("janitor stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}
