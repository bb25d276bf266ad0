package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobScheduler submits its jobs to a pool on a fixed interval. The first
// run happens after FirstRun, which lets a daily job line up with midnight.
type JobScheduler struct {
	Name     string
	Interval time.Duration
	FirstRun time.Duration
	Jobs     []NamedJob
	Pool     *WorkingPool
	mu       sync.RWMutex
}

func NewJobScheduler(name string, interval time.Duration, pool *WorkingPool) *JobScheduler {
	return &JobScheduler{
		Name:     name,
		Interval: interval,
		FirstRun: interval,
		Jobs:     make([]NamedJob, 0),
		Pool:     pool,
	}
}

func (s *JobScheduler) AddJob(job NamedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jobs = append(s.Jobs, job)
}

func (s *JobScheduler) Run(ctx context.Context) {
	slog.Info("scheduler running", "scheduler", s.Name, "interval", s.Interval, "first_run_in", s.FirstRun)

	timer := time.NewTimer(s.FirstRun)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.submitJobs(ctx)
	case <-ctx.Done():
		slog.Info("scheduler shutting down", "scheduler", s.Name)
		return
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.submitJobs(ctx)
		case <-ctx.Done():
			slog.Info("scheduler shutting down", "scheduler", s.Name)
			return
		}
	}
}

func (s *JobScheduler) submitJobs(ctx context.Context) {
	s.mu.RLock()
	jobsToRun := make([]NamedJob, len(s.Jobs))
	copy(jobsToRun, s.Jobs)
	s.mu.RUnlock()

	for _, job := range jobsToRun {
		submitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.Pool.SubmitJob(submitCtx, job); err != nil {
			slog.Error("failed to submit job", "scheduler", s.Name, "job", job.Name, "error", err)
		}
		cancel()
	}
}

// UntilNextMidnight is the wait from now to the next UTC midnight, the
// boundary the overdue reminder log keys its days on.
func UntilNextMidnight(now time.Time) time.Duration {
	y, m, d := now.UTC().Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}
