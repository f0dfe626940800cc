package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/reservio/reservio/internal/domain/session"
)

// CleanupJob prunes dead session records on a schedule. A failed run is
// logged and swallowed; the next scheduled run is unaffected.
type CleanupJob struct {
	Sessions session.Service
	Mode     session.CleanupMode
	Timeout  time.Duration
}

// Run executes one pruning pass. It satisfies cron.Job.
func (j *CleanupJob) Run() {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	removed, err := j.Sessions.Prune(ctx, j.Mode)
	if err != nil {
		slog.Warn("Session cleanup run failed", "mode", string(j.Mode), "error", err)
		return
	}

	slog.Info("Session cleanup run completed", "mode", string(j.Mode), "removed", removed)
}

// Scheduler runs recurring jobs on cron cadences
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a stopped scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// AddJob registers a job under a standard 5-field cron spec
func (s *Scheduler) AddJob(spec string, job cron.Job) error {
	_, err := s.cron.AddJob(spec, job)
	return err
}

// Start begins running scheduled jobs in their own goroutines
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
