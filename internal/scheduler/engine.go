package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/config"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"

	"github.com/robfig/cron/v3"
)

// Job is a named background task run on a cron spec such as "@every 1m".
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	Next    time.Time `json:"next"`
	LastRun time.Time `json:"last_run"`
	LastErr string    `json:"last_error,omitempty"`
	Runs    int       `json:"runs"`
}

// Scheduler runs sweeps on cron goroutines, away from the turn workers.
// Overlapping runs of one job are skipped.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	status  map[string]*JobStatus
	entries map[string]cron.EntryID

	shutdownTimeout time.Duration
}

func NewScheduler(cfg config.SchedulerConfig, jobs ...Job) (*Scheduler, error) {
	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultSchedulerShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler shutdown timeout: %w", err)
	}

	log := cronLogger{}
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(log), cron.WithChain(
			cron.Recover(log),
			cron.SkipIfStillRunning(log),
		)),
		jobs:            jobs,
		status:          make(map[string]*JobStatus),
		entries:         make(map[string]cron.EntryID),
		shutdownTimeout: shutdownTimeout,
	}

	for _, job := range jobs {
		if job.Run == nil {
			return nil, owlErrors.InvalidInput("job " + job.Name + " has no run function")
		}
		job := job
		id, err := s.cron.AddFunc(job.Spec, func() { s.run(job) })
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q for job %s: %w", job.Spec, job.Name, owlErrors.ErrInvalidInput)
		}
		s.entries[job.Name] = id
		s.status[job.Name] = &JobStatus{Name: job.Name, Spec: job.Spec}
	}

	return s, nil
}

func (s *Scheduler) Init(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	slog.Info("Scheduler initialized", "jobs", len(s.jobs))
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}
	s.running = true
	s.cron.Start()

	slog.Info("Scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		slog.Info("Scheduler stopped gracefully")
		return nil
	case <-time.After(s.shutdownTimeout):
		slog.Warn("Scheduler shutdown timeout, force stopping")
		return owlErrors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Health(ctx context.Context) error {
	if !s.IsRunning() {
		return owlErrors.Internal("scheduler not running")
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// RunNow executes a job immediately on the caller's goroutine.
func (s *Scheduler) RunNow(name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.run(job)
		}
	}
	return owlErrors.NotFound("job " + name)
}

func (s *Scheduler) run(job Job) error {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	err := job.Run(ctx)

	s.mu.Lock()
	st := s.status[job.Name]
	st.LastRun = start
	st.Runs++
	st.LastErr = ""
	if err != nil {
		st.LastErr = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("Scheduled job failed", "job", job.Name, "error", err)
		return err
	}
	slog.Debug("Scheduled job finished", "job", job.Name, "duration", time.Since(start))
	return nil
}

// Status reports every job with its next fire time.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		st := *s.status[job.Name]
		st.Next = s.cron.Entry(s.entries[job.Name]).Next
		out = append(out, st)
	}
	return out
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
