package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/daemon"
	"github.com/harunnryd/nightowl/internal/scheduler"
)

type SchedulerComponent struct {
	sched        *scheduler.Scheduler
	cfg          *config.Config
	sessionsComp *SessionsComponent
	ingressComp  *IngressComponent
}

func NewSchedulerComponent(cfg *config.Config, sessionsComp *SessionsComponent, ingComp *IngressComponent) *SchedulerComponent {
	return &SchedulerComponent{
		cfg:          cfg,
		sessionsComp: sessionsComp,
		ingressComp:  ingComp,
	}
}

func (s *SchedulerComponent) Name() string {
	return "Scheduler"
}

func (s *SchedulerComponent) Dependencies() []string {
	return []string{"Sessions", "Ingress"}
}

func (s *SchedulerComponent) Init(ctx context.Context) error {
	if s.sessionsComp == nil || s.ingressComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}

	store := s.sessionsComp.GetStore()
	ing := s.ingressComp.GetIngress()
	if store == nil || ing == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	sweepSpec := s.cfg.Scheduler.SessionSweep
	if sweepSpec == "" {
		sweepSpec = config.DefaultSchedulerSessionSweep
	}
	housekeepingSpec := s.cfg.Scheduler.HousekeepingSweep
	if housekeepingSpec == "" {
		housekeepingSpec = config.DefaultSchedulerHousekeepingSweep
	}

	sched, err := scheduler.NewScheduler(s.cfg.Scheduler,
		scheduler.SessionSweep(sweepSpec, store),
		scheduler.Housekeeping(housekeepingSpec, ing),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.sched = sched

	if err := s.sched.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	slog.Info("Scheduler initialized", "component", s.Name(), "session_sweep", sweepSpec, "housekeeping", housekeepingSpec)
	return nil
}

func (s *SchedulerComponent) Start(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not initialized")
	}

	if err := s.sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info("Scheduler started", "component", s.Name())
	return nil
}

func (s *SchedulerComponent) Stop(ctx context.Context) error {
	if s.sched == nil {
		slog.Info("Scheduler not initialized, skipping stop", "component", s.Name())
		return nil
	}

	if err := s.sched.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	slog.Info("Scheduler stopped", "component", s.Name())
	return nil
}

func (s *SchedulerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if s.sched == nil {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if err := s.sched.Health(ctx); err != nil {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: s.Name(), Healthy: true}, nil
}

func (s *SchedulerComponent) GetScheduler() *scheduler.Scheduler {
	return s.sched
}
