package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/concurrency"
	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/daemon"
	"github.com/harunnryd/nightowl/internal/worker"
)

type WorkersComponent struct {
	worker           *worker.Worker
	ingressComp      *IngressComponent
	conversationComp *ConversationComponent
	sessionsComp     *SessionsComponent
	catalogComp      *CatalogComponent
	outputs          worker.Outputs
	cfg              *config.Config
	locks            *concurrency.KeyedLocker
	initialized      bool
	started          bool
	mu               sync.RWMutex
	startTime        time.Time
}

func NewWorkersComponent(cfg *config.Config, ingComp *IngressComponent, convComp *ConversationComponent, sessionsComp *SessionsComponent, catalogComp *CatalogComponent, outputs worker.Outputs) *WorkersComponent {
	return &WorkersComponent{
		ingressComp:      ingComp,
		conversationComp: convComp,
		sessionsComp:     sessionsComp,
		catalogComp:      catalogComp,
		outputs:          outputs,
		cfg:              cfg,
		locks:            concurrency.NewKeyedLocker(),
	}
}

func (w *WorkersComponent) Name() string {
	return "Workers"
}

func (w *WorkersComponent) Dependencies() []string {
	return []string{"Ingress", "Conversation"}
}

func (w *WorkersComponent) Init(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ingressComp == nil || w.conversationComp == nil || w.sessionsComp == nil || w.catalogComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	if w.cfg == nil {
		return fmt.Errorf("config not provided")
	}
	if w.outputs == nil {
		return fmt.Errorf("output adapters not provided")
	}

	ing := w.ingressComp.GetIngress()
	engine := w.conversationComp.GetEngine()
	store := w.sessionsComp.GetStore()
	cache := w.catalogComp.GetAggregator()
	if ing == nil || engine == nil || store == nil || cache == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	shutdownTimeout, err := config.DurationOrDefault(w.cfg.Worker.ShutdownTimeout, config.DefaultWorkerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse worker shutdown timeout: %w", err)
	}

	commands := worker.NewCommands(store, cache, engine)
	w.worker = worker.NewWorker(ing.Queue(), engine, commands, w.outputs, w.locks, worker.RuntimeConfig{
		Count:           w.cfg.Worker.Count,
		ShutdownTimeout: shutdownTimeout,
	})

	w.initialized = true
	slog.Info("Workers initialized", "component", w.Name(), "count", w.cfg.Worker.Count)
	return nil
}

func (w *WorkersComponent) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		return fmt.Errorf("Workers not initialized")
	}

	if err := w.worker.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	w.started = true
	w.startTime = time.Now()
	slog.Info("Workers started", "component", w.Name())
	return nil
}

func (w *WorkersComponent) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		slog.Info("Workers not started, skipping stop", "component", w.Name())
		return nil
	}

	slog.Info("Stopping Workers...", "component", w.Name())
	err := w.worker.Stop(ctx)
	w.started = false
	if err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	slog.Info("Workers stopped", "component", w.Name())
	return nil
}

func (w *WorkersComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.initialized {
		return &daemon.ComponentHealth{Name: w.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !w.started {
		return &daemon.ComponentHealth{Name: w.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	if err := w.worker.Health(ctx); err != nil {
		return &daemon.ComponentHealth{Name: w.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: w.Name(), Healthy: true}, nil
}
