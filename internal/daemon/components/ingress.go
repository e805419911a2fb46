package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/daemon"
	"github.com/harunnryd/nightowl/internal/ingress"
)

// IngressComponent owns the inbound queue. keysPath may be empty, in which
// case idempotency keys live only in memory.
type IngressComponent struct {
	ingress     *ingress.Ingress
	cfg         *config.IngressConfig
	keysPath    string
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewIngressComponent(cfg *config.IngressConfig, keysPath string) *IngressComponent {
	return &IngressComponent{
		cfg:      cfg,
		keysPath: keysPath,
	}
}

func (i *IngressComponent) Name() string {
	return "Ingress"
}

func (i *IngressComponent) Dependencies() []string {
	return []string{}
}

func (i *IngressComponent) Init(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cfg == nil {
		return fmt.Errorf("ingress config not provided")
	}

	submitTimeout, err := config.DurationOrDefault(i.cfg.SubmitTimeout, config.DefaultIngressSubmitTimeout)
	if err != nil {
		return fmt.Errorf("parse ingress submit timeout: %w", err)
	}
	drainTimeout, err := config.DurationOrDefault(i.cfg.DrainTimeout, config.DefaultIngressDrainTimeout)
	if err != nil {
		return fmt.Errorf("parse ingress drain timeout: %w", err)
	}
	idempotencyTTL, err := config.DurationOrDefault(i.cfg.IdempotencyTTL, config.DefaultIngressIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("parse ingress idempotency ttl: %w", err)
	}

	keys, err := ingress.NewKeyStore(i.keysPath, nil)
	if err != nil {
		return fmt.Errorf("open idempotency keys: %w", err)
	}
	limiter := ingress.NewRateLimiter(i.cfg.RateLimitPerHour, nil)

	i.ingress = ingress.NewIngress(
		i.cfg.QueueSize,
		ingress.RuntimeConfig{
			SubmitTimeout:  submitTimeout,
			DrainTimeout:   drainTimeout,
			IdempotencyTTL: idempotencyTTL,
		},
		keys,
		limiter,
	)
	i.initialized = true
	slog.Info("Ingress initialized", "component", i.Name(), "keys", keys.Len(), "rate_limit_per_hour", i.cfg.RateLimitPerHour)
	return nil
}

func (i *IngressComponent) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.initialized {
		return fmt.Errorf("Ingress not initialized")
	}

	i.started = true
	i.startTime = time.Now()
	slog.Info("Ingress started", "component", i.Name())
	return nil
}

// Stop closes the queue once workers have drained it; workers exit on close.
func (i *IngressComponent) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started {
		slog.Info("Ingress not started, skipping stop", "component", i.Name())
		return nil
	}

	slog.Info("Stopping Ingress...", "component", i.Name())
	var err error
	if i.ingress != nil {
		err = i.ingress.Close()
	}
	i.started = false
	if err != nil {
		return fmt.Errorf("close ingress: %w", err)
	}
	slog.Info("Ingress stopped", "component", i.Name())
	return nil
}

func (i *IngressComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if !i.started {
		return &daemon.ComponentHealth{Name: i.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	if err := i.ingress.Health(ctx); err != nil {
		return &daemon.ComponentHealth{Name: i.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: i.Name(), Healthy: true}, nil
}

func (i *IngressComponent) GetIngress() *ingress.Ingress {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ingress
}
