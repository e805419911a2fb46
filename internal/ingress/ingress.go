package ingress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/config"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/metrics"
)

const defaultDrainPollInterval = 100 * time.Millisecond

type RuntimeConfig struct {
	SubmitTimeout     time.Duration
	DrainTimeout      time.Duration
	DrainPollInterval time.Duration
	IdempotencyTTL    time.Duration
}

type Ingress struct {
	queue    chan *Message
	keys     *KeyStore
	limiter  *RateLimiter
	router   Router
	resolver Resolver

	mu     sync.RWMutex
	closed bool

	submitTimeout     time.Duration
	drainTimeout      time.Duration
	drainPollInterval time.Duration
	idempotencyTTL    time.Duration
}

func NewIngress(queueSize int, runtimeCfg RuntimeConfig, keys *KeyStore, limiter *RateLimiter) *Ingress {
	if queueSize <= 0 {
		queueSize = config.DefaultIngressQueueSize
	}

	if runtimeCfg.SubmitTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultIngressSubmitTimeout)
		if err == nil {
			runtimeCfg.SubmitTimeout = d
		}
	}
	if runtimeCfg.DrainTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultIngressDrainTimeout)
		if err == nil {
			runtimeCfg.DrainTimeout = d
		}
	}
	if runtimeCfg.DrainPollInterval <= 0 {
		runtimeCfg.DrainPollInterval = defaultDrainPollInterval
	}
	if runtimeCfg.IdempotencyTTL <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultIngressIdempotencyTTL)
		if err == nil {
			runtimeCfg.IdempotencyTTL = d
		}
	}

	return &Ingress{
		queue:             make(chan *Message, queueSize),
		keys:              keys,
		limiter:           limiter,
		router:            NewStandardRouter(),
		resolver:          NewStandardResolver(),
		submitTimeout:     runtimeCfg.SubmitTimeout,
		drainTimeout:      runtimeCfg.DrainTimeout,
		drainPollInterval: runtimeCfg.DrainPollInterval,
		idempotencyTTL:    runtimeCfg.IdempotencyTTL,
	}
}

// Submit dedupes, routes, rate limits and enqueues msg. A full queue is
// reported as ErrTransient once the submit timeout passes.
func (i *Ingress) Submit(ctx context.Context, msg *Message) error {
	if msg == nil {
		return owlErrors.InvalidInput("message is nil")
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return owlErrors.Transient("ingress closed")
	}

	slog.Debug("Ingress received message", "id", msg.ID, "source", msg.Source)

	if key := msg.IdempotencyKey(); key != "" && i.keys != nil {
		if i.keys.CheckAndMark(key, i.idempotencyTTL) {
			slog.Warn("Duplicate message detected", "key", key)
			metrics.MessagesDropped.WithLabelValues("duplicate").Inc()
			return owlErrors.ErrDuplicateEvent
		}
	}

	if i.router.Route(ctx, msg) == DestDrop {
		slog.Debug("Message dropped by router", "id", msg.ID)
		return nil
	}

	user, err := i.resolver.ResolveUser(ctx, msg)
	if err != nil {
		return owlErrors.Wrap(err, "user resolution failed")
	}
	msg.UserID = user

	if !i.limiter.Allow(user) {
		slog.Warn("Rate limit exceeded", "user_id", user)
		metrics.MessagesDropped.WithLabelValues("rate_limited").Inc()
		return owlErrors.ErrRateLimited
	}

	timer := time.NewTimer(i.submitTimeout)
	defer timer.Stop()

	select {
	case i.queue <- msg:
		metrics.QueueUtilization.Set(i.utilization())
		slog.Debug("Message queued", "id", msg.ID, "user_id", msg.UserID, "kind", msg.Kind)
		return nil
	case <-timer.C:
		slog.Warn("Queue full, dropping message", "id", msg.ID)
		metrics.MessagesDropped.WithLabelValues("queue_full").Inc()
		return owlErrors.ErrTransient
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Ingress) Queue() <-chan *Message {
	return i.queue
}

func (i *Ingress) utilization() float64 {
	return float64(len(i.queue)) / float64(cap(i.queue))
}

// Prune drops expired idempotency keys and ended rate-limit windows.
func (i *Ingress) Prune() (keys, counters int) {
	if i.keys != nil {
		keys = i.keys.Prune()
	}
	return keys, i.limiter.Prune()
}

// SaveKeys persists idempotency keys when the store is file backed.
func (i *Ingress) SaveKeys() error {
	if i.keys == nil {
		return nil
	}
	return i.keys.Save()
}

// Close stops accepting messages, waits for workers to take what is queued
// (bounded by the drain timeout) and closes the queue.
func (i *Ingress) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	slog.Info("Ingress shutting down, draining queue")

	deadline := time.Now().Add(i.drainTimeout)
	remaining := len(i.queue)
	for remaining > 0 && time.Now().Before(deadline) {
		time.Sleep(i.drainPollInterval)
		next := len(i.queue)
		if next == remaining {
			slog.Warn("Queue drain stalled", "remaining", next)
			break
		}
		remaining = next
	}
	if remaining > 0 {
		slog.Warn("Queue drain incomplete", "remaining", remaining)
	}

	close(i.queue)
	metrics.QueueUtilization.Set(0)
	if err := i.SaveKeys(); err != nil {
		return owlErrors.Wrap(err, "failed to save idempotency keys")
	}

	slog.Info("Ingress shutdown complete")
	return nil
}

func (i *Ingress) Health(ctx context.Context) error {
	if i.queue == nil {
		return owlErrors.Internal("queue not initialized")
	}

	usage := i.utilization()
	slog.Debug("Ingress health metrics",
		"queue_len", len(i.queue),
		"queue_cap", cap(i.queue),
		"usage", usage,
	)

	if usage > 0.9 {
		return owlErrors.Transient("queue nearly full")
	}

	if i.resolver == nil {
		return owlErrors.Internal("resolver not initialized")
	}
	if i.router == nil {
		return owlErrors.Internal("router not initialized")
	}

	return nil
}
