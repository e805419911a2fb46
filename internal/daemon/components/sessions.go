package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/daemon"
	"github.com/harunnryd/nightowl/internal/session"

	"github.com/redis/go-redis/v9"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// SessionsComponent owns the conversation frame store.
type SessionsComponent struct {
	cfg         *config.SessionConfig
	store       session.Store
	redis       *session.RedisStore
	client      *redis.Client
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewSessionsComponent(cfg *config.SessionConfig) *SessionsComponent {
	return &SessionsComponent{cfg: cfg}
}

func (s *SessionsComponent) Name() string {
	return "Sessions"
}

func (s *SessionsComponent) Dependencies() []string {
	return []string{}
}

func (s *SessionsComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg == nil {
		return fmt.Errorf("session config not provided")
	}

	ttl, err := config.DurationOrDefault(s.cfg.TTL, config.DefaultSessionTTL)
	if err != nil {
		return fmt.Errorf("parse session ttl: %w", err)
	}
	opts := session.Options{TTL: ttl, HistoryLimit: s.cfg.HistoryLimit}

	backend := strings.ToLower(strings.TrimSpace(s.cfg.Backend))
	switch backend {
	case "", SessionBackendMemory:
		backend = SessionBackendMemory
		s.store = session.NewMemoryStore(opts)
	case SessionBackendRedis:
		addr := s.cfg.Redis.Addr
		if addr == "" {
			addr = config.DefaultSessionRedisAddr
		}
		s.client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
		s.redis = session.NewRedisStore(s.client, s.cfg.Redis.Prefix, opts)
		if err := s.redis.Ping(ctx); err != nil {
			_ = s.client.Close()
			return fmt.Errorf("connect session redis %s: %w", addr, err)
		}
		s.store = s.redis
	default:
		return fmt.Errorf("unknown session backend %q", s.cfg.Backend)
	}

	s.initialized = true
	slog.Info("Sessions initialized", "component", s.Name(), "backend", backend, "ttl", ttl)
	return nil
}

func (s *SessionsComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("Sessions not initialized")
	}

	s.started = true
	s.startTime = time.Now()
	slog.Info("Sessions started", "component", s.Name())
	return nil
}

func (s *SessionsComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started && s.client == nil {
		slog.Info("Sessions not started, skipping stop", "component", s.Name())
		return nil
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			slog.Warn("Session redis close failed", "component", s.Name(), "error", err)
		}
		s.client = nil
	}
	s.started = false
	slog.Info("Sessions stopped", "component", s.Name())
	return nil
}

func (s *SessionsComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !s.started {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: err}, nil
		}
	}
	return &daemon.ComponentHealth{Name: s.Name(), Healthy: true}, nil
}

func (s *SessionsComponent) GetStore() session.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}
