package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/conversation"
	"github.com/harunnryd/nightowl/internal/daemon"
	"github.com/harunnryd/nightowl/internal/model"
	"github.com/harunnryd/nightowl/internal/nlu"
)

// ConversationComponent builds the turn engine on top of the catalog and the
// session store, with model-backed understanding when nlu.enabled is set.
type ConversationComponent struct {
	cfg          *config.Config
	sessionsComp *SessionsComponent
	catalogComp  *CatalogComponent
	engine       *conversation.Engine
	initialized  bool
	started      bool
	mu           sync.RWMutex
	startTime    time.Time
}

func NewConversationComponent(cfg *config.Config, sessionsComp *SessionsComponent, catalogComp *CatalogComponent) *ConversationComponent {
	return &ConversationComponent{
		cfg:          cfg,
		sessionsComp: sessionsComp,
		catalogComp:  catalogComp,
	}
}

func (c *ConversationComponent) Name() string {
	return "Conversation"
}

func (c *ConversationComponent) Dependencies() []string {
	return []string{"Sessions", "Catalog"}
}

func (c *ConversationComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionsComp == nil || c.catalogComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	store := c.sessionsComp.GetStore()
	events := c.catalogComp.GetAggregator()
	if store == nil || events == nil {
		return fmt.Errorf("required dependencies not initialized")
	}
	loc := c.catalogComp.GetLocation()

	var (
		classifier nlu.Classifier
		renderer   nlu.Renderer = nlu.NewTemplateRenderer(c.cfg.Conversation.PicksPerTurn, loc)
	)
	if c.cfg.NLU.Enabled {
		timeout, err := config.DurationOrDefault(c.cfg.NLU.Timeout, config.DefaultNLUTimeout)
		if err != nil {
			return fmt.Errorf("parse nlu timeout: %w", err)
		}
		router, err := model.NewModelRouter(c.cfg.Models)
		if err != nil {
			return fmt.Errorf("failed to create model router: %w", err)
		}
		classifier = nlu.NewLLMClassifier(router, c.cfg.NLU.ClassifierModel, c.cfg.City.Name, timeout)
		renderer = nlu.NewLLMRenderer(router, c.cfg.NLU.RendererModel, timeout, c.cfg.Conversation.PicksPerTurn, loc, renderer)
		slog.Info("Model-backed understanding enabled", "component", c.Name(), "classifier", c.cfg.NLU.ClassifierModel, "renderer", c.cfg.NLU.RendererModel)
	}

	c.engine = conversation.New(conversation.Deps{
		Registry:   c.catalogComp.GetRegistry(),
		Events:     events,
		Ranker:     c.catalogComp.GetRanker(),
		Store:      store,
		Classifier: classifier,
		Renderer:   renderer,
		Evergreen:  c.catalogComp.GetEvergreen(),
		Observer:   conversation.Observers{conversation.LogObserver{}, conversation.MetricsObserver{}},
	}, conversation.Options{
		AdjacentHops: c.cfg.Conversation.AdjacentHops,
		PicksPerTurn: c.cfg.Conversation.PicksPerTurn,
		HistoryLimit: c.cfg.Session.HistoryLimit,
		City:         c.cfg.City.Name,
		Location:     loc,
	})

	c.initialized = true
	slog.Info("Conversation engine initialized", "component", c.Name(), "nlu", c.cfg.NLU.Enabled)
	return nil
}

func (c *ConversationComponent) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return fmt.Errorf("Conversation not initialized")
	}

	c.started = true
	c.startTime = time.Now()
	slog.Info("Conversation started", "component", c.Name())
	return nil
}

func (c *ConversationComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		slog.Info("Conversation not started, skipping stop", "component", c.Name())
		return nil
	}
	c.started = false
	slog.Info("Conversation stopped", "component", c.Name())
	return nil
}

func (c *ConversationComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !c.started {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	return &daemon.ComponentHealth{Name: c.Name(), Healthy: true}, nil
}

func (c *ConversationComponent) GetEngine() *conversation.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine
}
