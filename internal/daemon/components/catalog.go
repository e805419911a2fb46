package components

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/aggregator"
	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/daemon"
	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/evergreen"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/harunnryd/nightowl/internal/ranking"
	"github.com/harunnryd/nightowl/internal/source"
)

// CatalogComponent wires the area registry, listing sources and the event
// cache. It is also used standalone by the cache and areas CLI commands.
type CatalogComponent struct {
	cfg         *config.Config
	location    *time.Location
	registry    *geo.Registry
	normalizer  *event.Normalizer
	ranker      *ranking.Ranker
	aggregator  *aggregator.Aggregator
	evergreen   *evergreen.Pool
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewCatalogComponent(cfg *config.Config) *CatalogComponent {
	return &CatalogComponent{cfg: cfg}
}

func (c *CatalogComponent) Name() string {
	return "Catalog"
}

func (c *CatalogComponent) Dependencies() []string {
	return []string{}
}

func (c *CatalogComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg == nil {
		return fmt.Errorf("config not provided")
	}

	loc, err := CityLocation(c.cfg.City)
	if err != nil {
		return err
	}
	c.location = loc

	registry, err := BuildRegistry(c.cfg)
	if err != nil {
		return err
	}
	c.registry = registry
	c.normalizer = event.NewNormalizer(registry, loc)

	recentGrace, err := config.DurationOrDefault(c.cfg.Ranking.RecentGrace, config.DefaultRankingRecentGrace)
	if err != nil {
		return fmt.Errorf("parse ranking recent grace: %w", err)
	}
	c.ranker = ranking.NewRanker(registry, ranking.Options{
		CutoffKm:    c.cfg.Ranking.CutoffKm,
		RecentGrace: recentGrace,
		MatchCap:    c.cfg.Ranking.MatchCap,
		PoolSize:    c.cfg.Ranking.PoolSize,
	})

	ttl, err := config.DurationOrDefault(c.cfg.Cache.TTL, config.DefaultCacheTTL)
	if err != nil {
		return fmt.Errorf("parse cache ttl: %w", err)
	}
	sourceTimeout, err := config.DurationOrDefault(c.cfg.Cache.SourceTimeout, config.DefaultCacheSourceTimeout)
	if err != nil {
		return fmt.Errorf("parse cache source timeout: %w", err)
	}
	snapshotPath, err := config.ExpandPath(c.cfg.Cache.SnapshotPath)
	if err != nil {
		return fmt.Errorf("resolve cache snapshot path: %w", err)
	}

	client := source.NewHTTPClient(sourceTimeout)
	sources := make([]source.Source, 0, len(c.cfg.Sources))
	for _, sc := range c.cfg.Sources {
		if !sc.IsEnabled() {
			slog.Info("Source disabled, skipping", "source", sc.Name)
			continue
		}
		src, err := source.NewFromConfig(sc, client)
		if err != nil {
			return fmt.Errorf("configure source: %w", err)
		}
		sources = append(sources, src)
	}

	searcher, err := c.buildSearcher()
	if err != nil {
		return err
	}

	health := source.NewHealthTracker(c.cfg.Cache.EmptyWarnRun, time.Now)
	c.aggregator = aggregator.New(sources, searcher, c.normalizer, c.ranker, registry, health, aggregator.Options{
		TTL:           ttl,
		SourceTimeout: sourceTimeout,
		MinUpcoming:   c.cfg.Cache.MinUpcoming,
		MaxResults:    c.cfg.Cache.MaxResults,
		SnapshotPath:  snapshotPath,
		Location:      loc,
	})

	seeded, err := c.aggregator.LoadSnapshot()
	if err != nil {
		slog.Warn("Cache snapshot unreadable, starting cold", "path", snapshotPath, "error", err)
	}

	evergreenPath, err := config.ExpandPath(c.cfg.Conversation.EvergreenFile)
	if err != nil {
		return fmt.Errorf("resolve evergreen file: %w", err)
	}
	pool, err := evergreen.Load(evergreenPath, c.normalizer)
	if err != nil {
		return err
	}
	c.evergreen = pool

	c.initialized = true
	slog.Info("Catalog initialized",
		"component", c.Name(),
		"city", c.cfg.City.Name,
		"areas", len(registry.Areas()),
		"sources", len(sources),
		"search", searcher != nil,
		"snapshot_seeded", seeded,
	)
	return nil
}

func (c *CatalogComponent) buildSearcher() (source.Searcher, error) {
	if !c.cfg.Search.Enabled {
		return nil, nil
	}
	timeout, err := config.DurationOrDefault(c.cfg.Search.Timeout, config.DefaultSearchTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse search timeout: %w", err)
	}
	city := c.cfg.City.Name
	if city == "" {
		city = config.DefaultCityName
	}
	return &source.WebSearch{
		Client:      &http.Client{Timeout: timeout},
		BaseURL:     c.cfg.Search.BaseURL,
		City:        city,
		MaxResults:  c.cfg.Search.MaxResults,
		SourceTrust: c.cfg.Search.Weight,
	}, nil
}

func (c *CatalogComponent) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return fmt.Errorf("Catalog not initialized")
	}

	c.started = true
	c.startTime = time.Now()
	slog.Info("Catalog started", "component", c.Name())
	return nil
}

func (c *CatalogComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		slog.Info("Catalog not started, skipping stop", "component", c.Name())
		return nil
	}
	c.started = false
	slog.Info("Catalog stopped", "component", c.Name())
	return nil
}

// Health reports the cache itself as healthy even when some sources fail;
// the per-source state is on the cache status endpoint.
func (c *CatalogComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
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

func (c *CatalogComponent) GetAggregator() *aggregator.Aggregator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aggregator
}

func (c *CatalogComponent) GetRegistry() *geo.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry
}

func (c *CatalogComponent) GetRanker() *ranking.Ranker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ranker
}

func (c *CatalogComponent) GetEvergreen() *evergreen.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evergreen
}

func (c *CatalogComponent) GetLocation() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location
}

// CityLocation loads the city's time zone.
func CityLocation(city config.CityConfig) (*time.Location, error) {
	tz := city.Timezone
	if tz == "" {
		tz = config.DefaultCityTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load city timezone %q: %w", tz, err)
	}
	return loc, nil
}

// BuildRegistry loads the configured areas file, or the built-in New York
// registry when none is set.
func BuildRegistry(cfg *config.Config) (*geo.Registry, error) {
	opts := []geo.Option{}
	if cfg.Ranking.ResolveKm > 0 {
		opts = append(opts, geo.WithResolveRadius(cfg.Ranking.ResolveKm))
	}
	if cfg.Ranking.CrossPenalty > 0 {
		opts = append(opts, geo.WithCrossBoroughPenalty(cfg.Ranking.CrossPenalty))
	}

	path, err := config.ExpandPath(cfg.City.AreasFile)
	if err != nil {
		return nil, fmt.Errorf("resolve areas file: %w", err)
	}
	if path == "" {
		return geo.Default(opts...), nil
	}
	registry, err := geo.LoadRegistry(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("load areas file: %w", err)
	}
	return registry, nil
}
