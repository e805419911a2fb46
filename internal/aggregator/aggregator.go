package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/nightowl/internal/concurrency"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/harunnryd/nightowl/internal/metrics"
	"github.com/harunnryd/nightowl/internal/ranking"
	"github.com/harunnryd/nightowl/internal/source"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL           = 2 * time.Hour
	DefaultSourceTimeout = 10 * time.Second
	DefaultMinUpcoming   = 5
	DefaultMaxResults    = 20

	refreshKey = "refresh"
	searchKey  = "search:"
)

type Options struct {
	TTL           time.Duration
	SourceTimeout time.Duration
	MinUpcoming   int
	MaxResults    int
	SnapshotPath  string
	Location      *time.Location
	Now           func() time.Time
}

// Aggregator owns the merged event cache. Reads are lazy: a stale cache is
// refreshed by exactly one caller while the rest wait on that same refresh.
type Aggregator struct {
	sources    []source.Source
	searcher   source.Searcher
	normalizer *event.Normalizer
	ranker     *ranking.Ranker
	registry   *geo.Registry
	health     *source.HealthTracker
	opts       Options

	mu          sync.RWMutex
	events      []event.Event
	byID        map[string]event.Event
	refreshedAt time.Time

	// supplemented holds search results served since the last refresh so
	// that Lookup can find them; they never enter the cache itself.
	supplemented map[string]event.Event
	// searched remembers each area's supplement until the next refresh.
	searched map[string][]event.Event

	group      singleflight.Group
	refreshing atomic.Bool
	cycles     atomic.Int64
}

func New(
	sources []source.Source,
	searcher source.Searcher,
	normalizer *event.Normalizer,
	ranker *ranking.Ranker,
	registry *geo.Registry,
	health *source.HealthTracker,
	opts Options,
) *Aggregator {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	if opts.MinUpcoming <= 0 {
		opts.MinUpcoming = DefaultMinUpcoming
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Location == nil {
		opts.Location = normalizer.Location()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if health == nil {
		health = source.NewHealthTracker(0, opts.Now)
	}

	return &Aggregator{
		sources:    prioritize(sources),
		searcher:   searcher,
		normalizer: normalizer,
		ranker:     ranker,
		registry:   registry,
		health:     health,
		opts:       opts,
		byID:       make(map[string]event.Event),
	}
}

// prioritize orders sources by trust weight, keeping configuration order on ties.
func prioritize(sources []source.Source) []source.Source {
	out := make([]source.Source, len(sources))
	copy(out, sources)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight() > out[j].Weight()
	})
	return out
}

func (a *Aggregator) now() time.Time {
	return a.opts.Now().In(a.opts.Location)
}

// GetEvents returns ranked upcoming events for an area, at most MaxResults.
// A thin result is topped up from the web search source.
func (a *Aggregator) GetEvents(ctx context.Context, areaName string) ([]event.Event, error) {
	area, ok := a.registry.Lookup(areaName)
	if !ok {
		return nil, owlErrors.InvalidInput(fmt.Sprintf("unknown area %q", areaName))
	}

	if err := a.ensureFresh(ctx); err != nil {
		return nil, err
	}

	now := a.now()
	a.mu.RLock()
	cached := a.events
	a.mu.RUnlock()

	ranked := a.ranker.Rank(a.ranker.FilterUpcoming(cached, now), area, now)

	if len(ranked) < a.opts.MinUpcoming && a.searcher != nil {
		extra := a.supplement(ctx, area)
		if len(extra) > 0 {
			merged := mergeByPriority(ranked, extra)
			ranked = a.ranker.Rank(a.ranker.FilterUpcoming(merged, now), area, now)
		}
	}

	if len(ranked) > a.opts.MaxResults {
		ranked = ranked[:a.opts.MaxResults]
	}
	return ranked, nil
}

// supplement searches once per area per refresh cycle. Failed searches are not
// remembered, so the next thin read tries again.
func (a *Aggregator) supplement(ctx context.Context, area geo.Area) []event.Event {
	a.mu.RLock()
	evs, ok := a.searched[area.Name]
	a.mu.RUnlock()
	if ok {
		return evs
	}

	v, _, _ := a.group.Do(searchKey+area.Name, func() (interface{}, error) {
		a.mu.RLock()
		evs, ok := a.searched[area.Name]
		a.mu.RUnlock()
		if ok {
			return evs, nil
		}
		return a.search(ctx, area), nil
	})
	evs, _ = v.([]event.Event)
	return evs
}

func (a *Aggregator) search(ctx context.Context, area geo.Area) []event.Event {
	sctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	raws, err := a.searcher.Search(sctx, area.Name)
	evs := a.normalizer.NormalizeBatch(a.searcher.Name(), a.searcher.Weight(), raws)
	a.health.Record(a.searcher.Name(), a.searcher.Weight(), len(evs), err)
	if err != nil {
		metrics.SearchSupplements.WithLabelValues("error").Inc()
		slog.Warn("Search supplement failed", "area", area.Name, "error", err)
		return nil
	}
	metrics.SearchSupplements.WithLabelValues("ok").Inc()
	a.mu.Lock()
	if a.supplemented == nil {
		a.supplemented = make(map[string]event.Event)
	}
	for _, e := range evs {
		a.supplemented[e.ID] = e
	}
	if a.searched == nil {
		a.searched = make(map[string][]event.Event)
	}
	a.searched[area.Name] = evs
	a.mu.Unlock()
	slog.Debug("Search supplement", "area", area.Name, "records", len(evs))
	return evs
}

// Fresh reports whether the cache is within its TTL.
func (a *Aggregator) Fresh() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.freshLocked(a.opts.Now())
}

func (a *Aggregator) freshLocked(now time.Time) bool {
	return !a.refreshedAt.IsZero() && now.Sub(a.refreshedAt) < a.opts.TTL
}

func (a *Aggregator) ensureFresh(ctx context.Context) error {
	if a.Fresh() {
		return nil
	}
	return a.refreshShared(ctx, false)
}

// Refresh forces a refresh cycle, sharing any refresh already in flight.
func (a *Aggregator) Refresh(ctx context.Context) error {
	return a.refreshShared(ctx, true)
}

func (a *Aggregator) refreshShared(ctx context.Context, force bool) error {
	// The refresh itself is detached from the caller: a caller giving up must
	// not abort a refresh other callers are waiting on.
	base := context.WithoutCancel(ctx)
	ch := a.group.DoChan(refreshKey, func() (interface{}, error) {
		if !force && a.Fresh() {
			return nil, nil
		}
		a.refresh(base)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fetchResult struct {
	events []event.Event
}

func (a *Aggregator) refresh(ctx context.Context) {
	a.refreshing.Store(true)
	defer a.refreshing.Store(false)

	started := time.Now()
	results := make([]fetchResult, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			defer concurrency.Recover("source:"+src.Name(), func(r interface{}) {
				a.health.Record(src.Name(), src.Weight(), 0, fmt.Errorf("panic: %v", r))
				metrics.SourceFetches.WithLabelValues(src.Name(), "panic").Inc()
			})
			results[i] = fetchResult{events: a.fetchOne(ctx, src)}
		}(i, src)
	}
	wg.Wait()

	batches := make([][]event.Event, 0, len(results))
	for _, r := range results {
		batches = append(batches, r.events)
	}
	merged := mergeByPriority(batches...)

	refreshedAt := a.opts.Now()
	byID := make(map[string]event.Event, len(merged))
	for _, e := range merged {
		byID[e.ID] = e
	}

	a.mu.Lock()
	a.events = merged
	a.byID = byID
	a.supplemented = nil
	a.searched = nil
	a.refreshedAt = refreshedAt
	a.mu.Unlock()

	a.cycles.Add(1)
	metrics.CacheRefreshes.WithLabelValues("ok").Inc()
	metrics.CacheRefreshDuration.Observe(time.Since(started).Seconds())
	metrics.CacheSize.Set(float64(len(merged)))
	slog.Info("Event cache refreshed", "events", len(merged), "sources", len(a.sources), "duration", time.Since(started))

	if a.opts.SnapshotPath != "" {
		if err := writeSnapshot(a.opts.SnapshotPath, refreshedAt, merged); err != nil {
			slog.Warn("Failed to write cache snapshot", "path", a.opts.SnapshotPath, "error", err)
		}
	}
}

func (a *Aggregator) fetchOne(ctx context.Context, src source.Source) []event.Event {
	fctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	raws, err := src.Fetch(fctx)
	if err != nil {
		a.health.Record(src.Name(), src.Weight(), 0, err)
		metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
		slog.Warn("Source fetch failed", "source", src.Name(), "error", err)
		return nil
	}

	evs := a.normalizer.NormalizeBatch(src.Name(), src.Weight(), raws)
	a.health.Record(src.Name(), src.Weight(), len(evs), nil)
	metrics.SourceFetches.WithLabelValues(src.Name(), "ok").Inc()
	metrics.SourceRecords.WithLabelValues(src.Name()).Add(float64(len(evs)))
	return evs
}

// mergeByPriority keeps the first event seen per fingerprint. Batches must be
// passed highest priority first.
func mergeByPriority(batches ...[]event.Event) []event.Event {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	seen := make(map[string]struct{}, total)
	out := make([]event.Event, 0, total)
	for _, b := range batches {
		for _, e := range b {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns a cached or recently supplemented event by id.
func (a *Aggregator) Lookup(id string) (event.Event, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, ok := a.byID[id]; ok {
		return e, true
	}
	e, ok := a.supplemented[id]
	return e, ok
}

// RefreshCycles counts completed refreshes since start.
func (a *Aggregator) RefreshCycles() int64 {
	return a.cycles.Load()
}

type Status struct {
	Size        int             `json:"size"`
	RefreshedAt time.Time       `json:"refreshed_at"`
	AgeSeconds  float64         `json:"age_seconds"`
	TTLSeconds  float64         `json:"ttl_seconds"`
	Fresh       bool            `json:"fresh"`
	Refreshing  bool            `json:"refreshing"`
	Cycles      int64           `json:"cycles"`
	Sources     []source.Health `json:"sources"`
}

// Status is a read-only diagnostic; it never triggers a refresh.
func (a *Aggregator) Status() Status {
	now := a.opts.Now()
	a.mu.RLock()
	st := Status{
		Size:        len(a.events),
		RefreshedAt: a.refreshedAt,
		TTLSeconds:  a.opts.TTL.Seconds(),
		Fresh:       a.freshLocked(now),
	}
	a.mu.RUnlock()

	if !st.RefreshedAt.IsZero() {
		st.AgeSeconds = now.Sub(st.RefreshedAt).Seconds()
	}
	st.Refreshing = a.refreshing.Load()
	st.Cycles = a.cycles.Load()
	st.Sources = a.health.Snapshot()
	return st
}
