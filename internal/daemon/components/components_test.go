package components

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/scheduler"
	"github.com/harunnryd/nightowl/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComponentConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	feed := filepath.Join(dir, "curated.yaml")
	require.NoError(t, os.WriteFile(feed, []byte(`
listings:
  - name: Late Set at the Cellar
    venue: Comedy Cellar
    neighborhood: West Village
    start: 2099-10-16 21:00
`), 0o644))

	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		City:   config.CityConfig{Name: config.DefaultCityName, Timezone: config.DefaultCityTimezone},
		Sources: []config.SourceConfig{
			{Name: "curated", Type: "file", Path: feed, Items: "listings", Weight: 1},
		},
		Cache:   config.CacheConfig{SnapshotPath: filepath.Join(dir, "cache", "events.json")},
		Session: config.SessionConfig{Backend: SessionBackendMemory},
		Ingress: config.IngressConfig{QueueSize: 4},
		Worker:  config.WorkerConfig{Count: 1, ShutdownTimeout: "1s"},
		Daemon:  config.DaemonConfig{DataDir: dir},
	}
}

func TestSessionsComponent_Backends(t *testing.T) {
	ctx := context.Background()

	s := NewSessionsComponent(&config.SessionConfig{})
	h, err := s.Health(ctx)
	require.NoError(t, err)
	assert.False(t, h.Healthy)

	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Start(ctx))
	assert.IsType(t, &session.MemoryStore{}, s.GetStore())
	h, err = s.Health(ctx)
	require.NoError(t, err)
	assert.True(t, h.Healthy)
	require.NoError(t, s.Stop(ctx))

	err = NewSessionsComponent(&config.SessionConfig{Backend: "etcd"}).Init(ctx)
	assert.ErrorContains(t, err, "unknown session backend")

	err = NewSessionsComponent(&config.SessionConfig{TTL: "forever"}).Init(ctx)
	assert.Error(t, err)
}

func TestCatalogComponent_Init(t *testing.T) {
	cfg := testComponentConfig(t)
	c := NewCatalogComponent(cfg)
	require.NoError(t, c.Init(context.Background()))

	require.NotNil(t, c.GetRegistry())
	_, ok := c.GetRegistry().Lookup("East Village")
	assert.True(t, ok, "built-in registry is used without an areas file")
	assert.Equal(t, config.DefaultCityTimezone, c.GetLocation().String())
	assert.NotNil(t, c.GetRanker())
	assert.NotNil(t, c.GetEvergreen())

	agg := c.GetAggregator()
	require.NotNil(t, agg)
	assert.Zero(t, agg.Status().Cycles, "init never refreshes")

	require.NoError(t, agg.Refresh(context.Background()))
	assert.Equal(t, 1, agg.Status().Size)
	assert.FileExists(t, cfg.Cache.SnapshotPath)

	// A second catalog warm-starts from the snapshot.
	warm := NewCatalogComponent(cfg)
	require.NoError(t, warm.Init(context.Background()))
	assert.Equal(t, 1, warm.GetAggregator().Status().Size)
}

func TestCatalogComponent_BadConfig(t *testing.T) {
	cfg := testComponentConfig(t)
	cfg.City.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, NewCatalogComponent(cfg).Init(context.Background()), "timezone")

	cfg = testComponentConfig(t)
	cfg.Sources = append(cfg.Sources, config.SourceConfig{Name: "broken", Type: "rss"})
	assert.ErrorContains(t, NewCatalogComponent(cfg).Init(context.Background()), "unknown source type")

	disabled := false
	cfg = testComponentConfig(t)
	cfg.Sources = append(cfg.Sources, config.SourceConfig{Name: "broken", Type: "rss", Enabled: &disabled})
	assert.NoError(t, NewCatalogComponent(cfg).Init(context.Background()), "disabled sources are not built")

	cfg = testComponentConfig(t)
	cfg.City.AreasFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.ErrorContains(t, NewCatalogComponent(cfg).Init(context.Background()), "areas file")
}

func TestSchedulerComponent_WiresSweeps(t *testing.T) {
	cfg := testComponentConfig(t)
	ctx := context.Background()

	sessions := NewSessionsComponent(&cfg.Session)
	require.NoError(t, sessions.Init(ctx))
	ing := NewIngressComponent(&cfg.Ingress, filepath.Join(cfg.Daemon.DataDir, "idempotency.json"))
	require.NoError(t, ing.Init(ctx))

	s := NewSchedulerComponent(cfg, sessions, ing)
	assert.Equal(t, []string{"Sessions", "Ingress"}, s.Dependencies())
	require.NoError(t, s.Init(ctx))

	status := s.GetScheduler().Status()
	require.Len(t, status, 2)
	assert.Equal(t, scheduler.JobSessionSweep, status[0].Name)
	assert.Equal(t, config.DefaultSchedulerSessionSweep, status[0].Spec)
	assert.Equal(t, scheduler.JobHousekeeping, status[1].Name)

	require.NoError(t, s.GetScheduler().RunNow(scheduler.JobHousekeeping))
	assert.FileExists(t, filepath.Join(cfg.Daemon.DataDir, "idempotency.json"))
}

func TestWorkersComponent_RequiresDependencies(t *testing.T) {
	w := NewWorkersComponent(testComponentConfig(t), nil, nil, nil, nil, nil)
	assert.Equal(t, []string{"Ingress", "Conversation"}, w.Dependencies())
	assert.Error(t, w.Init(context.Background()))
	assert.Error(t, w.Start(context.Background()))
}
