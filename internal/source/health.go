package source

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

const DefaultEmptyWarnRun = 3

// Health is the per-source diagnostic record. It feeds logs and the status
// surface only; nothing routes on it.
type Health struct {
	Name             string    `json:"name"`
	Weight           float64   `json:"weight"`
	ConsecutiveEmpty int       `json:"consecutive_empty"`
	LastCount        int       `json:"last_count"`
	LastError        string    `json:"last_error,omitempty"`
	LastFetchAt      time.Time `json:"last_fetch_at"`
	Fetches          int       `json:"fetches"`
	Failures         int       `json:"failures"`
}

type HealthTracker struct {
	mu        sync.Mutex
	sources   map[string]*Health
	warnAfter int
	now       func() time.Time
}

func NewHealthTracker(warnAfter int, now func() time.Time) *HealthTracker {
	if warnAfter <= 0 {
		warnAfter = DefaultEmptyWarnRun
	}
	if now == nil {
		now = time.Now
	}
	return &HealthTracker{
		sources:   make(map[string]*Health),
		warnAfter: warnAfter,
		now:       now,
	}
}

// Record notes one fetch outcome. An error counts as an empty result.
func (t *HealthTracker) Record(name string, weight float64, count int, err error) {
	t.mu.Lock()
	h, ok := t.sources[name]
	if !ok {
		h = &Health{Name: name}
		t.sources[name] = h
	}
	h.Weight = weight
	h.Fetches++
	h.LastCount = count
	h.LastFetchAt = t.now()
	h.LastError = ""
	if err != nil {
		h.Failures++
		h.LastError = err.Error()
	}
	if count == 0 {
		h.ConsecutiveEmpty++
	} else {
		h.ConsecutiveEmpty = 0
	}
	run := h.ConsecutiveEmpty
	t.mu.Unlock()

	if run >= t.warnAfter {
		slog.Warn("Source returned nothing for consecutive refreshes", "source", name, "consecutive_empty", run, "error", err)
	}
}

func (t *HealthTracker) Get(name string) (Health, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.sources[name]
	if !ok {
		return Health{}, false
	}
	return *h, true
}

// Snapshot returns every tracked source sorted by name.
func (t *HealthTracker) Snapshot() []Health {
	t.mu.Lock()
	out := make([]Health, 0, len(t.sources))
	for _, h := range t.sources {
		out = append(out, *h)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
