package aggregator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harunnryd/nightowl/internal/event"

	"github.com/natefinch/atomic"
)

type snapshot struct {
	RefreshedAt time.Time     `json:"refreshed_at"`
	Events      []event.Event `json:"events"`
}

func writeSnapshot(path string, refreshedAt time.Time, events []event.Event) error {
	data, err := json.Marshal(snapshot{RefreshedAt: refreshedAt, Events: events})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// LoadSnapshot seeds the cache from the last persisted refresh when it is
// still within the TTL. A missing file is not an error.
func (a *Aggregator) LoadSnapshot() (bool, error) {
	if a.opts.SnapshotPath == "" {
		return false, nil
	}
	data, err := os.ReadFile(a.opts.SnapshotPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("decode cache snapshot: %w", err)
	}
	if snap.RefreshedAt.IsZero() || a.opts.Now().Sub(snap.RefreshedAt) >= a.opts.TTL {
		return false, nil
	}

	byID := make(map[string]event.Event, len(snap.Events))
	for _, e := range snap.Events {
		byID[e.ID] = e
	}

	a.mu.Lock()
	a.events = snap.Events
	a.byID = byID
	a.refreshedAt = snap.RefreshedAt
	a.mu.Unlock()
	return true, nil
}
